package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

func TestLedgerStore_MissingFileIsEmpty(t *testing.T) {
	s := NewLedgerStore(filepath.Join(t.TempDir(), "search_results.json"))

	l, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, l.Searched)
	assert.Empty(t, l.Reviewed)
	assert.Empty(t, l.Unreviewed)
}

func TestLedgerStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "search_results.json")
	s := NewLedgerStore(path)
	ctx := context.Background()

	l := domain.NewReviewLedger()
	l.RecordSearch("q1", domain.ChannelIDs{"alpha": {"101", "102"}})
	l.MarkReviewed("q1", "alpha", []domain.ItemID{"101"})
	require.NoError(t, s.Save(ctx, l))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"searchedMessages"`)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, l, loaded)
}

func TestLedgerStore_NormalizesOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_results.json")
	raw := `{"searchedMessages": {"q1": {"alpha": [102, 101, 101]}}, "reviewedMessages": {"q1": {"alpha": [101]}}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	l, err := NewLedgerStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemID{"101", "102"}, l.Searched["q1"]["alpha"])
	assert.Equal(t, []domain.ItemID{"102"}, l.Unreviewed["q1"]["alpha"])
}

func TestLedgerStore_CorruptFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search_results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"searchedMessages": {`), 0o644))

	s := NewLedgerStore(path)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	l, err := s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrLedgerLoad)
	require.NotNil(t, l)
	assert.Empty(t, l.Searched)

	assert.NoFileExists(t, path)
	assert.FileExists(t, path+".corrupt-1700000000")

	// The next load starts clean.
	l, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, l.Searched)
}

func TestLedgerStore_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The parent of the ledger path is a regular file.
	s := NewLedgerStore(filepath.Join(blocker, "search_results.json"))
	err := s.Save(context.Background(), domain.NewReviewLedger())
	assert.ErrorIs(t, err, domain.ErrLedgerWrite)
}

func TestLedgerStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s := NewLedgerStore(filepath.Join(dir, "search_results.json"))
	require.NoError(t, s.Save(context.Background(), domain.NewReviewLedger()))
	require.NoError(t, s.Save(context.Background(), domain.NewReviewLedger()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasSuffix(entries[0].Name(), ".tmp"))
}
