package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

func TestSettings_Defaults(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	st, err := store.Settings()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), st)
}

func TestSettings_Full(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, `
cache_root = "/var/cache/finder"
ledger_path = "/var/lib/finder/results.json"
history_path = "/var/lib/finder/history.json"
ledger_backend = "sqlite"
sqlite_dir = "/var/lib/finder"
min_similarity = 0.6
search_from = 2023-01-15
crawl_concurrency = 4
excluded_channels = ["noise"]

[names]
include_initials = true
include_female_forms = true
include_reversed = false

[telegram]
bridge_url = "http://localhost:8081"
page_size = 100
requests_per_second = 1.5
burst = 3
timeout_seconds = 10

[descriptor]
url = "http://localhost:5000/descriptors"
timeout_seconds = 60

[web]
page_timeout_seconds = 15
requests_per_second = 1
burst = 2
user_agent = "finder/1.0"

[[sources]]
name = "alpha"
type = "telegram"

[[sources]]
name = "board"
type = "web"
base_url = "https://example.org/missing/"
`))
	require.NoError(t, err)

	st, err := store.Settings()
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/finder", st.CacheRoot)
	assert.Equal(t, "/var/lib/finder/results.json", st.LedgerPath)
	assert.Equal(t, "/var/lib/finder/history.json", st.HistoryPath)
	assert.Equal(t, domain.LedgerSQLite, st.LedgerBackend)
	assert.Equal(t, "/var/lib/finder", st.SQLiteDir)
	assert.InDelta(t, 0.6, st.MinSimilarity, 1e-9)
	assert.True(t, time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC).Equal(st.SearchFrom))
	assert.Equal(t, 4, st.CrawlConcurrency)
	assert.True(t, st.IsExcluded("noise"))

	assert.Equal(t, domain.VariantOptions{IncludeInitials: true, IncludeFemaleForms: true}, st.Names)

	assert.Equal(t, "http://localhost:8081", st.Telegram.BridgeURL)
	assert.Equal(t, 100, st.Telegram.PageSize)
	assert.InDelta(t, 1.5, st.Telegram.RequestsPerSecond, 1e-9)
	assert.Equal(t, 3, st.Telegram.Burst)
	assert.Equal(t, 10*time.Second, st.Telegram.Timeout)

	assert.Equal(t, "http://localhost:5000/descriptors", st.Descriptor.URL)
	assert.Equal(t, time.Minute, st.Descriptor.Timeout)

	assert.Equal(t, 15*time.Second, st.Web.Timeout)
	assert.InDelta(t, 1.0, st.Web.RequestsPerSecond, 1e-9)
	assert.Equal(t, 2, st.Web.Burst)
	assert.Equal(t, "finder/1.0", st.Web.UserAgent)

	require.Len(t, st.Sources, 2)
	assert.Equal(t, domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}, st.Sources[0])
	assert.Equal(t, domain.SourceConfig{
		Name:    "board",
		Type:    domain.SourceWeb,
		BaseURL: "https://example.org/missing",
	}, st.Sources[1])
}

func TestSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", `ledger_backend = "postgres"`},
		{"bad date", `search_from = "yesterday"`},
		{"sources not tables", `sources = ["alpha"]`},
		{"source without name", "[[sources]]\ntype = \"telegram\""},
		{"duplicate source", "[[sources]]\nname = \"a\"\ntype = \"telegram\"\n[[sources]]\nname = \"a\"\ntype = \"telegram\""},
		{"web source without url", "[[sources]]\nname = \"w\"\ntype = \"web\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewConfigStore(writeConfig(t, tt.content))
			require.NoError(t, err)

			_, err = store.Settings()
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettings_UnknownSourceType(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, "[[sources]]\nname = \"x\"\ntype = \"rss\""))
	require.NoError(t, err)

	_, err = store.Settings()
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
