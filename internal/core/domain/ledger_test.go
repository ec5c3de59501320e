package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewLedger_RecordAndMark(t *testing.T) {
	l := NewReviewLedger()
	l.RecordSearch("q1", ChannelIDs{"alpha": {"101"}})

	assert.Equal(t, []ItemID{"101"}, l.Searched["q1"]["alpha"])
	assert.Equal(t, []ItemID{"101"}, l.Unreviewed["q1"]["alpha"])
	assert.Nil(t, l.Reviewed["q1"])

	l.MarkReviewed("q1", "alpha", []ItemID{"101"})
	assert.Equal(t, []ItemID{"101"}, l.Reviewed["q1"]["alpha"])
	assert.Empty(t, l.Unreviewed["q1"]["alpha"])
	assert.True(t, l.ReviewedIDs("q1", "alpha").Has("101"))
}

func TestReviewLedger_SortsAndDedups(t *testing.T) {
	l := NewReviewLedger()
	l.RecordSearch("q1", ChannelIDs{"alpha": {"20", "3", "20", "100"}})
	assert.Equal(t, []ItemID{"3", "20", "100"}, l.Searched["q1"]["alpha"])
}

func TestReviewLedger_Normalize(t *testing.T) {
	l := &ReviewLedger{
		Searched:   QueryChannelIDs{"q": {"a": {"1", "2", "2"}}},
		Reviewed:   QueryChannelIDs{"q": {"a": {"2"}}},
		Unreviewed: QueryChannelIDs{"q": {"a": {"2"}}},
	}
	l.Normalize()

	assert.Equal(t, []ItemID{"1", "2"}, l.Searched["q"]["a"])
	assert.Equal(t, []ItemID{"2"}, l.Reviewed["q"]["a"])
	assert.Equal(t, []ItemID{"1"}, l.Unreviewed["q"]["a"])
}

func TestReviewLedger_NilSafe(t *testing.T) {
	var l *ReviewLedger
	assert.Equal(t, 0, l.ReviewedIDs("q", "a").Len())
	assert.NotNil(t, l.Clone())

	empty := &ReviewLedger{}
	empty.MarkReviewed("q", "a", []ItemID{"1"})
	assert.Equal(t, []ItemID{"1"}, empty.Reviewed["q"]["a"])
}

func TestReviewLedger_CloneIsDeep(t *testing.T) {
	l := NewReviewLedger()
	l.RecordSearch("q1", ChannelIDs{"alpha": {"1"}})

	c := l.Clone()
	c.Searched["q1"]["alpha"][0] = "999"
	assert.Equal(t, ItemID("1"), l.Searched["q1"]["alpha"][0])
}

func TestReviewLedger_JSONRoundTrip(t *testing.T) {
	l := NewReviewLedger()
	l.RecordSearch("q1", ChannelIDs{"alpha": {"101", "102"}, "news": {"ivan-petrenko"}})
	l.MarkReviewed("q1", "alpha", []ItemID{"101"})

	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"searchedMessages"`)
	assert.Contains(t, string(data), `"reviewedMessages"`)
	assert.Contains(t, string(data), `"unreviewedMessages"`)
	assert.Contains(t, string(data), `[101,102]`)

	var back ReviewLedger
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, l, &back)
}

func TestReviewLedger_ReadsOriginalFormat(t *testing.T) {
	raw := `{
		"searchedMessages": {"q1": {"alpha": [101, 102]}},
		"reviewedMessages": {"q1": {"alpha": [101]}},
		"unreviewedMessages": {}
	}`
	var l ReviewLedger
	require.NoError(t, json.Unmarshal([]byte(raw), &l))
	l.Normalize()

	assert.Equal(t, []ItemID{"102"}, l.Unreviewed["q1"]["alpha"])
}
