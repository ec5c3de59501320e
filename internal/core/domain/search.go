package domain

import "time"

// FaceQuery configures a face match scan.
type FaceQuery struct {
	// QueryID scopes the review ledger; reviewed ids of this query are excluded.
	QueryID string

	// MinSimilarity is the inclusive similarity threshold. Nil uses the
	// configured default; any set value, zero and negatives included, is used
	// as given.
	MinSimilarity *float64

	// MinYear limits the scan to year partitions >= MinYear. Zero scans all years.
	MinYear int
}

// Threshold returns the query threshold, or def when none was set.
func (q FaceQuery) Threshold(def float64) float64 {
	if q.MinSimilarity == nil {
		return def
	}
	return *q.MinSimilarity
}

// TextQuery configures a name text scan.
type TextQuery struct {
	// QueryID scopes the review ledger.
	QueryID string

	// MinYear limits the scan to year partitions >= MinYear. Zero scans all years.
	MinYear int
}

// FaceMatch is one cached face whose similarity met the threshold.
type FaceMatch struct {
	Channel    string    `json:"channel"`
	SourceID   ItemID    `json:"sourceId"`
	SourceURL  string    `json:"sourceUrl"`
	FaceIndex  int       `json:"faceIndex"`
	Similarity float64   `json:"similarity"`
	Year       int       `json:"year,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	// Text is the original message text attached by enrichment; empty when
	// the message could not be fetched.
	Text string `json:"text,omitempty"`
}

// TextMatch is one cached text that matched a name variant.
type TextMatch struct {
	Channel        string    `json:"channel"`
	SourceID       ItemID    `json:"sourceId"`
	SourceURL      string    `json:"sourceUrl"`
	Year           int       `json:"year,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	MatchedVariant string    `json:"matchedVariant"`
	Excerpt        string    `json:"excerpt"`
	Text           string    `json:"text"`
}

// ChannelFaceMatches groups face matches by channel.
type ChannelFaceMatches map[string][]FaceMatch

// ChannelTextMatches groups text matches by channel.
type ChannelTextMatches map[string][]TextMatch

// Total returns the number of matches across all channels.
func (m ChannelFaceMatches) Total() int {
	n := 0
	for _, matches := range m {
		n += len(matches)
	}
	return n
}

// Total returns the number of matches across all channels.
func (m ChannelTextMatches) Total() int {
	n := 0
	for _, matches := range m {
		n += len(matches)
	}
	return n
}
