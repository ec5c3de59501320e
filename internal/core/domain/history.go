package domain

import "time"

// SearchKind distinguishes image and text searches in the history log.
type SearchKind string

const (
	// SearchImage is a face search by image.
	SearchImage SearchKind = "image"

	// SearchText is a name text search.
	SearchText SearchKind = "text"
)

// SearchSession is one entry of the global search history.
type SearchSession struct {
	ID        string     `json:"id,omitempty"`
	Type      SearchKind `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	Query     string     `json:"query"`
	QueryID   string     `json:"queryId,omitempty"`
	Channels  ChannelIDs `json:"channels"`
}
