package domain

import "time"

// Descriptor is a fixed-length face embedding produced by the extractor.
type Descriptor []float32

// CacheRecord is one cached face or text card of a channel.
// (SourceID, FaceIndex) is unique within a channel. Records are append-only.
type CacheRecord struct {
	// SourceID is the source-specific item id, derivable from SourceURL.
	SourceID ItemID

	// SourceURL is the canonical permalink of the original item.
	SourceURL string

	// Timestamp is the capture date of the original item, not the caching time.
	// It selects the year partition.
	Timestamp time.Time

	// FaceIndex disambiguates multiple faces found in one item.
	FaceIndex int

	// Descriptor is the face embedding; nil for text records.
	Descriptor Descriptor

	// Text is the card title or message caption; may be empty for face records.
	Text string
}

// Year returns the partition year of the record.
func (r CacheRecord) Year() int {
	return r.Timestamp.UTC().Year()
}

// HasDescriptor reports whether the record carries a face embedding.
func (r CacheRecord) HasDescriptor() bool {
	return len(r.Descriptor) > 0
}

// RecordKey is the unique key of a record within a channel.
type RecordKey struct {
	SourceID  ItemID
	FaceIndex int
}

// Key returns the record's unique key.
func (r CacheRecord) Key() RecordKey {
	return RecordKey{SourceID: r.SourceID, FaceIndex: r.FaceIndex}
}

// FetchedItem is a raw item produced by a fetch collaborator.
type FetchedItem struct {
	// ID is the item id within the channel.
	ID ItemID

	// Timestamp is the item's capture date.
	Timestamp time.Time

	// URL is the item's permalink.
	URL string

	// Image holds media bytes for face sources; nil when the item has no media.
	Image []byte

	// Text is the message text or card title.
	Text string

	// Err marks a failed fetch of this single item.
	Err error
}

// Message is an original channel message used to enrich matches.
type Message struct {
	ID   ItemID
	Text string
	Date time.Time
}
