package driven

import (
	"context"
	"errors"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// ErrIteratorDone is returned by BatchIterator.Next when no batches remain.
var ErrIteratorDone = errors.New("no more batches")

// ItemFetcher produces new items of a channel since a resume cursor.
// Each source type (telegram, web) has its own implementation.
//
// Batches are flushed as they arrive, so their order is what makes a crash
// safe. Update batches ascend: every batch holds only items newer than the
// previous one. Initial batches descend from the cursor's ResumeBelow mark.
type ItemFetcher interface {
	// Fetch opens a lazy, finite, non-restartable batch sequence.
	Fetch(ctx context.Context, channel string, cursor domain.CrawlCursor) (BatchIterator, error)
}

// BatchIterator yields batches one at a time. Every call to Next may block on
// the network. Outages wrap domain.ErrSourceUnavailable and fail Next; an
// item the source refuses is reported through FetchedItem.Err instead.
type BatchIterator interface {
	// Next returns the next batch or ErrIteratorDone.
	Next(ctx context.Context) ([]domain.FetchedItem, error)

	// Close releases resources. Safe to call more than once.
	Close() error
}

// DescriptorExtractor detects faces in an image.
type DescriptorExtractor interface {
	// Extract returns one descriptor per detected face, best face first.
	// An image without faces returns an empty slice and no error. An image
	// the service refuses wraps domain.ErrInvalidInput; an outage wraps
	// domain.ErrSourceUnavailable.
	Extract(ctx context.Context, image []byte) ([]domain.Descriptor, error)
}

// MessageLookup fetches original channel messages by id.
type MessageLookup interface {
	// Lookup returns the messages that still exist; missing ids are omitted.
	Lookup(ctx context.Context, channel string, ids []domain.ItemID) ([]domain.Message, error)
}
