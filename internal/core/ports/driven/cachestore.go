package driven

import (
	"context"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// CacheStore persists channel records and crawl progress.
// It exclusively owns CacheRecord and SeenState persistence; the match engine
// only reads through it.
type CacheStore interface {
	// ListChannels returns every cached channel, sorted by name.
	ListChannels(ctx context.Context) ([]string, error)

	// ListYears returns the year partitions of a channel in ascending order.
	ListYears(ctx context.Context, channel string) ([]int, error)

	// LoadSeenIDs returns every source id written to the channel's cache.
	// Malformed records are logged and skipped.
	LoadSeenIDs(ctx context.Context, channel string) (domain.IDSet, error)

	// LoadSkippedIDs returns the channel's skip set. A missing set is empty.
	LoadSkippedIDs(ctx context.Context, channel string) (domain.IDSet, error)

	// AppendRecords appends records to their year partitions.
	// Callers dedup with services.ProcessNewItems first; the store does not.
	AppendRecords(ctx context.Context, channel string, records []domain.CacheRecord) error

	// SaveSkippedIDs overwrites the channel's skip set.
	SaveSkippedIDs(ctx context.Context, channel string, ids domain.IDSet) error

	// LoadProgress returns the channel's crawl progress. A missing or
	// unreadable progress file is the zero value.
	LoadProgress(ctx context.Context, channel string) (domain.CrawlProgress, error)

	// SaveProgress overwrites the channel's crawl progress.
	SaveProgress(ctx context.Context, channel string, progress domain.CrawlProgress) error

	// ScanRecords streams one year partition in write order.
	// Malformed records are logged and skipped. A non-nil error from fn stops
	// the scan and is returned.
	ScanRecords(ctx context.Context, channel string, year int, fn func(domain.CacheRecord) error) error
}
