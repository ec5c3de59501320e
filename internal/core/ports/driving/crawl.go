package driving

import (
	"context"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// CrawlOrchestrator coordinates incremental channel crawls.
type CrawlOrchestrator interface {
	// Crawl runs one channel crawl. A second crawl of the same channel while
	// one is running fails with domain.ErrCrawlInProgress.
	Crawl(ctx context.Context, channel string, mode domain.CrawlMode) (*domain.CrawlReport, error)

	// CrawlAll crawls every configured source with bounded concurrency.
	// One channel's failure does not stop the others.
	CrawlAll(ctx context.Context, mode domain.CrawlMode) ([]domain.CrawlReport, error)

	// Status returns crawl status for a channel.
	Status(ctx context.Context, channel string) (*CrawlStatus, error)
}

// CrawlStatus represents the current state of a crawl.
type CrawlStatus struct {
	// Channel identifies the channel.
	Channel string

	// Running indicates if a crawl is currently in progress.
	Running bool

	// Batches is the count of batches flushed so far.
	Batches int

	// Appended is the count of records written so far.
	Appended int

	// Skipped is the count of items added to the skip set so far.
	Skipped int
}
