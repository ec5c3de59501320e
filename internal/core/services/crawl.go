package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driving"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// Ensure CrawlOrchestrator implements the interface.
var _ driving.CrawlOrchestrator = (*CrawlOrchestrator)(nil)

// CrawlOrchestrator drives incremental channel crawls into the cache.
type CrawlOrchestrator struct {
	cache     driven.CacheStore
	fetchers  map[domain.SourceType]driven.ItemFetcher
	extractor driven.DescriptorExtractor
	settings  domain.Settings

	// Status tracking
	mu     sync.RWMutex
	active map[string]*driving.CrawlStatus
}

// NewCrawlOrchestrator creates a crawl orchestrator.
// fetchers maps each source type to its fetch collaborator. The extractor is
// only required when face sources are configured.
func NewCrawlOrchestrator(
	cache driven.CacheStore,
	fetchers map[domain.SourceType]driven.ItemFetcher,
	extractor driven.DescriptorExtractor,
	settings domain.Settings,
) *CrawlOrchestrator {
	return &CrawlOrchestrator{
		cache:     cache,
		fetchers:  fetchers,
		extractor: extractor,
		settings:  settings,
		active:    make(map[string]*driving.CrawlStatus),
	}
}

// Crawl fetches new items of one configured channel, appends their records to
// the cache and flushes skipped ids after every batch. On error the returned
// report still describes the batches flushed so far. An Initial crawl that
// runs to the end marks the channel's backfill complete; until then Auto
// keeps resuming it below the low-water mark.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *CrawlOrchestrator) Crawl(ctx context.Context, channel string, mode domain.CrawlMode) (*domain.CrawlReport, error) {
	// 1. Resolve source and collaborators
	src, ok := o.settings.Source(channel)
	if !ok {
		return nil, fmt.Errorf("%w: source %q", domain.ErrNotFound, channel)
	}
	fetcher, ok := o.fetchers[src.Type]
	if !ok || fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher for %s", domain.ErrUnsupportedType, src.Type)
	}
	if src.Type.IsFace() && o.extractor == nil {
		return nil, fmt.Errorf("crawl %s: descriptor extractor not configured", channel)
	}

	// 2. One crawl per channel
	status, ok := o.begin(channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCrawlInProgress, channel)
	}
	defer o.end(channel)

	report := &domain.CrawlReport{Channel: channel, StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	// 3. Load crawl state
	seen, err := o.cache.LoadSeenIDs(ctx, channel)
	if err != nil {
		return report, fmt.Errorf("load seen ids: %w", err)
	}
	skipped, err := o.cache.LoadSkippedIDs(ctx, channel)
	if err != nil {
		return report, fmt.Errorf("load skipped ids: %w", err)
	}
	progress, err := o.cache.LoadProgress(ctx, channel)
	if err != nil {
		return report, fmt.Errorf("load progress: %w", err)
	}
	state := domain.SeenState{Channel: channel, SeenIDs: seen, SkippedIDs: skipped, Progress: progress}
	allSeen := state.AllSeen()

	report.Mode = resolveMode(mode, state)
	report.StartHWM = state.HighWaterMark()
	report.EndHWM = report.StartHWM

	cursor := domain.CrawlCursor{
		Mode:        report.Mode,
		StartFrom:   report.StartHWM,
		ResumeBelow: state.LowWaterMark(),
		MinDate:     o.settings.SearchFrom,
		Seen:        allSeen.Union(nil),
	}

	if report.Mode == domain.CrawlInitial {
		logger.Info("Starting initial crawl of %s below %s", channel, cursor.ResumeBelow)
	} else {
		logger.Info("Starting update crawl of %s from %s", channel, report.StartHWM)
	}

	// 4. Pull batches in fetch order
	it, err := fetcher.Fetch(ctx, channel, cursor)
	if err != nil {
		return report, fmt.Errorf("open fetch: %w", err)
	}
	defer it.Close()

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch, err := it.Next(ctx)
		if errors.Is(err, driven.ErrIteratorDone) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("fetch batch: %w", err)
		}

		records, newSkips, err := o.buildRecords(ctx, src.Type, cursor, batch, allSeen)
		if err != nil {
			return report, err
		}

		fresh := ProcessNewItems(records, allSeen)
		if len(fresh) > 0 {
			if err := o.cache.AppendRecords(ctx, channel, fresh); err != nil {
				return report, fmt.Errorf("append records: %w", err)
			}
		}
		if newSkips.Len() > 0 {
			skipped.AddAll(newSkips)
			allSeen.AddAll(newSkips)
			if err := o.cache.SaveSkippedIDs(ctx, channel, skipped); err != nil {
				return report, fmt.Errorf("save skipped ids: %w", err)
			}
		}

		report.Batches++
		report.Appended += len(fresh)
		report.Skipped += newSkips.Len()
		if hwm, ok := allSeen.Max(); ok {
			report.EndHWM = hwm
		}
		o.updateStatus(status, report)

		logger.Debug("%s: batch %d, %d fetched, %d appended, %d skipped",
			channel, report.Batches, len(batch), len(fresh), newSkips.Len())
	}

	if report.Mode == domain.CrawlInitial && !progress.InitialComplete {
		progress = domain.CrawlProgress{InitialComplete: true, InitialCompletedAt: time.Now().UTC()}
		if err := o.cache.SaveProgress(ctx, channel, progress); err != nil {
			return report, fmt.Errorf("save progress: %w", err)
		}
	}

	logger.Info("Crawl of %s complete: %d records, %d skipped, high-water mark %s",
		channel, report.Appended, report.Skipped, report.EndHWM)
	return report, nil
}

// CrawlAll crawls every configured source, at most crawl_concurrency at a time.
// Reports are returned in configuration order. Failed channels carry an Err
// wrapping ErrChannelCrawlFailure and are joined into the returned error.
func (o *CrawlOrchestrator) CrawlAll(ctx context.Context, mode domain.CrawlMode) ([]domain.CrawlReport, error) {
	sources := o.settings.Sources
	reports := make([]domain.CrawlReport, len(sources))

	limit := o.settings.CrawlConcurrency
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, src := range sources {
		g.Go(func() error {
			report, err := o.Crawl(ctx, src.Name, mode)
			if report == nil {
				report = &domain.CrawlReport{Channel: src.Name, Mode: mode}
			}
			if err != nil {
				report.Err = fmt.Errorf("%w: %s: %w", domain.ErrChannelCrawlFailure, src.Name, err)
				logger.Error(err, "Crawl of %s failed", src.Name)
			}
			reports[i] = *report
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range reports {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return reports, errors.Join(errs...)
}

// Status returns crawl status for a channel.
func (o *CrawlOrchestrator) Status(_ context.Context, channel string) (*driving.CrawlStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.active[channel]; ok {
		// Return a copy to avoid race conditions
		copied := *status
		return &copied, nil
	}

	// Not running - return idle status
	return &driving.CrawlStatus{Channel: channel}, nil
}

// buildRecords turns a fetched batch into cache records and new skip ids.
// Items already seen or skipped are ignored. Items the source or the
// extractor rejects are skipped; an outage fails the whole batch so nothing
// of it is flushed.
func (o *CrawlOrchestrator) buildRecords(
	ctx context.Context,
	sourceType domain.SourceType,
	cursor domain.CrawlCursor,
	batch []domain.FetchedItem,
	allSeen domain.IDSet,
) ([]domain.CacheRecord, domain.IDSet, error) {
	var records []domain.CacheRecord
	skips := domain.NewIDSet()

	for _, item := range batch {
		if item.ID.IsZero() || allSeen.Has(item.ID) || skips.Has(item.ID) {
			continue
		}
		if item.Err != nil {
			if isTransient(item.Err) {
				return nil, nil, fmt.Errorf("fetch item %s: %w", item.ID, item.Err)
			}
			logger.Warn("Fetch of item %s failed: %v", item.ID, item.Err)
			skips.Add(item.ID)
			continue
		}
		if cursor.Mode == domain.CrawlInitial && !item.Timestamp.IsZero() && item.Timestamp.Before(cursor.MinDate) {
			continue
		}

		if !sourceType.IsFace() {
			if item.Text == "" {
				skips.Add(item.ID)
				continue
			}
			records = append(records, domain.CacheRecord{
				SourceID:  item.ID,
				SourceURL: item.URL,
				Timestamp: item.Timestamp,
				Text:      item.Text,
			})
			continue
		}

		faces, err := o.extractFaces(ctx, item)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			if isTransient(err) {
				return nil, nil, fmt.Errorf("item %s: %w", item.ID, err)
			}
			logger.Warn("Face extraction for item %s failed: %v", item.ID, err)
		}
		if len(faces) == 0 {
			skips.Add(item.ID)
			continue
		}
		for i, d := range faces {
			records = append(records, domain.CacheRecord{
				SourceID:   item.ID,
				SourceURL:  item.URL,
				Timestamp:  item.Timestamp,
				FaceIndex:  i,
				Descriptor: d,
				Text:       item.Text,
			})
		}
	}
	return records, skips, nil
}

// extractFaces returns the valid descriptors of an item's image.
func (o *CrawlOrchestrator) extractFaces(ctx context.Context, item domain.FetchedItem) ([]domain.Descriptor, error) {
	if len(item.Image) == 0 {
		return nil, nil
	}
	descriptors, err := o.extractor.Extract(ctx, item.Image)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	var valid []domain.Descriptor
	for _, d := range descriptors {
		if err := ValidateDescriptor(d); err != nil {
			logger.Debug("Dropping face of item %s: %v", item.ID, err)
			continue
		}
		valid = append(valid, d)
	}
	return valid, nil
}

func resolveMode(mode domain.CrawlMode, state domain.SeenState) domain.CrawlMode {
	if mode != domain.CrawlAuto && mode != "" {
		return mode
	}
	if !state.Progress.InitialComplete {
		return domain.CrawlInitial
	}
	return domain.CrawlUpdate
}

// isTransient reports whether err is a collaborator outage rather than a
// rejection of one item.
func isTransient(err error) bool {
	return errors.Is(err, domain.ErrSourceUnavailable) || errors.Is(err, domain.ErrRateLimited)
}

func (o *CrawlOrchestrator) begin(channel string) (*driving.CrawlStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.active[channel]; running {
		return nil, false
	}
	status := &driving.CrawlStatus{Channel: channel, Running: true}
	o.active[channel] = status
	return status, true
}

func (o *CrawlOrchestrator) updateStatus(status *driving.CrawlStatus, report *domain.CrawlReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status.Batches = report.Batches
	status.Appended = report.Appended
	status.Skipped = report.Skipped
}

func (o *CrawlOrchestrator) end(channel string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, channel)
}
