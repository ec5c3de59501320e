package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driven/storage/memory"
	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
)

// --- Mock implementations for crawl testing ---

// crawlMockFetcher implements driven.ItemFetcher with canned batches.
type crawlMockFetcher struct {
	mu       sync.Mutex
	batches  map[string][][]domain.FetchedItem
	fetchErr map[string]error
	cursors  []domain.CrawlCursor
	gate     chan struct{}
}

func newCrawlMockFetcher() *crawlMockFetcher {
	return &crawlMockFetcher{
		batches:  make(map[string][][]domain.FetchedItem),
		fetchErr: make(map[string]error),
	}
}

func (f *crawlMockFetcher) Fetch(_ context.Context, channel string, cursor domain.CrawlCursor) (driven.BatchIterator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, cursor)
	if err := f.fetchErr[channel]; err != nil {
		return nil, err
	}
	return &crawlMockIterator{batches: f.batches[channel], gate: f.gate}, nil
}

func (f *crawlMockFetcher) lastCursor() domain.CrawlCursor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursors[len(f.cursors)-1]
}

type crawlMockIterator struct {
	batches [][]domain.FetchedItem
	pos     int
	gate    chan struct{}
	closed  bool
}

func (it *crawlMockIterator) Next(ctx context.Context) ([]domain.FetchedItem, error) {
	if it.gate != nil {
		select {
		case <-it.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if it.pos >= len(it.batches) {
		return nil, driven.ErrIteratorDone
	}
	b := it.batches[it.pos]
	it.pos++
	return b, nil
}

func (it *crawlMockIterator) Close() error {
	it.closed = true
	return nil
}

// crawlMockExtractor returns descriptors keyed by the image content.
type crawlMockExtractor struct {
	faces map[string][]domain.Descriptor
	errs  map[string]error
}

func (e *crawlMockExtractor) Extract(_ context.Context, image []byte) ([]domain.Descriptor, error) {
	if err := e.errs[string(image)]; err != nil {
		return nil, err
	}
	return e.faces[string(image)], nil
}

func crawlSettings(sources ...domain.SourceConfig) domain.Settings {
	s := domain.DefaultSettings()
	s.Sources = sources
	return s
}

func item(id string, image string) domain.FetchedItem {
	return domain.FetchedItem{
		ID:        domain.ItemID(id),
		Timestamp: time.Date(2023, time.March, 1, 10, 0, 0, 0, time.UTC),
		URL:       "https://t.me/alpha/" + id,
		Image:     []byte(image),
	}
}

func newFaceExtractor() *crawlMockExtractor {
	return &crawlMockExtractor{
		faces: map[string][]domain.Descriptor{
			"one":  {{0.1, 0.2}},
			"two":  {{0.1, 0.2}, {0.3, 0.4}},
			"none": nil,
		},
		errs: map[string]error{"broken": errors.New("decode failed")},
	}
}

func TestCrawlOrchestrator_NullDescriptorScenario(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{
		item("201", "one"),
		item("202", "none"),
		{ID: "203", Err: errors.New("timeout")},
	}}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))

	report, err := o.Crawl(context.Background(), "alpha", domain.CrawlAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlInitial, report.Mode)
	assert.Equal(t, 1, report.Appended)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, domain.ItemID("203"), report.EndHWM)

	seen, err := cache.LoadSeenIDs(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemID{"201"}, seen.Sorted())

	skipped, err := cache.LoadSkippedIDs(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemID{"202", "203"}, skipped.Sorted())

	state := domain.SeenState{SeenIDs: seen, SkippedIDs: skipped}
	assert.Equal(t, domain.ItemID("203"), state.HighWaterMark())
}

func TestCrawlOrchestrator_MultipleFacesAndExtractionErrors(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{
		{item("1", "two"), item("2", "broken")},
		{item("3", ""), item("1", "two")},
	}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))

	report, err := o.Crawl(context.Background(), "alpha", domain.CrawlInitial)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 2, report.Appended)
	assert.Equal(t, 2, report.Skipped)

	var faces []int
	err = cache.ScanRecords(context.Background(), "alpha", 2023, func(r domain.CacheRecord) error {
		faces = append(faces, r.FaceIndex)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, faces)
}

func TestCrawlOrchestrator_MonotonicResume(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{item("10", "one"), item("11", "none")}}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))
	ctx := context.Background()

	first, err := o.Crawl(ctx, "alpha", domain.CrawlAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemID("0"), first.StartHWM)
	assert.Equal(t, domain.ItemID("11"), first.EndHWM)

	// The next run resumes from the high-water mark and re-yielded items are ignored.
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{item("10", "one"), item("12", "one")}}
	second, err := o.Crawl(ctx, "alpha", domain.CrawlAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlUpdate, second.Mode)
	assert.Equal(t, domain.ItemID("11"), second.StartHWM)
	assert.Equal(t, domain.ItemID("12"), second.EndHWM)
	assert.Equal(t, 1, second.Appended)

	cursor := fetcher.lastCursor()
	assert.Equal(t, domain.CrawlUpdate, cursor.Mode)
	assert.Equal(t, domain.ItemID("11"), cursor.StartFrom)
	assert.True(t, cursor.Seen.Has("10"))
	assert.True(t, cursor.Seen.Has("11"))
	assert.True(t, second.EndHWM.Compare(second.StartHWM) >= 0)
}

func TestCrawlOrchestrator_ExtractorOutageAbortsWithoutSkipping(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{
		{item("104", "photo"), item("103", "photo")},
		{item("102", "photo"), item("101", "photo")},
	}
	extractor := &crawlMockExtractor{
		faces: map[string][]domain.Descriptor{"photo": {{0.1, 0.2}}},
		errs: map[string]error{
			"photo": fmt.Errorf("%w: dial tcp: connection refused", domain.ErrSourceUnavailable),
		},
	}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		extractor,
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))
	ctx := context.Background()

	report, err := o.Crawl(ctx, "alpha", domain.CrawlAuto)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Equal(t, 0, report.Skipped)

	skipped, err := cache.LoadSkippedIDs(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 0, skipped.Len())

	// The service is back: the same items are fetched again and cached.
	delete(extractor.errs, "photo")
	report, err = o.Crawl(ctx, "alpha", domain.CrawlAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlInitial, report.Mode)
	assert.Equal(t, 4, report.Appended)
	assert.Equal(t, 0, report.Skipped)
}

func TestCrawlOrchestrator_RejectedImageIsSkipped(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{item("1", "gif"), item("2", "one")}}
	extractor := newFaceExtractor()
	extractor.errs["gif"] = fmt.Errorf("%w: descriptor service (status 415)", domain.ErrInvalidInput)

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		extractor,
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))

	report, err := o.Crawl(context.Background(), "alpha", domain.CrawlInitial)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Appended)
	assert.Equal(t, 1, report.Skipped)
}

func TestCrawlOrchestrator_ItemOutageAbortsBatch(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{
		{item("3", "one")},
		{item("2", "one"), {ID: "1", Err: fmt.Errorf("%w: media", domain.ErrRateLimited)}},
	}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))
	ctx := context.Background()

	report, err := o.Crawl(ctx, "alpha", domain.CrawlInitial)
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, report.Batches)

	seen, err := cache.LoadSeenIDs(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemID{"3"}, seen.Sorted())

	skipped, err := cache.LoadSkippedIDs(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 0, skipped.Len())
}

func TestCrawlOrchestrator_AutoResumesUnfinishedInitial(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{item("110", "one"), item("109", "none")}}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))
	ctx := context.Background()

	// Interrupt the backfill after its first batch.
	fetcher.batches["alpha"] = append(fetcher.batches["alpha"], []domain.FetchedItem{
		{ID: "108", Err: fmt.Errorf("%w: bridge down", domain.ErrSourceUnavailable)},
	})
	_, err := o.Crawl(ctx, "alpha", domain.CrawlAuto)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	fetcher.batches["alpha"] = [][]domain.FetchedItem{{item("108", "one"), item("107", "one")}}
	report, err := o.Crawl(ctx, "alpha", domain.CrawlAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlInitial, report.Mode)
	assert.Equal(t, 2, report.Appended)

	cursor := fetcher.lastCursor()
	assert.Equal(t, domain.CrawlInitial, cursor.Mode)
	assert.Equal(t, domain.ItemID("109"), cursor.ResumeBelow)
	assert.Equal(t, domain.ItemID("110"), cursor.StartFrom)

	progress, err := cache.LoadProgress(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, progress.InitialComplete)
	assert.False(t, progress.InitialCompletedAt.IsZero())

	fetcher.batches["alpha"] = nil
	report, err = o.Crawl(ctx, "alpha", domain.CrawlAuto)
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlUpdate, report.Mode)
}

func TestCrawlOrchestrator_FailedInitialStaysUnfinished(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.fetchErr["alpha"] = domain.ErrSourceUnavailable

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))

	_, err := o.Crawl(context.Background(), "alpha", domain.CrawlInitial)
	require.Error(t, err)

	progress, err := cache.LoadProgress(context.Background(), "alpha")
	require.NoError(t, err)
	assert.False(t, progress.InitialComplete)
}

func TestCrawlOrchestrator_InitialModeIgnoresOldItems(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	old := item("5", "one")
	old.Timestamp = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{old, item("6", "one")}}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))

	report, err := o.Crawl(context.Background(), "alpha", domain.CrawlInitial)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Appended)
	assert.Equal(t, 0, report.Skipped)

	seen, _ := cache.LoadSeenIDs(context.Background(), "alpha")
	assert.False(t, seen.Has("5"))
}

func TestCrawlOrchestrator_TextSource(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	ts := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)
	fetcher.batches["news"] = [][]domain.FetchedItem{{
		{ID: "ivan-petrenko", URL: "https://news.example/ivan-petrenko/", Timestamp: ts, Text: "Петренко Іван"},
		{ID: "empty-card", URL: "https://news.example/empty-card/", Timestamp: ts},
	}}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceWeb: fetcher},
		nil,
		crawlSettings(domain.SourceConfig{Name: "news", Type: domain.SourceWeb, BaseURL: "https://news.example"}))

	report, err := o.Crawl(context.Background(), "news", domain.CrawlAuto)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Appended)
	assert.Equal(t, 1, report.Skipped)

	var texts []string
	_ = cache.ScanRecords(context.Background(), "news", 2024, func(r domain.CacheRecord) error {
		texts = append(texts, r.Text)
		assert.False(t, r.HasDescriptor())
		return nil
	})
	assert.Equal(t, []string{"Петренко Іван"}, texts)
}

func TestCrawlOrchestrator_UnknownChannel(t *testing.T) {
	o := NewCrawlOrchestrator(memory.NewCacheStore(), nil, nil, crawlSettings())
	_, err := o.Crawl(context.Background(), "ghost", domain.CrawlAuto)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCrawlOrchestrator_RejectsConcurrentCrawlOfSameChannel(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.gate = make(chan struct{})
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{item("1", "one")}}

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := o.Crawl(ctx, "alpha", domain.CrawlAuto)
		done <- err
	}()

	require.Eventually(t, func() bool {
		status, _ := o.Status(ctx, "alpha")
		return status.Running
	}, time.Second, 5*time.Millisecond)

	_, err := o.Crawl(ctx, "alpha", domain.CrawlAuto)
	assert.ErrorIs(t, err, domain.ErrCrawlInProgress)

	close(fetcher.gate)
	require.NoError(t, <-done)

	status, err := o.Status(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, status.Running)
}

func TestCrawlOrchestrator_CancelledContext(t *testing.T) {
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{item("1", "one")}}
	o := NewCrawlOrchestrator(memory.NewCacheStore(),
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.Crawl(ctx, "alpha", domain.CrawlAuto)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Batches)
}

func TestCrawlOrchestrator_CrawlAllIsolatesFailures(t *testing.T) {
	cache := memory.NewCacheStore()
	fetcher := newCrawlMockFetcher()
	fetcher.batches["alpha"] = [][]domain.FetchedItem{{item("1", "one")}}
	fetcher.fetchErr["beta"] = domain.ErrSourceUnavailable

	o := NewCrawlOrchestrator(cache,
		map[domain.SourceType]driven.ItemFetcher{domain.SourceTelegram: fetcher},
		newFaceExtractor(),
		crawlSettings(
			domain.SourceConfig{Name: "alpha", Type: domain.SourceTelegram},
			domain.SourceConfig{Name: "beta", Type: domain.SourceTelegram},
		))

	reports, err := o.CrawlAll(context.Background(), domain.CrawlAuto)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChannelCrawlFailure)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)

	require.Len(t, reports, 2)
	assert.Equal(t, "alpha", reports[0].Channel)
	assert.NoError(t, reports[0].Err)
	assert.Equal(t, 1, reports[0].Appended)
	assert.Equal(t, "beta", reports[1].Channel)
	assert.ErrorIs(t, reports[1].Err, domain.ErrChannelCrawlFailure)
}
