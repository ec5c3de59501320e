package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu       sync.RWMutex
	channels map[string]*channelCache
}

type channelCache struct {
	years    map[int][]domain.CacheRecord
	skipped  domain.IDSet
	progress domain.CrawlProgress
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		channels: make(map[string]*channelCache),
	}
}

// ListChannels returns every channel with records or a skip set.
func (s *CacheStore) ListChannels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.channels)), nil
}

// ListYears returns the year partitions of a channel.
func (s *CacheStore) ListYears(_ context.Context, channel string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.channels[channel]
	if !ok {
		return []int{}, nil
	}
	return slices.Sorted(maps.Keys(c.years)), nil
}

// LoadSeenIDs returns every cached source id of a channel.
func (s *CacheStore) LoadSeenIDs(_ context.Context, channel string) (domain.IDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := domain.NewIDSet()
	if c, ok := s.channels[channel]; ok {
		for _, records := range c.years {
			for _, r := range records {
				ids.Add(r.SourceID)
			}
		}
	}
	return ids, nil
}

// LoadSkippedIDs returns a copy of the channel's skip set.
func (s *CacheStore) LoadSkippedIDs(_ context.Context, channel string) (domain.IDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := domain.NewIDSet()
	if c, ok := s.channels[channel]; ok {
		ids.AddAll(c.skipped)
	}
	return ids, nil
}

// AppendRecords appends records to their year partitions.
func (s *CacheStore) AppendRecords(_ context.Context, channel string, records []domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channel(channel)
	for _, r := range records {
		r.Descriptor = slices.Clone(r.Descriptor)
		c.years[r.Year()] = append(c.years[r.Year()], r)
	}
	return nil
}

// SaveSkippedIDs replaces the channel's skip set.
func (s *CacheStore) SaveSkippedIDs(_ context.Context, channel string, ids domain.IDSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.channel(channel)
	c.skipped = domain.NewIDSet()
	c.skipped.AddAll(ids)
	return nil
}

// LoadProgress returns the channel's crawl progress.
func (s *CacheStore) LoadProgress(_ context.Context, channel string) (domain.CrawlProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.channels[channel]; ok {
		return c.progress, nil
	}
	return domain.CrawlProgress{}, nil
}

// SaveProgress replaces the channel's crawl progress.
func (s *CacheStore) SaveProgress(_ context.Context, channel string, progress domain.CrawlProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel(channel).progress = progress
	return nil
}

// ScanRecords calls fn for every record of one year in append order.
func (s *CacheStore) ScanRecords(
	ctx context.Context, channel string, year int, fn func(domain.CacheRecord) error,
) error {
	s.mu.RLock()
	var records []domain.CacheRecord
	if c, ok := s.channels[channel]; ok {
		records = slices.Clone(c.years[year])
	}
	s.mu.RUnlock()

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *CacheStore) channel(name string) *channelCache {
	c, ok := s.channels[name]
	if !ok {
		c = &channelCache{
			years:   make(map[int][]domain.CacheRecord),
			skipped: domain.NewIDSet(),
		}
		s.channels[name] = c
	}
	return c
}
