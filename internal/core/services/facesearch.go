package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driving"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// Ensure FaceSearchService implements the interface.
var _ driving.FaceSearcher = (*FaceSearchService)(nil)

// LedgerReader reads the review ledger. ReviewService satisfies it.
type LedgerReader interface {
	Ledger(ctx context.Context) (*domain.ReviewLedger, error)
}

// FaceSearchService scans cached face descriptors for a query face.
type FaceSearchService struct {
	cache     driven.CacheStore
	reviews   LedgerReader
	extractor driven.DescriptorExtractor
	messages  driven.MessageLookup
	settings  domain.Settings
}

// NewFaceSearchService creates a face search service.
// The extractor is only needed by SearchByImage and may be nil.
func NewFaceSearchService(
	cache driven.CacheStore,
	reviews LedgerReader,
	extractor driven.DescriptorExtractor,
	settings domain.Settings,
) *FaceSearchService {
	return &FaceSearchService{
		cache:     cache,
		reviews:   reviews,
		extractor: extractor,
		settings:  settings,
	}
}

// SetMessageLookup enables enrichment of matches with the original message text.
func (s *FaceSearchService) SetMessageLookup(lookup driven.MessageLookup) {
	s.messages = lookup
}

// SearchByImage extracts the best face of image and runs FindMatches with it.
func (s *FaceSearchService) SearchByImage(
	ctx context.Context, image []byte, q domain.FaceQuery,
) (domain.ChannelFaceMatches, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("search by image: descriptor extractor not configured")
	}
	descriptors, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract descriptor: %w", err)
	}
	if len(descriptors) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	return s.FindMatches(ctx, descriptors[0], q)
}

// FindMatches returns, per channel, every cached face at least as similar as
// the threshold, best first. Ids already reviewed for the query are excluded.
// A failing channel is logged and left out; the others are still scanned.
func (s *FaceSearchService) FindMatches(
	ctx context.Context, descriptor domain.Descriptor, q domain.FaceQuery,
) (domain.ChannelFaceMatches, error) {
	if err := ValidateDescriptor(descriptor); err != nil {
		return nil, err
	}
	threshold := q.Threshold(s.settings.MinSimilarity)

	logger.Section("Face Search")
	logger.Debug("Query %q, threshold %.2f, from year %d", q.QueryID, threshold, q.MinYear)

	reviewed, err := loadReviewed(ctx, s.reviews, q.QueryID)
	if err != nil {
		return nil, err
	}
	channels, err := s.cache.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	out := make(domain.ChannelFaceMatches)
	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if s.settings.IsExcluded(channel) {
			continue
		}

		matches, err := s.scanChannel(ctx, channel, descriptor, threshold, q.MinYear, reviewed(channel))
		if err != nil {
			logger.Warn("Face search in %s failed: %v", channel, err)
			continue
		}
		if len(matches) == 0 {
			continue
		}

		slices.SortStableFunc(matches, func(a, b domain.FaceMatch) int {
			return cmp.Compare(b.Similarity, a.Similarity)
		})
		s.enrich(ctx, channel, matches)
		out[channel] = matches
	}

	logger.Info("Face search found %d matches in %d channels", out.Total(), len(out))
	return out, nil
}

func (s *FaceSearchService) scanChannel(
	ctx context.Context,
	channel string,
	descriptor domain.Descriptor,
	threshold float64,
	minYear int,
	reviewed domain.IDSet,
) ([]domain.FaceMatch, error) {
	var matches []domain.FaceMatch
	err := scanChannel(ctx, s.cache, channel, minYear, func(rec domain.CacheRecord) error {
		if !rec.HasDescriptor() || reviewed.Has(rec.SourceID) {
			return nil
		}
		sim, err := Similarity(descriptor, rec.Descriptor)
		if err != nil {
			logger.Warn("%s: record %s: %v", channel, rec.SourceID, fmt.Errorf("%w: %w", domain.ErrCacheCorruption, err))
			return nil
		}
		if !IsMatch(sim, threshold) {
			return nil
		}
		matches = append(matches, domain.FaceMatch{
			Channel:    channel,
			SourceID:   rec.SourceID,
			SourceURL:  rec.SourceURL,
			FaceIndex:  rec.FaceIndex,
			Similarity: sim,
			Year:       rec.Year(),
			Timestamp:  rec.Timestamp,
		})
		return nil
	})
	return matches, err
}

// enrich attaches original message texts with one lookup per channel.
func (s *FaceSearchService) enrich(ctx context.Context, channel string, matches []domain.FaceMatch) {
	if s.messages == nil {
		return
	}
	if src, ok := s.settings.Source(channel); ok && !src.Type.IsFace() {
		return
	}

	ids := domain.NewIDSet()
	for _, m := range matches {
		ids.Add(m.SourceID)
	}
	msgs, err := s.messages.Lookup(ctx, channel, ids.Sorted())
	if err != nil {
		logger.Warn("Message lookup in %s failed: %v", channel, err)
		return
	}

	texts := make(map[domain.ItemID]string, len(msgs))
	for _, msg := range msgs {
		texts[msg.ID] = msg.Text
	}
	for i := range matches {
		matches[i].Text = texts[matches[i].SourceID]
	}
}

// scanChannel streams every record of a channel in year order, starting at
// minYear (zero scans all years).
func scanChannel(
	ctx context.Context,
	cache driven.CacheStore,
	channel string,
	minYear int,
	fn func(domain.CacheRecord) error,
) error {
	years, err := cache.ListYears(ctx, channel)
	if err != nil {
		return fmt.Errorf("list years: %w", err)
	}
	for _, year := range years {
		if year < minYear {
			continue
		}
		if err := cache.ScanRecords(ctx, channel, year, fn); err != nil {
			return fmt.Errorf("scan %d: %w", year, err)
		}
	}
	return nil
}

// loadReviewed reads the ledger once and returns the reviewed ids of queryID
// by channel. Without a query id nothing is reviewed.
func loadReviewed(ctx context.Context, reviews LedgerReader, queryID string) (func(channel string) domain.IDSet, error) {
	if reviews == nil || queryID == "" {
		return func(string) domain.IDSet { return nil }, nil
	}
	ledger, err := reviews.Ledger(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reviewed ids: %w", err)
	}
	return func(channel string) domain.IDSet {
		return ledger.ReviewedIDs(queryID, channel)
	}, nil
}
