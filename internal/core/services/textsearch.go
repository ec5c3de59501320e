package services

import (
	"context"
	"fmt"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driving"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// Ensure TextSearchService implements the interface.
var _ driving.TextSearcher = (*TextSearchService)(nil)

// TextSearchService scans cached texts for name variants.
type TextSearchService struct {
	cache    driven.CacheStore
	reviews  LedgerReader
	settings domain.Settings
}

// NewTextSearchService creates a text search service.
func NewTextSearchService(cache driven.CacheStore, reviews LedgerReader, settings domain.Settings) *TextSearchService {
	return &TextSearchService{cache: cache, reviews: reviews, settings: settings}
}

// Search matches every "/"-separated alternative of rawQuery against the text
// of all cached records. Each item yields at most one match, with the first
// variant that hit, in scan order.
func (s *TextSearchService) Search(
	ctx context.Context, rawQuery string, q domain.TextQuery,
) (domain.ChannelTextMatches, error) {
	names, err := ParseQueries(rawQuery)
	if err != nil {
		return nil, err
	}
	variants := variantsFor(names, s.settings.Names)
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidQuery, rawQuery)
	}

	logger.Section("Text Search")
	for _, v := range variants {
		logger.Debug("Variant: %q", v.Text)
	}

	reviewed, err := loadReviewed(ctx, s.reviews, q.QueryID)
	if err != nil {
		return nil, err
	}
	channels, err := s.cache.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	out := make(domain.ChannelTextMatches)
	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if s.settings.IsExcluded(channel) {
			continue
		}

		matches, err := s.scanChannel(ctx, channel, variants, q.MinYear, reviewed(channel))
		if err != nil {
			logger.Warn("Text search in %s failed: %v", channel, err)
			continue
		}
		if len(matches) > 0 {
			out[channel] = matches
		}
	}

	logger.Info("Text search found %d matches in %d channels", out.Total(), len(out))
	return out, nil
}

func (s *TextSearchService) scanChannel(
	ctx context.Context, channel string, variants []domain.NameVariant, minYear int, reviewed domain.IDSet,
) ([]domain.TextMatch, error) {
	var matches []domain.TextMatch
	emitted := domain.NewIDSet()
	err := scanChannel(ctx, s.cache, channel, minYear, func(rec domain.CacheRecord) error {
		if rec.Text == "" || reviewed.Has(rec.SourceID) || emitted.Has(rec.SourceID) {
			return nil
		}
		v, excerpt, ok := MatchText(rec.Text, variants)
		if !ok {
			return nil
		}
		emitted.Add(rec.SourceID)
		matches = append(matches, domain.TextMatch{
			Channel:        channel,
			SourceID:       rec.SourceID,
			SourceURL:      rec.SourceURL,
			Year:           rec.Year(),
			Timestamp:      rec.Timestamp,
			MatchedVariant: v.Text,
			Excerpt:        excerpt,
			Text:           rec.Text,
		})
		return nil
	})
	return matches, err
}

func variantsFor(names []domain.PersonName, opts domain.VariantOptions) []domain.NameVariant {
	var out []domain.NameVariant
	seen := make(map[string]struct{})
	for _, name := range names {
		for _, v := range GenerateVariants(name, opts) {
			if _, ok := seen[v.Text]; ok {
				continue
			}
			seen[v.Text] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
