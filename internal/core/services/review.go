package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driving"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// Ensure ReviewService implements the interface.
var _ driving.ReviewService = (*ReviewService)(nil)

// ReviewService owns the review ledger and the search history.
// Every mutation is a load-merge-save cycle serialized by one mutex.
type ReviewService struct {
	ledger  driven.LedgerStore
	history driven.HistoryStore

	mu  sync.Mutex
	now func() time.Time
}

// NewReviewService creates a review service. history may be nil, in which
// case sessions are not logged.
func NewReviewService(ledger driven.LedgerStore, history driven.HistoryStore) *ReviewService {
	return &ReviewService{
		ledger:  ledger,
		history: history,
		now:     time.Now,
	}
}

// RecordSearch merges the ids of a finished search into the ledger.
func (s *ReviewService) RecordSearch(ctx context.Context, queryID string, ids domain.ChannelIDs) error {
	if queryID == "" {
		return fmt.Errorf("%w: empty query id", domain.ErrInvalidInput)
	}
	return s.update(ctx, func(l *domain.ReviewLedger) {
		l.RecordSearch(queryID, ids)
	})
}

// MarkReviewed marks ids of one channel as reviewed. Repeating it is a no-op.
func (s *ReviewService) MarkReviewed(ctx context.Context, queryID, channel string, ids []domain.ItemID) error {
	if queryID == "" || channel == "" {
		return fmt.Errorf("%w: query id and channel are required", domain.ErrInvalidInput)
	}
	return s.update(ctx, func(l *domain.ReviewLedger) {
		l.MarkReviewed(queryID, channel, ids)
	})
}

// MarkAllReviewed marks every id of every channel as reviewed in one write.
func (s *ReviewService) MarkAllReviewed(ctx context.Context, queryID string, ids domain.ChannelIDs) error {
	if queryID == "" {
		return fmt.Errorf("%w: empty query id", domain.ErrInvalidInput)
	}
	return s.update(ctx, func(l *domain.ReviewLedger) {
		for channel, channelIDs := range ids {
			l.MarkReviewed(queryID, channel, channelIDs)
		}
	})
}

// Reviewed returns the reviewed ids of a query and channel.
func (s *ReviewService) Reviewed(ctx context.Context, queryID, channel string) (domain.IDSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return l.ReviewedIDs(queryID, channel), nil
}

// Ledger returns a copy of the whole ledger.
func (s *ReviewService) Ledger(ctx context.Context) (*domain.ReviewLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return l.Clone(), nil
}

// LogSession appends a search session to the global history.
func (s *ReviewService) LogSession(
	ctx context.Context, kind domain.SearchKind, query, queryID string, ids domain.ChannelIDs,
) error {
	if s.history == nil {
		return nil
	}

	channels := make(domain.ChannelIDs, len(ids))
	for channel, channelIDs := range ids {
		channels[channel] = domain.NewIDSet(channelIDs...).Sorted()
	}

	session := domain.SearchSession{
		ID:        uuid.NewString(),
		Type:      kind,
		Timestamp: s.now().UTC(),
		Query:     query,
		QueryID:   queryID,
		Channels:  channels,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.history.Append(ctx, session); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// History returns the global search history in append order.
func (s *ReviewService) History(ctx context.Context) ([]domain.SearchSession, error) {
	if s.history == nil {
		return []domain.SearchSession{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.List(ctx)
}

func (s *ReviewService) update(ctx context.Context, mutate func(*domain.ReviewLedger)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return err
	}
	mutate(l)
	l.Normalize()
	if err := s.ledger.Save(ctx, l); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// load reads the ledger. A corrupt ledger has already been moved aside by the
// store and continues as empty.
func (s *ReviewService) load(ctx context.Context) (*domain.ReviewLedger, error) {
	l, err := s.ledger.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrLedgerLoad) || l == nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		logger.Warn("Review ledger unreadable, starting empty: %v", err)
	}
	if l == nil {
		l = domain.NewReviewLedger()
	}
	return l, nil
}

// CollectIDs extracts per-channel item ids from search results.
// Results for which extract reports false are left out.
func CollectIDs[T any](results map[string][]T, extract func(T) (domain.ItemID, bool)) domain.ChannelIDs {
	out := make(domain.ChannelIDs, len(results))
	for channel, items := range results {
		ids := domain.NewIDSet()
		for _, item := range items {
			if id, ok := extract(item); ok {
				ids.Add(id)
			}
		}
		if ids.Len() > 0 {
			out[channel] = ids.Sorted()
		}
	}
	return out
}

// FaceMatchIDs collects the ids of face matches.
func FaceMatchIDs(matches domain.ChannelFaceMatches) domain.ChannelIDs {
	return CollectIDs(matches, func(m domain.FaceMatch) (domain.ItemID, bool) {
		if !m.SourceID.IsZero() {
			return m.SourceID, true
		}
		return domain.ExtractItemID(m.SourceURL)
	})
}

// TextMatchIDs collects the ids of text matches.
func TextMatchIDs(matches domain.ChannelTextMatches) domain.ChannelIDs {
	return CollectIDs(matches, func(m domain.TextMatch) (domain.ItemID, bool) {
		if !m.SourceID.IsZero() {
			return m.SourceID, true
		}
		return domain.ExtractItemID(m.SourceURL)
	})
}
