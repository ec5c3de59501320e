package memory

import (
	"context"
	"sync"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.LedgerStore  = (*LedgerStore)(nil)
	_ driven.HistoryStore = (*HistoryStore)(nil)
)

// LedgerStore is an in-memory implementation of driven.LedgerStore.
type LedgerStore struct {
	mu     sync.RWMutex
	ledger *domain.ReviewLedger
}

// NewLedgerStore creates a new in-memory ledger store holding an empty ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{ledger: domain.NewReviewLedger()}
}

// Load returns a copy of the stored ledger.
func (s *LedgerStore) Load(_ context.Context) (*domain.ReviewLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Clone(), nil
}

// Save replaces the stored ledger with a copy of l.
func (s *LedgerStore) Save(_ context.Context, l *domain.ReviewLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = l.Clone()
	return nil
}

// HistoryStore is an in-memory implementation of driven.HistoryStore.
type HistoryStore struct {
	mu       sync.RWMutex
	sessions []domain.SearchSession
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append adds a session.
func (s *HistoryStore) Append(_ context.Context, session domain.SearchSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

// List returns every session in append order.
func (s *HistoryStore) List(_ context.Context) ([]domain.SearchSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.SearchSession, len(s.sessions))
	copy(result, s.sessions)
	return result, nil
}

// Len returns the number of stored sessions.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
