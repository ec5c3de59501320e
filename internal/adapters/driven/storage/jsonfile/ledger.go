package jsonfile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

// Ensure LedgerStore implements the interface.
var _ driven.LedgerStore = (*LedgerStore)(nil)

// LedgerStore keeps the review ledger in a single JSON file.
type LedgerStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewLedgerStore creates a ledger store backed by path.
func NewLedgerStore(path string) *LedgerStore {
	return &LedgerStore{path: path, now: time.Now}
}

// Path returns the ledger file path.
func (s *LedgerStore) Path() string {
	return s.path
}

// Load reads the ledger. A missing file is an empty ledger. An unparseable
// file is moved aside and an empty ledger is returned with an error wrapping
// domain.ErrLedgerLoad.
func (s *LedgerStore) Load(_ context.Context) (*domain.ReviewLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := domain.NewReviewLedger()
	found, err := readJSON(s.path, l)
	if err == nil {
		if found {
			l.Normalize()
		}
		return l, nil
	}

	loadErr := fmt.Errorf("%w: %s: %w", domain.ErrLedgerLoad, s.path, err)
	if dest, mvErr := moveAside(s.path, s.now()); mvErr == nil {
		logger.Warn("Moved unreadable ledger to %s", dest)
	}
	return domain.NewReviewLedger(), loadErr
}

// Save replaces the ledger file.
func (s *LedgerStore) Save(_ context.Context, l *domain.ReviewLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.path, l); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrLedgerWrite, s.path, err)
	}
	return nil
}
