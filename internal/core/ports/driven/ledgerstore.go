package driven

import (
	"context"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// LedgerStore persists the review ledger as one document.
type LedgerStore interface {
	// Load returns the stored ledger. A missing ledger is empty, not an error.
	// An unreadable ledger returns an empty ledger and an error wrapping
	// domain.ErrLedgerLoad.
	Load(ctx context.Context) (*domain.ReviewLedger, error)

	// Save replaces the stored ledger. Failures wrap domain.ErrLedgerWrite.
	Save(ctx context.Context, ledger *domain.ReviewLedger) error
}

// HistoryStore persists the global search history.
type HistoryStore interface {
	// Append adds a session to the end of the history.
	Append(ctx context.Context, session domain.SearchSession) error

	// List returns every session in append order.
	List(ctx context.Context) ([]domain.SearchSession, error)
}
