package driving

import (
	"context"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// ReviewService maintains the review ledger and the search history.
type ReviewService interface {
	// RecordSearch merges matched ids into the query's ledger entries.
	RecordSearch(ctx context.Context, queryID string, ids domain.ChannelIDs) error

	// MarkReviewed moves ids of one channel from unreviewed to reviewed.
	MarkReviewed(ctx context.Context, queryID, channel string, ids []domain.ItemID) error

	// MarkAllReviewed marks every given id as reviewed.
	MarkAllReviewed(ctx context.Context, queryID string, ids domain.ChannelIDs) error

	// Reviewed returns the reviewed ids of a query and channel.
	Reviewed(ctx context.Context, queryID, channel string) (domain.IDSet, error)

	// Ledger returns a copy of the whole ledger.
	Ledger(ctx context.Context) (*domain.ReviewLedger, error)

	// LogSession appends a search to the global history.
	LogSession(ctx context.Context, kind domain.SearchKind, query, queryID string, ids domain.ChannelIDs) error

	// History returns the global search history.
	History(ctx context.Context) ([]domain.SearchSession, error)
}
