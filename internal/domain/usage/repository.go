package usage

import "context"

// Repository is the ledger storage contract. Implementations are
// append-only: Insert and DeleteOlderThan are the only mutations.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error

	// Aggregate groups the trailing window by time bucket and provider.
	Aggregate(ctx context.Context, period Period, filter Filter) ([]AggregateRow, error)

	// CostRows groups the trailing window by provider only, ordered by
	// total cost descending. Bucket is empty in the returned rows.
	CostRows(ctx context.Context, period Period) ([]AggregateRow, error)

	// Recent returns the newest records first, up to limit.
	Recent(ctx context.Context, limit int, filter Filter) ([]Record, error)

	// DeleteOlderThan removes records older than the given age in days
	// and reports how many were deleted.
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}
