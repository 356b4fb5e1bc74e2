package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"scribe/internal/domain/usage"
	pkgerrors "scribe/pkg/errors"
)

// Compile-time check
var _ usage.Repository = (*UsageRepository)(nil)

// UsageRepository implements usage.Repository using sqlx. Aggregation
// happens in SQL so the ledger can grow without loading rows into
// memory.
type UsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a new usage ledger repository
func NewUsageRepository(db *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func bucketExpr(period usage.Period) string {
	switch period.Normalize() {
	case usage.PeriodDay:
		return "to_char(created_at, 'YYYY-MM-DD HH24:00')"
	case usage.PeriodWeek:
		return "to_char(created_at, 'IYYY-IW')"
	case usage.PeriodYear:
		return "to_char(created_at, 'YYYY')"
	default:
		return "to_char(created_at, 'YYYY-MM')"
	}
}

func windowExpr(period usage.Period) string {
	switch period.Normalize() {
	case usage.PeriodDay:
		return "created_at >= now() - interval '1 day'"
	case usage.PeriodWeek:
		return "created_at >= now() - interval '7 days'"
	case usage.PeriodYear:
		return "created_at >= now() - interval '1 year'"
	default:
		return "created_at >= now() - interval '1 month'"
	}
}

func filterClause(filter usage.Filter, args []any) (string, []any) {
	clause := ""
	if filter.Provider != "" {
		args = append(args, filter.Provider)
		clause += fmt.Sprintf(" AND provider = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		clause += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clause += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	return clause, args
}

// Insert appends one ledger record
func (r *UsageRepository) Insert(ctx context.Context, rec *usage.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO ai_usage (
			id, provider, action, model,
			input_tokens, output_tokens, total_tokens,
			cost, user_id, subject_id, metadata, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Provider, rec.Action, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.TotalTokens,
		rec.Cost, nullable(rec.UserID), nullable(rec.SubjectID),
		rec.Metadata, rec.CreatedAt,
	)

	if err != nil {
		return pkgerrors.Wrap(err, "failed to insert usage record")
	}

	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Aggregate groups the trailing window by time bucket and provider
func (r *UsageRepository) Aggregate(ctx context.Context, period usage.Period, filter usage.Filter) ([]usage.AggregateRow, error) {
	clause, args := filterClause(filter, nil)

	query := fmt.Sprintf(`
		SELECT
			%s AS bucket,
			provider,
			COUNT(*) AS requests,
			COALESCE(SUM(input_tokens), 0) AS input_tokens,
			COALESCE(SUM(output_tokens), 0) AS output_tokens,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(cost), 0) AS total_cost,
			COALESCE(AVG(cost), 0) AS avg_cost
		FROM ai_usage
		WHERE %s%s
		GROUP BY bucket, provider
		ORDER BY bucket DESC, provider`,
		bucketExpr(period), windowExpr(period), clause,
	)

	var rows []usage.AggregateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to aggregate usage")
	}

	return rows, nil
}

// CostRows groups the trailing window by provider, most expensive first
func (r *UsageRepository) CostRows(ctx context.Context, period usage.Period) ([]usage.AggregateRow, error) {
	query := fmt.Sprintf(`
		SELECT
			'' AS bucket,
			provider,
			COUNT(*) AS requests,
			COALESCE(SUM(input_tokens), 0) AS input_tokens,
			COALESCE(SUM(output_tokens), 0) AS output_tokens,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(cost), 0) AS total_cost,
			COALESCE(AVG(cost), 0) AS avg_cost
		FROM ai_usage
		WHERE %s
		GROUP BY provider
		ORDER BY total_cost DESC`,
		windowExpr(period),
	)

	var rows []usage.AggregateRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to summarize usage cost")
	}

	return rows, nil
}

// Recent returns the newest records first
func (r *UsageRepository) Recent(ctx context.Context, limit int, filter usage.Filter) ([]usage.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	clause, args := filterClause(filter, nil)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, provider, action, model,
			input_tokens, output_tokens, total_tokens,
			cost, COALESCE(user_id, '') AS user_id,
			COALESCE(subject_id, '') AS subject_id,
			metadata, created_at
		FROM ai_usage
		WHERE true%s
		ORDER BY created_at DESC
		LIMIT $%d`,
		clause, len(args),
	)

	var records []usage.Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list recent usage")
	}

	return records, nil
}

// DeleteOlderThan removes expired records and reports the count
func (r *UsageRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	query := `DELETE FROM ai_usage WHERE created_at < now() - ($1 * interval '1 day')`

	res, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to delete old usage records")
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to count deleted usage records")
	}

	return deleted, nil
}
