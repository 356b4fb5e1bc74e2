package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"scribe/internal/domain/usage"
)

// UsageRepository is an in-memory ledger used when no database is
// configured, and as the backing store in tests. Aggregation mirrors
// the SQL implementation.
type UsageRepository struct {
	mu      sync.RWMutex
	records []usage.Record
	now     func() time.Time
}

func NewUsageRepository() *UsageRepository {
	return &UsageRepository{now: time.Now}
}

func (r *UsageRepository) Insert(ctx context.Context, rec *usage.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	r.records = append(r.records, *rec)
	return nil
}

func matches(rec usage.Record, filter usage.Filter) bool {
	if filter.Provider != "" && rec.Provider != filter.Provider {
		return false
	}
	if filter.Action != "" && rec.Action != filter.Action {
		return false
	}
	if filter.UserID != "" && rec.UserID != filter.UserID {
		return false
	}
	return true
}

type aggKey struct {
	bucket   string
	provider string
}

func (r *UsageRepository) Aggregate(ctx context.Context, period usage.Period, filter usage.Filter) ([]usage.AggregateRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	period = period.Normalize()
	since := period.WindowStart(r.now())

	groups := map[aggKey]*usage.AggregateRow{}
	for _, rec := range r.records {
		if rec.CreatedAt.Before(since) || !matches(rec, filter) {
			continue
		}
		key := aggKey{bucket: period.Bucket(rec.CreatedAt), provider: rec.Provider}
		row, ok := groups[key]
		if !ok {
			row = &usage.AggregateRow{Bucket: key.bucket, Provider: key.provider}
			groups[key] = row
		}
		row.Requests++
		row.InputTokens += rec.InputTokens
		row.OutputTokens += rec.OutputTokens
		row.TotalTokens += rec.TotalTokens
		row.TotalCost = row.TotalCost.Add(rec.Cost)
	}

	rows := make([]usage.AggregateRow, 0, len(groups))
	for _, row := range groups {
		row.AvgCost = row.TotalCost.Div(decimal.NewFromInt(row.Requests))
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Bucket != rows[j].Bucket {
			return rows[i].Bucket > rows[j].Bucket
		}
		return rows[i].Provider < rows[j].Provider
	})
	return rows, nil
}

func (r *UsageRepository) CostRows(ctx context.Context, period usage.Period) ([]usage.AggregateRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	since := period.Normalize().WindowStart(r.now())

	groups := map[string]*usage.AggregateRow{}
	for _, rec := range r.records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		row, ok := groups[rec.Provider]
		if !ok {
			row = &usage.AggregateRow{Provider: rec.Provider}
			groups[rec.Provider] = row
		}
		row.Requests++
		row.InputTokens += rec.InputTokens
		row.OutputTokens += rec.OutputTokens
		row.TotalTokens += rec.TotalTokens
		row.TotalCost = row.TotalCost.Add(rec.Cost)
	}

	rows := make([]usage.AggregateRow, 0, len(groups))
	for _, row := range groups {
		row.AvgCost = row.TotalCost.Div(decimal.NewFromInt(row.Requests))
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].TotalCost.GreaterThan(rows[j].TotalCost)
	})
	return rows, nil
}

func (r *UsageRepository) Recent(ctx context.Context, limit int, filter usage.Filter) ([]usage.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]usage.Record, 0, limit)
	for _, rec := range r.records {
		if matches(rec, filter) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UsageRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().UTC().AddDate(0, 0, -days)
	kept := r.records[:0]
	var deleted int64
	for _, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}
