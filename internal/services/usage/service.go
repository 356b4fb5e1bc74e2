package usage

import (
	"context"

	"scribe/internal/adapters/ai"
	"scribe/internal/domain/usage"
	"scribe/internal/metrics"
	"scribe/internal/pricing"
	"scribe/pkg/errors"
	"scribe/pkg/logger"
)

// Compile-time check
var _ ai.UsageRecorder = (*Service)(nil)

// Service owns the usage ledger: it prices completed calls, appends
// records and shapes aggregate reports.
type Service struct {
	repo    usage.Repository
	pricing pricing.Book
	log     *logger.Logger
}

// NewService creates a usage service over the given ledger storage.
// The pricing book maps provider and model to per-million-token rates.
func NewService(repo usage.Repository, book pricing.Book) *Service {
	return &Service{
		repo:    repo,
		pricing: book,
		log:     logger.Get().With("component", "usage_service"),
	}
}

// Track prices and appends one ledger record. Ledger failures are
// logged but never propagated: accounting must not break the AI call
// that produced it.
func (s *Service) Track(ctx context.Context, req ai.TrackRequest) {
	cost := s.pricing.Cost(string(req.Provider), req.Model, req.Usage.InputTokens, req.Usage.OutputTokens)

	rec := &usage.Record{
		Provider:     string(req.Provider),
		Action:       string(req.Action),
		Model:        req.Model,
		InputTokens:  req.Usage.InputTokens,
		OutputTokens: req.Usage.OutputTokens,
		TotalTokens:  req.Usage.TotalTokens,
		Cost:         cost,
		UserID:       req.ActorID,
		SubjectID:    req.SubjectID,
		Metadata:     usage.Metadata(req.Metadata),
	}

	err := s.repo.Insert(ctx, rec)
	metrics.RecordDBQuery("usage_insert", err)
	if err != nil {
		s.log.Errorw("usage record not written",
			"provider", rec.Provider, "action", rec.Action, "error", err)
		return
	}

	costUSD, _ := cost.Float64()
	metrics.RecordAIUsage(rec.Provider, rec.Action, rec.Model,
		rec.InputTokens, rec.OutputTokens, costUSD)
}

// Stats reports the trailing window grouped by time bucket and provider.
func (s *Service) Stats(ctx context.Context, period usage.Period, filter usage.Filter) (*usage.Stats, error) {
	period = period.Normalize()

	rows, err := s.repo.Aggregate(ctx, period, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load usage stats")
	}

	stats := &usage.Stats{
		Period:     period,
		ByProvider: map[string]usage.ProviderTotals{},
		ByPeriod:   map[string]map[string]usage.ProviderTotals{},
	}

	for _, row := range rows {
		stats.TotalRequests += row.Requests
		stats.TotalTokens += row.TotalTokens
		stats.TotalCost = stats.TotalCost.Add(row.TotalCost)

		totals := stats.ByProvider[row.Provider]
		totals.Requests += row.Requests
		totals.Tokens += row.TotalTokens
		totals.Cost = totals.Cost.Add(row.TotalCost)
		stats.ByProvider[row.Provider] = totals

		bucket, ok := stats.ByPeriod[row.Bucket]
		if !ok {
			bucket = map[string]usage.ProviderTotals{}
			stats.ByPeriod[row.Bucket] = bucket
		}
		bucket[row.Provider] = usage.ProviderTotals{
			Requests:          row.Requests,
			Tokens:            row.TotalTokens,
			Cost:              row.TotalCost,
			AvgCostPerRequest: row.AvgCost,
		}
	}

	return stats, nil
}

// CostSummary reports per-provider spend for the trailing window.
func (s *Service) CostSummary(ctx context.Context, period usage.Period) (*usage.CostSummary, error) {
	rows, err := s.repo.CostRows(ctx, period.Normalize())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load cost summary")
	}

	summary := &usage.CostSummary{Providers: map[string]usage.ProviderTotals{}}
	for _, row := range rows {
		summary.Providers[row.Provider] = usage.ProviderTotals{
			Requests:          row.Requests,
			Tokens:            row.TotalTokens,
			Cost:              row.TotalCost,
			AvgCostPerRequest: row.AvgCost,
		}
		summary.TotalCost = summary.TotalCost.Add(row.TotalCost)
		summary.TotalTokens += row.TotalTokens
		summary.TotalRequests += row.Requests
	}

	return summary, nil
}

// Recent lists the newest ledger records, newest first.
func (s *Service) Recent(ctx context.Context, limit int, filter usage.Filter) ([]usage.Record, error) {
	records, err := s.repo.Recent(ctx, limit, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent usage")
	}
	return records, nil
}

// Cleanup deletes records older than maxAgeDays and returns the count.
func (s *Service) Cleanup(ctx context.Context, maxAgeDays int) (int64, error) {
	deleted, err := s.repo.DeleteOlderThan(ctx, maxAgeDays)
	metrics.RecordDBQuery("usage_cleanup", err)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean up usage records")
	}

	if deleted > 0 {
		s.log.Infow("usage records cleaned up", "deleted", deleted, "max_age_days", maxAgeDays)
	}
	return deleted, nil
}
