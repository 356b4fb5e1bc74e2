package workers

import (
	"context"
	"time"

	usagesvc "scribe/internal/services/usage"
)

// RetentionWorker periodically deletes ledger records older than the
// configured retention window.
type RetentionWorker struct {
	*BaseWorker
	service *usagesvc.Service
	maxAge  int
}

// NewRetentionWorker creates the ledger cleanup worker. maxAgeDays
// bounds record age; interval controls how often cleanup runs.
func NewRetentionWorker(service *usagesvc.Service, maxAgeDays int, interval time.Duration, enabled bool) *RetentionWorker {
	return &RetentionWorker{
		BaseWorker: NewBaseWorker("usage_retention", interval, enabled),
		service:    service,
		maxAge:     maxAgeDays,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := w.service.Cleanup(ctx, w.maxAge)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	w.RecordRun(time.Since(start))
	if deleted > 0 {
		w.Log().Infow("expired usage records removed", "deleted", deleted)
	}
	return nil
}
