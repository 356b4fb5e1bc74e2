package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/internal/domain/usage"
)

var frozenNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newFrozenRepo() *UsageRepository {
	repo := NewUsageRepository()
	repo.now = func() time.Time { return frozenNow }
	return repo
}

func insertRecord(t *testing.T, repo *UsageRepository, provider, action, userID string, cost string, at time.Time) {
	t.Helper()
	rec := &usage.Record{
		Provider:     provider,
		Action:       action,
		Model:        "m",
		InputTokens:  100,
		OutputTokens: 50,
		TotalTokens:  150,
		Cost:         decimal.RequireFromString(cost),
		UserID:       userID,
		CreatedAt:    at,
	}
	require.NoError(t, repo.Insert(context.Background(), rec))
}

func TestInsertAssignsIDAndTimestamp(t *testing.T) {
	repo := newFrozenRepo()

	rec := &usage.Record{Provider: "openai", Action: "chat"}
	require.NoError(t, repo.Insert(context.Background(), rec))

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, frozenNow, rec.CreatedAt)

	got, err := repo.Recent(context.Background(), 0, usage.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestAggregateGroupsByBucketAndProvider(t *testing.T) {
	repo := newFrozenRepo()

	insertRecord(t, repo, "openai", "chat", "", "0.01", frozenNow.Add(-2*time.Hour))
	insertRecord(t, repo, "openai", "chat", "", "0.03", frozenNow.Add(-2*time.Hour))
	insertRecord(t, repo, "google", "tagging", "", "0.02", frozenNow.Add(-2*time.Hour))
	insertRecord(t, repo, "openai", "chat", "", "0.05", frozenNow.Add(-5*time.Hour))
	// Outside the trailing day window.
	insertRecord(t, repo, "openai", "chat", "", "9.99", frozenNow.Add(-30*time.Hour))

	rows, err := repo.Aggregate(context.Background(), usage.PeriodDay, usage.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Newest bucket first, providers alphabetical within a bucket.
	assert.Equal(t, "2026-06-15 10:00", rows[0].Bucket)
	assert.Equal(t, "google", rows[0].Provider)
	assert.Equal(t, int64(1), rows[0].Requests)

	assert.Equal(t, "2026-06-15 10:00", rows[1].Bucket)
	assert.Equal(t, "openai", rows[1].Provider)
	assert.Equal(t, int64(2), rows[1].Requests)
	assert.Equal(t, int64(300), rows[1].TotalTokens)
	assert.True(t, rows[1].TotalCost.Equal(decimal.RequireFromString("0.04")))
	assert.True(t, rows[1].AvgCost.Equal(decimal.RequireFromString("0.02")))

	assert.Equal(t, "2026-06-15 07:00", rows[2].Bucket)
}

func TestAggregateAppliesFilters(t *testing.T) {
	repo := newFrozenRepo()

	insertRecord(t, repo, "openai", "chat", "u1", "0.01", frozenNow.Add(-time.Hour))
	insertRecord(t, repo, "openai", "translation", "u1", "0.01", frozenNow.Add(-time.Hour))
	insertRecord(t, repo, "anthropic", "chat", "u2", "0.01", frozenNow.Add(-time.Hour))

	rows, err := repo.Aggregate(context.Background(), usage.PeriodDay, usage.Filter{Provider: "openai"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Requests)

	rows, err = repo.Aggregate(context.Background(), usage.PeriodDay, usage.Filter{Action: "chat"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = repo.Aggregate(context.Background(), usage.PeriodDay, usage.Filter{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "anthropic", rows[0].Provider)
}

func TestCostRowsOrderedByCostDescending(t *testing.T) {
	repo := newFrozenRepo()

	insertRecord(t, repo, "openai", "chat", "", "0.01", frozenNow.Add(-time.Hour))
	insertRecord(t, repo, "anthropic", "chat", "", "0.50", frozenNow.Add(-time.Hour))
	insertRecord(t, repo, "google", "chat", "", "0.10", frozenNow.Add(-time.Hour))

	rows, err := repo.CostRows(context.Background(), usage.PeriodMonth)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "anthropic", rows[0].Provider)
	assert.Equal(t, "google", rows[1].Provider)
	assert.Equal(t, "openai", rows[2].Provider)
}

func TestRecentNewestFirstWithLimit(t *testing.T) {
	repo := newFrozenRepo()

	for i := 0; i < 5; i++ {
		insertRecord(t, repo, "openai", "chat", "", "0.01", frozenNow.Add(-time.Duration(i)*time.Hour))
	}

	got, err := repo.Recent(context.Background(), 3, usage.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
	assert.True(t, got[1].CreatedAt.After(got[2].CreatedAt))
	assert.Equal(t, frozenNow.Add(-0*time.Hour), got[0].CreatedAt)
}

func TestDeleteOlderThan(t *testing.T) {
	repo := newFrozenRepo()

	insertRecord(t, repo, "openai", "chat", "", "0.01", frozenNow.AddDate(0, 0, -40))
	insertRecord(t, repo, "openai", "chat", "", "0.01", frozenNow.AddDate(0, 0, -10))
	insertRecord(t, repo, "openai", "chat", "", "0.01", frozenNow.Add(-time.Hour))

	deleted, err := repo.DeleteOlderThan(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := repo.Recent(context.Background(), 0, usage.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	deleted, err = repo.DeleteOlderThan(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	got, err = repo.Recent(context.Background(), 0, usage.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEveryInsertBecomesOneRequest(t *testing.T) {
	repo := newFrozenRepo()

	const n = 25
	for i := 0; i < n; i++ {
		insertRecord(t, repo, "openai", "chat", fmt.Sprintf("u%d", i%3), "0.001", frozenNow.Add(-time.Minute))
	}

	rows, err := repo.CostRows(context.Background(), usage.PeriodMonth)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(n), rows[0].Requests)
	assert.True(t, rows[0].TotalCost.Equal(decimal.RequireFromString("0.025")))
}
