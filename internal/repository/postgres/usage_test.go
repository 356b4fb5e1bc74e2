package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/internal/domain/usage"
	"scribe/internal/testsupport"
)

func newTestRepo(t *testing.T) *UsageRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)

	require.NoError(t, EnsureSchema(context.Background(), testDB.DB()))
	_, err := testDB.DB().Exec("TRUNCATE ai_usage")
	require.NoError(t, err)

	return NewUsageRepository(testDB.DB())
}

func seedRecord(t *testing.T, repo *UsageRepository, provider, action, userID, cost string, age time.Duration) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), &usage.Record{
		Provider:     provider,
		Action:       action,
		Model:        "m",
		InputTokens:  100,
		OutputTokens: 50,
		TotalTokens:  150,
		Cost:         decimal.RequireFromString(cost),
		UserID:       userID,
		Metadata:     usage.Metadata{"language": "en"},
		CreatedAt:    time.Now().UTC().Add(-age),
	}))
}

func TestUsageRepository_InsertAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := &usage.Record{
		Provider:     "openai",
		Action:       "chat",
		Model:        "gpt-4o-mini",
		InputTokens:  1000,
		OutputTokens: 500,
		TotalTokens:  1500,
		Cost:         decimal.RequireFromString("0.00045"),
		UserID:       "u1",
		SubjectID:    "post-7",
		Metadata:     usage.Metadata{"language": "he"},
	}
	require.NoError(t, repo.Insert(ctx, rec))
	assert.NotEmpty(t, rec.ID)

	records, err := repo.Recent(ctx, 10, usage.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, "chat", got.Action)
	assert.Equal(t, int64(1500), got.TotalTokens)
	assert.True(t, got.Cost.Equal(rec.Cost))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "post-7", got.SubjectID)
	assert.Equal(t, "he", got.Metadata["language"])
}

func TestUsageRepository_RecentNullableFieldsAndLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedRecord(t, repo, "openai", "chat", "", "0.01", time.Duration(i)*time.Minute)
	}

	records, err := repo.Recent(ctx, 2, usage.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// user_id was stored as NULL and comes back as the empty string
	assert.Empty(t, records[0].UserID)
	assert.True(t, records[0].CreatedAt.After(records[1].CreatedAt))
}

func TestUsageRepository_AggregateAndFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedRecord(t, repo, "openai", "chat", "u1", "0.01", time.Hour)
	seedRecord(t, repo, "openai", "chat", "u1", "0.03", time.Hour)
	seedRecord(t, repo, "google", "tagging", "u2", "0.02", time.Hour)
	// Outside the trailing day window
	seedRecord(t, repo, "openai", "chat", "u1", "9.99", 30*time.Hour)

	rows, err := repo.Aggregate(ctx, usage.PeriodDay, usage.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byProvider := map[string]usage.AggregateRow{}
	for _, row := range rows {
		byProvider[row.Provider] = row
	}
	assert.Equal(t, int64(2), byProvider["openai"].Requests)
	assert.Equal(t, int64(300), byProvider["openai"].TotalTokens)
	assert.True(t, byProvider["openai"].TotalCost.Equal(decimal.RequireFromString("0.04")))
	assert.True(t, byProvider["openai"].AvgCost.Equal(decimal.RequireFromString("0.02")))

	rows, err = repo.Aggregate(ctx, usage.PeriodDay, usage.Filter{Provider: "google", Action: "tagging"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Requests)

	rows, err = repo.Aggregate(ctx, usage.PeriodDay, usage.Filter{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "google", rows[0].Provider)
}

func TestUsageRepository_CostRowsOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedRecord(t, repo, "openai", "chat", "", "0.01", time.Hour)
	seedRecord(t, repo, "anthropic", "chat", "", "0.50", time.Hour)
	seedRecord(t, repo, "google", "chat", "", "0.10", time.Hour)

	rows, err := repo.CostRows(ctx, usage.PeriodMonth)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "anthropic", rows[0].Provider)
	assert.Equal(t, "google", rows[1].Provider)
	assert.Equal(t, "openai", rows[2].Provider)
}

func TestUsageRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedRecord(t, repo, "openai", "chat", "", "0.01", 40*24*time.Hour)
	seedRecord(t, repo, "openai", "chat", "", "0.01", time.Hour)

	deleted, err := repo.DeleteOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, err := repo.Recent(ctx, 10, usage.Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
