package usage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/internal/adapters/ai"
	"scribe/internal/domain/usage"
	"scribe/internal/pricing"
	"scribe/internal/repository/memory"
	"scribe/pkg/errors"
)

func testBook() pricing.Book {
	return pricing.Book{
		"openai": pricing.MustTable(
			map[string]string{"gpt-4o-mini": "0.15"},
			map[string]string{"gpt-4o-mini": "0.60"},
		),
	}
}

func TestTrackPricesAndAppends(t *testing.T) {
	repo := memory.NewUsageRepository()
	svc := NewService(repo, testBook())

	svc.Track(context.Background(), ai.TrackRequest{
		Provider:  ai.ProviderOpenAI,
		Action:    ai.ActionChat,
		Model:     "gpt-4o-mini",
		Usage:     ai.Usage{InputTokens: 1000, OutputTokens: 500, TotalTokens: 1500},
		ActorID:   "u1",
		SubjectID: "post-7",
		Metadata:  map[string]any{"language": "en"},
	})

	records, err := repo.Recent(context.Background(), 0, usage.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "openai", rec.Provider)
	assert.Equal(t, "chat", rec.Action)
	assert.Equal(t, "gpt-4o-mini", rec.Model)
	assert.Equal(t, int64(1500), rec.TotalTokens)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "post-7", rec.SubjectID)
	assert.Equal(t, "en", rec.Metadata["language"])
	assert.Equal(t, "0.00045", rec.Cost.String())
}

func TestTrackUnknownModelCostsZero(t *testing.T) {
	repo := memory.NewUsageRepository()
	svc := NewService(repo, testBook())

	svc.Track(context.Background(), ai.TrackRequest{
		Provider: ai.ProviderGoogle,
		Action:   ai.ActionTextGeneration,
		Model:    "experimental-preview",
		Usage:    ai.Usage{InputTokens: 9999, OutputTokens: 9999, TotalTokens: 19998},
	})

	records, err := repo.Recent(context.Background(), 0, usage.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Cost.IsZero())
}

type failingRepo struct{}

func (failingRepo) Insert(context.Context, *usage.Record) error { return errors.ErrInternal }
func (failingRepo) Aggregate(context.Context, usage.Period, usage.Filter) ([]usage.AggregateRow, error) {
	return nil, errors.ErrInternal
}
func (failingRepo) CostRows(context.Context, usage.Period) ([]usage.AggregateRow, error) {
	return nil, errors.ErrInternal
}
func (failingRepo) Recent(context.Context, int, usage.Filter) ([]usage.Record, error) {
	return nil, errors.ErrInternal
}
func (failingRepo) DeleteOlderThan(context.Context, int) (int64, error) {
	return 0, errors.ErrInternal
}

func TestTrackSwallowsStorageFailure(t *testing.T) {
	svc := NewService(failingRepo{}, testBook())

	assert.NotPanics(t, func() {
		svc.Track(context.Background(), ai.TrackRequest{
			Provider: ai.ProviderOpenAI,
			Action:   ai.ActionChat,
			Model:    "gpt-4o-mini",
			Usage:    ai.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		})
	})
}

func TestStatsShapesRows(t *testing.T) {
	repo := memory.NewUsageRepository()
	svc := NewService(repo, testBook())

	base := time.Now().UTC().Add(-time.Hour)
	for i, provider := range []string{"openai", "openai", "anthropic"} {
		require.NoError(t, repo.Insert(context.Background(), &usage.Record{
			Provider:     provider,
			Action:       "chat",
			Model:        "m",
			InputTokens:  100,
			OutputTokens: 50,
			TotalTokens:  150,
			Cost:         decimal.RequireFromString("0.02"),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	stats, err := svc.Stats(context.Background(), usage.PeriodDay, usage.Filter{})
	require.NoError(t, err)

	assert.Equal(t, usage.PeriodDay, stats.Period)
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(450), stats.TotalTokens)
	assert.True(t, stats.TotalCost.Equal(decimal.RequireFromString("0.06")))

	require.Contains(t, stats.ByProvider, "openai")
	assert.Equal(t, int64(2), stats.ByProvider["openai"].Requests)
	assert.Equal(t, int64(300), stats.ByProvider["openai"].Tokens)
	assert.Equal(t, int64(1), stats.ByProvider["anthropic"].Requests)

	require.Len(t, stats.ByPeriod, 1)
	for _, providers := range stats.ByPeriod {
		assert.True(t, providers["openai"].AvgCostPerRequest.Equal(decimal.RequireFromString("0.02")))
	}
}

func TestStatsNormalizesUnknownPeriod(t *testing.T) {
	svc := NewService(memory.NewUsageRepository(), testBook())

	stats, err := svc.Stats(context.Background(), usage.Period("fortnight"), usage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, usage.PeriodMonth, stats.Period)
	assert.NotNil(t, stats.ByProvider)
	assert.NotNil(t, stats.ByPeriod)
}

func TestCostSummaryTotals(t *testing.T) {
	repo := memory.NewUsageRepository()
	svc := NewService(repo, testBook())

	now := time.Now().UTC()
	for _, c := range []struct {
		provider string
		cost     string
	}{
		{"openai", "0.10"},
		{"openai", "0.20"},
		{"google", "0.05"},
	} {
		require.NoError(t, repo.Insert(context.Background(), &usage.Record{
			Provider:    c.provider,
			Action:      "chat",
			Model:       "m",
			TotalTokens: 100,
			Cost:        decimal.RequireFromString(c.cost),
			CreatedAt:   now.Add(-time.Hour),
		}))
	}

	summary, err := svc.CostSummary(context.Background(), usage.PeriodMonth)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalRequests)
	assert.Equal(t, int64(300), summary.TotalTokens)
	assert.True(t, summary.TotalCost.Equal(decimal.RequireFromString("0.35")))

	require.Len(t, summary.Providers, 2)
	assert.True(t, summary.Providers["openai"].Cost.Equal(decimal.RequireFromString("0.30")))
	assert.True(t, summary.Providers["openai"].AvgCostPerRequest.Equal(decimal.RequireFromString("0.15")))
}

func TestCleanupPropagatesError(t *testing.T) {
	svc := NewService(failingRepo{}, testBook())

	_, err := svc.Cleanup(context.Background(), 30)
	assert.True(t, errors.Is(err, errors.ErrInternal))
}

func TestCleanupReturnsDeletedCount(t *testing.T) {
	repo := memory.NewUsageRepository()
	svc := NewService(repo, testBook())

	require.NoError(t, repo.Insert(context.Background(), &usage.Record{
		Provider:  "openai",
		Action:    "chat",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -400),
	}))

	deleted, err := svc.Cleanup(context.Background(), 365)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
