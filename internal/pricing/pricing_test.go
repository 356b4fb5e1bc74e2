package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBook() Book {
	return Book{
		"openai": MustTable(
			map[string]string{"gpt-4o-mini": "0.15"},
			map[string]string{"gpt-4o-mini": "0.60"},
		),
	}
}

func TestCostKnownModel(t *testing.T) {
	book := testBook()

	// 1000 input at $0.15/M plus 500 output at $0.60/M.
	cost := book.Cost("openai", "gpt-4o-mini", 1000, 500)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.00045")), "got %s", cost)
}

func TestCostIsDeterministic(t *testing.T) {
	book := testBook()

	first := book.Cost("openai", "gpt-4o-mini", 123456, 654321)
	second := book.Cost("openai", "gpt-4o-mini", 123456, 654321)
	assert.True(t, first.Equal(second))
}

func TestCostZeroTokens(t *testing.T) {
	book := testBook()

	cost := book.Cost("openai", "gpt-4o-mini", 0, 0)
	assert.True(t, cost.IsZero(), "got %s", cost)
}

func TestCostUnpricedModel(t *testing.T) {
	book := testBook()

	cost := book.Cost("openai", "o3-preview", 100000, 100000)
	assert.True(t, cost.IsZero(), "unpriced models must cost exactly zero, got %s", cost)
}

func TestCostUnknownProvider(t *testing.T) {
	book := testBook()

	cost := book.Cost("acme", "any-model", 1000, 1000)
	assert.True(t, cost.IsZero())
}

func TestCostEmptyTable(t *testing.T) {
	var table Table

	cost := table.Cost("gpt-4o-mini", 1000, 1000)
	assert.True(t, cost.IsZero())
}

func TestMustTableRejectsMalformedPrice(t *testing.T) {
	require.Panics(t, func() {
		MustTable(map[string]string{"m": "not-a-price"}, nil)
	})
}
