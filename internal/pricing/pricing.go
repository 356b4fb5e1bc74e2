// Package pricing computes the monetary cost of AI invocations from
// per-model price tables. Prices are expressed in USD per million tokens
// and all arithmetic uses fixed-point decimals so identical inputs always
// produce identical results across platforms.
package pricing

import (
	"github.com/shopspring/decimal"
)

var million = decimal.NewFromInt(1_000_000)

// Table holds per-model prices for one provider, in USD per million tokens.
type Table struct {
	Input  map[string]decimal.Decimal
	Output map[string]decimal.Decimal
}

// Cost returns the cost of a single invocation against this table.
// Models without a price entry cost exactly zero; unpriced preview models
// must never block usage tracking.
func (t Table) Cost(model string, inputTokens, outputTokens int64) decimal.Decimal {
	inputCost := decimal.NewFromInt(inputTokens).Mul(t.price(t.Input, model)).Div(million)
	outputCost := decimal.NewFromInt(outputTokens).Mul(t.price(t.Output, model)).Div(million)
	return inputCost.Add(outputCost)
}

func (t Table) price(side map[string]decimal.Decimal, model string) decimal.Decimal {
	if side == nil {
		return decimal.Zero
	}
	price, ok := side[model]
	if !ok {
		return decimal.Zero
	}
	return price
}

// Book maps provider names to their price tables.
type Book map[string]Table

// Cost resolves the provider's table and prices the invocation.
// An unknown provider prices at zero, mirroring the unpriced-model rule.
func (b Book) Cost(provider, model string, inputTokens, outputTokens int64) decimal.Decimal {
	table, ok := b[provider]
	if !ok {
		return decimal.Zero
	}
	return table.Cost(model, inputTokens, outputTokens)
}

// MustTable builds a Table from per-million price strings, panicking on
// malformed literals. Intended for the static provider catalogs.
func MustTable(input, output map[string]string) Table {
	return Table{
		Input:  mustSide(input),
		Output: mustSide(output),
	}
}

func mustSide(prices map[string]string) map[string]decimal.Decimal {
	side := make(map[string]decimal.Decimal, len(prices))
	for model, price := range prices {
		side[model] = decimal.RequireFromString(price)
	}
	return side
}
