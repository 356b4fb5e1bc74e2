package usage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"scribe/pkg/errors"
)

// Record is one immutable row in the usage ledger. Rows are appended
// after every successful AI call and never updated.
type Record struct {
	ID           string          `db:"id" json:"id"`
	Provider     string          `db:"provider" json:"provider"`
	Action       string          `db:"action" json:"action"`
	Model        string          `db:"model" json:"model"`
	InputTokens  int64           `db:"input_tokens" json:"input_tokens"`
	OutputTokens int64           `db:"output_tokens" json:"output_tokens"`
	TotalTokens  int64           `db:"total_tokens" json:"total_tokens"`
	Cost         decimal.Decimal `db:"cost" json:"cost"`
	UserID       string          `db:"user_id" json:"user_id,omitempty"`
	SubjectID    string          `db:"subject_id" json:"subject_id,omitempty"`
	Metadata     Metadata        `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Metadata is a free-form JSON payload attached to a record.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Newf("unsupported metadata type %T", src)
	}
	return json.Unmarshal(raw, m)
}

// Period selects the reporting window and its bucket granularity:
// day buckets by hour, week by ISO week, month by calendar month and
// year by calendar year. The window always covers the trailing one
// period from now.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Normalize maps unknown period values to the month default.
func (p Period) Normalize() Period {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p
	default:
		return PeriodMonth
	}
}

// WindowStart returns the beginning of the trailing window ending at now.
func (p Period) WindowStart(now time.Time) time.Time {
	switch p.Normalize() {
	case PeriodDay:
		return now.AddDate(0, 0, -1)
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// Bucket formats a timestamp into this period's bucket key.
func (p Period) Bucket(t time.Time) string {
	switch p.Normalize() {
	case PeriodDay:
		return t.Format("2006-01-02 15:00")
	case PeriodWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-%02d", year, week)
	case PeriodYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}

// Filter narrows stats and history queries. Empty fields match all.
type Filter struct {
	Provider string
	Action   string
	UserID   string
}

// AggregateRow is one grouped slice of the ledger: a time bucket and
// provider pair for stats, or a provider alone for cost summaries.
type AggregateRow struct {
	Bucket       string          `db:"bucket"`
	Provider     string          `db:"provider"`
	Requests     int64           `db:"requests"`
	InputTokens  int64           `db:"input_tokens"`
	OutputTokens int64           `db:"output_tokens"`
	TotalTokens  int64           `db:"total_tokens"`
	TotalCost    decimal.Decimal `db:"total_cost"`
	AvgCost      decimal.Decimal `db:"avg_cost"`
}

// ProviderTotals accumulates one provider's share of the window.
type ProviderTotals struct {
	Requests          int64           `json:"requests"`
	Tokens            int64           `json:"tokens"`
	Cost              decimal.Decimal `json:"cost"`
	AvgCostPerRequest decimal.Decimal `json:"avg_cost_per_request"`
}

// Stats is the shaped report for one trailing window.
type Stats struct {
	Period        Period                               `json:"period"`
	TotalRequests int64                                `json:"total_requests"`
	TotalTokens   int64                                `json:"total_tokens"`
	TotalCost     decimal.Decimal                      `json:"total_cost"`
	ByProvider    map[string]ProviderTotals            `json:"by_provider"`
	ByPeriod      map[string]map[string]ProviderTotals `json:"by_period"`
}

// CostSummary is the per-provider cost rollup for one trailing window.
type CostSummary struct {
	Providers     map[string]ProviderTotals `json:"providers"`
	TotalCost     decimal.Decimal           `json:"total_cost"`
	TotalTokens   int64                     `json:"total_tokens"`
	TotalRequests int64                     `json:"total_requests"`
}
