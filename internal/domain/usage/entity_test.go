package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodNormalize(t *testing.T) {
	assert.Equal(t, PeriodDay, PeriodDay.Normalize())
	assert.Equal(t, PeriodWeek, PeriodWeek.Normalize())
	assert.Equal(t, PeriodMonth, PeriodMonth.Normalize())
	assert.Equal(t, PeriodYear, PeriodYear.Normalize())
	assert.Equal(t, PeriodMonth, Period("").Normalize())
	assert.Equal(t, PeriodMonth, Period("quarter").Normalize())
}

func TestPeriodWindowStart(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC), PeriodDay.WindowStart(now))
	assert.Equal(t, time.Date(2026, 3, 8, 10, 30, 0, 0, time.UTC), PeriodWeek.WindowStart(now))
	assert.Equal(t, time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC), PeriodMonth.WindowStart(now))
	assert.Equal(t, time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC), PeriodYear.WindowStart(now))
}

func TestPeriodBucket(t *testing.T) {
	ts := time.Date(2026, 1, 2, 15, 45, 12, 0, time.UTC)

	assert.Equal(t, "2026-01-02 15:00", PeriodDay.Bucket(ts))
	assert.Equal(t, "2026-01", PeriodMonth.Bucket(ts))
	assert.Equal(t, "2026", PeriodYear.Bucket(ts))

	// Jan 2 2026 falls into ISO week 1 of 2026.
	assert.Equal(t, "2026-01", PeriodWeek.Bucket(ts))

	// Dec 29 2025 belongs to ISO week 1 of 2026, not week 53 of 2025.
	assert.Equal(t, "2026-01", PeriodWeek.Bucket(time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-40", PeriodWeek.Bucket(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMetadataRoundTrip(t *testing.T) {
	m := Metadata{"language": "he", "chars": float64(120)}

	v, err := m.Value()
	assert.NoError(t, err)

	var out Metadata
	assert.NoError(t, out.Scan(v))
	assert.Equal(t, m, out)
}

func TestMetadataNilAndNull(t *testing.T) {
	var m Metadata
	v, err := m.Value()
	assert.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)

	var out Metadata
	assert.NoError(t, out.Scan(nil))
	assert.NotNil(t, out)
	assert.Empty(t, out)

	assert.NoError(t, out.Scan(`{"a": "b"}`))
	assert.Equal(t, Metadata{"a": "b"}, out)

	assert.Error(t, out.Scan(42))
}
