package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

func ymd(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestResolveWeeklyStartsMonday(t *testing.T) {
	cases := map[string]time.Time{
		"wednesday": time.Date(2024, 1, 17, 18, 0, 0, 0, time.UTC),
		"monday":    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"sunday":    time.Date(2024, 1, 21, 23, 59, 0, 0, time.UTC),
	}
	for name, now := range cases {
		w := Resolve(RangeWeekly, now, YearFull)
		assert.Equal(t, ymd(2024, 1, 15), w.Range.From, name)
		assert.Equal(t, ymd(2024, 1, 21), w.Range.To, name)
		assert.Equal(t, GranularityDay, w.Granularity, name)
	}
}

func TestResolveMonthlyCoversCalendarMonth(t *testing.T) {
	w := Resolve(RangeMonthly, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), YearFull)
	assert.Equal(t, ymd(2024, 2, 1), w.Range.From)
	assert.Equal(t, ymd(2024, 2, 29), w.Range.To)
	assert.Len(t, w.Buckets(), 29)
}

func TestResolveYearlyModes(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	full := Resolve(RangeYearly, now, YearFull)
	assert.Equal(t, ymd(2024, 1, 1), full.Range.From)
	assert.Equal(t, ymd(2024, 12, 31), full.Range.To)
	assert.Len(t, full.Buckets(), 12)

	toDate := Resolve(RangeYearly, now, YearToDate)
	assert.Equal(t, ymd(2024, 6, 15), toDate.Range.To)
	assert.Len(t, toDate.Buckets(), 6)
	assert.Equal(t, "Jun 24", GranularityMonth.Label(toDate.Buckets()[5]))
}

func TestParseRangePolicy(t *testing.T) {
	for raw, want := range map[string]RangePolicy{
		"":        RangeMonthly,
		"week":    RangeWeekly,
		"WEEKLY":  RangeWeekly,
		"month":   RangeMonthly,
		"year":    RangeYearly,
		" yearly": RangeYearly,
	} {
		got, err := ParseRangePolicy(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseRangePolicy("quarterly")
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestPreviousYearShiftsWindow(t *testing.T) {
	r := Day(time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)).PreviousYear()
	assert.Equal(t, ymd(2023, 3, 9), r.From)
	assert.Equal(t, ymd(2023, 3, 9), r.To)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, ymd(2024, 2, 29), got)
	_, err = ParseDate("29/02/2024")
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}
