package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

// RangePolicy selects the reporting window relative to "now".
type RangePolicy string

const (
	RangeWeekly  RangePolicy = "weekly"
	RangeMonthly RangePolicy = "monthly"
	RangeYearly  RangePolicy = "yearly"
)

// YearMode decides where a yearly window ends.
type YearMode int

const (
	// YearFull covers Jan 1 through Dec 31.
	YearFull YearMode = iota
	// YearToDate covers Jan 1 through today, a running total.
	YearToDate
)

// Granularity is the bucket width of a time series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

const dateLayout = "2006-01-02"

// ParseRangePolicy accepts weekly|week, monthly|month and yearly|year.
// An empty value selects the monthly window.
func ParseRangePolicy(raw string) (RangePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return RangeMonthly, nil
	case "weekly", "week":
		return RangeWeekly, nil
	case "monthly", "month":
		return RangeMonthly, nil
	case "yearly", "year":
		return RangeYearly, nil
	default:
		return "", fmt.Errorf("%w: unknown range %q", httpx.ErrValidation, raw)
	}
}

// DateRange is an inclusive window of calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Window is a resolved range plus the bucket width used to chart it.
type Window struct {
	Policy      RangePolicy
	Range       DateRange
	Granularity Granularity
}

// Resolve turns a policy into a concrete window around now.
func Resolve(policy RangePolicy, now time.Time, mode YearMode) Window {
	today := civilDate(now)
	switch policy {
	case RangeWeekly:
		offset := (int(today.Weekday()) + 6) % 7
		from := today.AddDate(0, 0, -offset)
		return Window{Policy: policy, Range: DateRange{From: from, To: from.AddDate(0, 0, 6)}, Granularity: GranularityDay}
	case RangeYearly:
		from := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		if mode == YearToDate {
			to = today
		}
		return Window{Policy: policy, Range: DateRange{From: from, To: to}, Granularity: GranularityMonth}
	default:
		from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Policy: RangeMonthly, Range: DateRange{From: from, To: from.AddDate(0, 1, -1)}, Granularity: GranularityDay}
	}
}

// Day returns the single-day window for a report date.
func Day(date time.Time) DateRange {
	d := civilDate(date)
	return DateRange{From: d, To: d}
}

// PreviousYear shifts the range back by one calendar year.
func (r DateRange) PreviousYear() DateRange {
	return DateRange{From: r.From.AddDate(-1, 0, 0), To: r.To.AddDate(-1, 0, 0)}
}

// Buckets lists every bucket start inside the range.
func (w Window) Buckets() []time.Time {
	var out []time.Time
	for cur := bucketStart(w.Range.From, w.Granularity); !cur.After(w.Range.To); cur = bucketNext(cur, w.Granularity) {
		out = append(out, cur)
	}
	return out
}

// Label formats a bucket for chart axes: "02 Jan" per day, "Jan 06" per month.
func (g Granularity) Label(t time.Time) string {
	if g == GranularityMonth {
		return t.Format("Jan 06")
	}
	return t.Format("02 Jan")
}

// unit is the date_trunc field; never built from user input.
func (g Granularity) unit() string {
	if g == GranularityMonth {
		return "month"
	}
	return "day"
}

func bucketStart(t time.Time, g Granularity) time.Time {
	d := civilDate(t)
	if g == GranularityMonth {
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return d
}

func bucketNext(t time.Time, g Granularity) time.Time {
	if g == GranularityMonth {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD report date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", httpx.ErrValidation, raw)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}
