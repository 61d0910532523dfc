package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	dailyLabel   = "02 Jan"
	monthlyKey   = "2006-01"
	monthlyLabel = "Jan 2006"
)

// Bucket is one point of a trend series.
type Bucket struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Start  time.Time       `json:"start"`
	Amount decimal.Decimal `json:"amount"`
	Bills  int             `json:"bills"`
}

// DailyWindow returns the half-open range covering the last days calendar
// days up to and including the day of end, in loc.
func DailyWindow(end time.Time, days int, loc *time.Location) (time.Time, time.Time) {
	last := startOfDay(end, loc)
	return last.AddDate(0, 0, -(days - 1)), last.AddDate(0, 0, 1)
}

// MonthlyWindow returns the half-open range covering the last months calendar
// months up to and including the month of end, in loc.
func MonthlyWindow(end time.Time, months int, loc *time.Location) (time.Time, time.Time) {
	last := startOfMonth(end, loc)
	return last.AddDate(0, -(months - 1), 0), last.AddDate(0, 1, 0)
}

// DailyBuckets sums bill amounts per day. The series always has days points;
// days without bills are zero.
func DailyBuckets(bills []Bill, end time.Time, days int, loc *time.Location) []Bucket {
	if days <= 0 {
		return []Bucket{}
	}
	loc = orUTC(loc)
	first, _ := DailyWindow(end, days, loc)
	series := make([]Bucket, days)
	index := make(map[string]int, days)
	for i := range series {
		day := first.AddDate(0, 0, i)
		key := day.Format(time.DateOnly)
		series[i] = Bucket{Key: key, Label: day.Format(dailyLabel), Start: day, Amount: decimal.Zero}
		index[key] = i
	}
	fill(series, index, bills, func(t time.Time) string { return t.In(loc).Format(time.DateOnly) })
	return series
}

// MonthlyBuckets sums bill amounts per calendar month. The series always has
// months points; months without bills are zero.
func MonthlyBuckets(bills []Bill, end time.Time, months int, loc *time.Location) []Bucket {
	if months <= 0 {
		return []Bucket{}
	}
	loc = orUTC(loc)
	first, _ := MonthlyWindow(end, months, loc)
	series := make([]Bucket, months)
	index := make(map[string]int, months)
	for i := range series {
		month := first.AddDate(0, i, 0)
		key := month.Format(monthlyKey)
		series[i] = Bucket{Key: key, Label: month.Format(monthlyLabel), Start: month, Amount: decimal.Zero}
		index[key] = i
	}
	fill(series, index, bills, func(t time.Time) string { return t.In(loc).Format(monthlyKey) })
	return series
}

func fill(series []Bucket, index map[string]int, bills []Bill, keyOf func(time.Time) string) {
	for _, b := range bills {
		i, ok := index[keyOf(b.BilledAt)]
		if !ok {
			continue
		}
		series[i].Amount = series[i].Amount.Add(b.BillFinal)
		series[i].Bills++
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(orUTC(loc))
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(orUTC(loc))
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
