package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDailyBucketsZeroFillGaps(t *testing.T) {
	day1 := time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 5, 10, 16, 0, 0, 0, time.UTC)
	rows := commit(1, "Asha", "9876543210", day1, item("Paracetamol", "10.00", 2), item("Cough Syrup", "50.00", 1))
	rows = append(rows, commit(3, "Budi", "8123456789", day3, item("Bandage", "20.00", 1))...)
	bills := Reconstruct(rows, DayKey(time.UTC), NewestFirst)

	series := DailyBuckets(bills, day3, 3, time.UTC)
	require.Len(t, series, 3)
	require.Equal(t, []string{"2024-05-08", "2024-05-09", "2024-05-10"}, bucketKeys(series))
	require.Equal(t, "08 May", series[0].Label)
	require.True(t, series[0].Amount.Equal(dec("67.62")))
	require.Equal(t, 1, series[0].Bills)
	require.True(t, series[1].Amount.IsZero())
	require.Equal(t, 0, series[1].Bills)
	require.True(t, series[2].Amount.Equal(dec("19.32")))
}

func TestDailyBucketsIgnoreBillsOutsideWindow(t *testing.T) {
	end := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	rows := commit(1, "Asha", "9876543210", end.AddDate(0, 0, -5), item("A", "10.00", 1))
	bills := Reconstruct(rows, DayKey(time.UTC), NewestFirst)

	series := DailyBuckets(bills, end, 2, time.UTC)
	require.Len(t, series, 2)
	for _, b := range series {
		require.True(t, b.Amount.IsZero())
	}
	require.Empty(t, DailyBuckets(bills, end, 0, time.UTC))
}

func TestMonthlyBucketsAcrossYearBoundary(t *testing.T) {
	end := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	rows := commit(1, "Asha", "9876543210", time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC), item("A", "10.00", 1))
	rows = append(rows, commit(2, "Asha", "9876543210", time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), item("A", "10.00", 2))...)
	bills := Reconstruct(rows, DayKey(time.UTC), NewestFirst)

	series := MonthlyBuckets(bills, end, 3, time.UTC)
	require.Equal(t, []string{"2023-12", "2024-01", "2024-02"}, bucketKeys(series))
	require.Equal(t, "Dec 2023", series[0].Label)
	require.True(t, series[0].Amount.Equal(dec("9.66")))
	require.True(t, series[1].Amount.IsZero())
	require.True(t, series[2].Amount.Equal(dec("19.32")))
}

func TestWindows(t *testing.T) {
	end := time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)
	since, until := DailyWindow(end, 15, time.UTC)
	require.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), since)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), until)

	since, until = MonthlyWindow(end, 12, time.UTC)
	require.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), since)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), until)
}

func bucketKeys(series []Bucket) []string {
	keys := make([]string, 0, len(series))
	for _, b := range series {
		keys = append(keys, b.Key)
	}
	return keys
}
