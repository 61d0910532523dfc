package billing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// commit prices items and returns the rows a checkout would append, ids starting at firstID.
func commit(firstID int64, name, phone string, at time.Time, items ...pricing.Item) []ledger.Row {
	lines, sum := pricing.DefaultRates.Compute(items)
	rows := ledger.Draft{CustomerName: name, CustomerPhone: phone, Lines: lines, BillFinal: sum.Final, BilledAt: at}.Rows()
	for i := range rows {
		rows[i].ID = firstID + int64(i)
	}
	return rows
}

func item(name, price string, qty int) pricing.Item {
	return pricing.Item{Name: name, UnitPrice: dec(price), Qty: qty}
}

func TestReconstructSingleBill(t *testing.T) {
	at := time.Date(2024, 5, 10, 9, 15, 0, 0, time.UTC)
	rows := commit(1, "Asha", "9876543210", at, item("Paracetamol", "10.00", 2), item("Cough Syrup", "50.00", 1))

	require.Len(t, rows, 2)
	for _, r := range rows {
		require.True(t, r.BillFinal.Equal(dec("67.62")))
	}

	bills := Reconstruct(rows, DayKey(time.UTC), NewestFirst)
	require.Len(t, bills, 1)
	b := bills[0]
	require.Equal(t, int64(1), b.BillID)
	require.True(t, b.BillFinal.Equal(dec("67.62")))
	require.Equal(t, 2, b.ItemCount)
	require.Equal(t, 3, b.TotalQuantity)
	require.True(t, b.Subtotal.Equal(dec("70.00")))
	require.True(t, b.Discount.Equal(dec("5.60")))
	require.True(t, b.Tax.Equal(dec("3.22")))
}

func TestRevenueDivergesFromRawRowSum(t *testing.T) {
	at := time.Date(2024, 5, 10, 9, 15, 0, 0, time.UTC)
	rows := commit(1, "Asha", "9876543210", at, item("Paracetamol", "10.00", 2), item("Cough Syrup", "50.00", 1))

	raw := decimal.Zero
	for _, r := range rows {
		raw = raw.Add(r.BillFinal)
	}
	revenue := Revenue(Reconstruct(rows, DayKey(time.UTC), NewestFirst))

	require.True(t, revenue.Equal(dec("67.62")))
	require.True(t, raw.Equal(dec("135.24")))
	require.False(t, revenue.Equal(raw))
}

func TestReconstructKeepsBillsWithEqualAmounts(t *testing.T) {
	at := time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC)
	rows := commit(1, "Asha", "9876543210", at, item("Bandage", "20.00", 1))
	rows = append(rows, commit(2, "Budi", "8123456789", at.Add(time.Hour), item("Bandage", "20.00", 1))...)

	bills := Reconstruct(rows, DayKey(time.UTC), NewestFirst)
	require.Len(t, bills, 2)
	require.True(t, bills[0].BillFinal.Equal(bills[1].BillFinal))
	require.True(t, Revenue(bills).Equal(bills[0].BillFinal.Mul(decimal.NewFromInt(2))))
}

func TestReconstructDeterministic(t *testing.T) {
	base := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	var rows []ledger.Row
	id := int64(1)
	for i := 0; i < 12; i++ {
		bill := commit(id, []string{"Asha", "Budi", "Citra"}[i%3], "9876543210", base.Add(time.Duration(i)*7*time.Hour),
			item("Paracetamol", "10.00", i%4+1), item("Vitamin C", "35.50", 1))
		rows = append(rows, bill...)
		id += int64(len(bill))
	}

	first := Reconstruct(rows, DayKey(time.UTC), NewestFirst)
	second := Reconstruct(rows, DayKey(time.UTC), NewestFirst)
	require.Equal(t, first, second)

	shuffled := make([]ledger.Row, len(rows))
	copy(shuffled, rows)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	require.Equal(t, first, Reconstruct(shuffled, DayKey(time.UTC), NewestFirst))
}

func TestReconstructOrdering(t *testing.T) {
	day := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	rows := commit(1, "Asha", "1111111", day, item("A", "1.00", 1))
	rows = append(rows, commit(2, "Budi", "2222222", day.AddDate(0, 0, 1), item("A", "1.00", 1))...)
	rows = append(rows, commit(3, "Citra", "3333333", day.AddDate(0, 0, 1), item("A", "1.00", 1))...)

	newest := Reconstruct(rows, DayKey(time.UTC), NewestFirst)
	require.Equal(t, []int64{3, 2, 1}, billIDs(newest))

	oldest := Reconstruct(rows, DayKey(time.UTC), OldestFirst)
	require.Equal(t, []int64{1, 2, 3}, billIDs(oldest))

	require.Len(t, Limit(newest, 2), 2)
	require.Len(t, Limit(newest, 0), 3)
}

func TestGroupingDayVersusTimestamp(t *testing.T) {
	morning := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	rows := commit(1, "Asha", "9876543210", morning, item("A", "10.00", 1))
	rows = append(rows, commit(2, "Asha", "9876543210", morning.Add(3*time.Hour), item("B", "30.00", 1))...)

	byDay := Reconstruct(rows, GroupByDay.KeyFunc(time.UTC), NewestFirst)
	require.Len(t, byDay, 1)
	require.Equal(t, int64(1), byDay[0].BillID)
	require.Equal(t, 2, byDay[0].ItemCount)
	require.Equal(t, morning.Add(3*time.Hour), byDay[0].BilledAt)

	byTimestamp := Reconstruct(rows, GroupByTimestamp.KeyFunc(time.UTC), NewestFirst)
	require.Len(t, byTimestamp, 2)
}

func TestDayKeyUsesLocation(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	// 20:00 UTC on the 10th is already the 11th at UTC+7.
	at := time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)
	row := commit(1, "Asha", "9876543210", at, item("A", "1.00", 1))[0]

	require.Equal(t, "2024-05-10", DayKey(time.UTC)(row).Period)
	require.Equal(t, "2024-05-11", DayKey(loc)(row).Period)
}

func TestParseGrouping(t *testing.T) {
	g, err := ParseGrouping("")
	require.NoError(t, err)
	require.Equal(t, GroupByDay, g)

	g, err = ParseGrouping("Timestamp")
	require.NoError(t, err)
	require.Equal(t, GroupByTimestamp, g)

	_, err = ParseGrouping("week")
	require.Error(t, err)
}

func TestFromSummaries(t *testing.T) {
	at := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	bills := FromSummaries([]ledger.BillSummary{{BillID: 4, CustomerName: "Asha", ItemCount: 2, BillFinal: dec("67.62"), BilledAt: at}})
	require.Len(t, bills, 1)
	require.Equal(t, int64(4), bills[0].BillID)
	require.True(t, bills[0].BillFinal.Equal(dec("67.62")))
}

func billIDs(bills []Bill) []int64 {
	ids := make([]int64, 0, len(bills))
	for _, b := range bills {
		ids = append(ids, b.BillID)
	}
	return ids
}
