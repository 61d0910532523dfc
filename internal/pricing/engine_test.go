package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) Money { return decimal.RequireFromString(s) }

func TestPriceLineAmounts(t *testing.T) {
	line := DefaultRates.Price(Item{Name: "Paracetamol", UnitPrice: dec("10.00"), Qty: 2})
	require.True(t, line.LineTotal.Equal(dec("20.00")))
	require.True(t, line.LineDiscount.Equal(dec("1.60")))
	require.True(t, line.LineTax.Equal(dec("0.92")))
	require.True(t, line.LineFinal.Equal(dec("19.32")), line.LineFinal.String())

	syrup := DefaultRates.Price(Item{Name: "Cough Syrup", UnitPrice: dec("50.00"), Qty: 1})
	require.True(t, syrup.LineFinal.Equal(dec("48.30")), syrup.LineFinal.String())
}

func TestComputeSumsRoundedLines(t *testing.T) {
	items := []Item{
		{Name: "Cotton", UnitPrice: dec("0.05"), Qty: 1},
		{Name: "Gauze", UnitPrice: dec("0.05"), Qty: 1},
		{Name: "Swab", UnitPrice: dec("0.05"), Qty: 1},
	}
	lines, sum := DefaultRates.Compute(items)
	require.Len(t, lines, 3)
	for _, l := range lines {
		require.True(t, l.LineFinal.Equal(dec("0.05")), l.LineFinal.String())
	}
	require.True(t, sum.Final.Equal(dec("0.15")), sum.Final.String())

	// Rounding once at the end lands on a different cent.
	raw := dec("0.15").Mul(dec("0.92")).Mul(dec("1.05"))
	require.True(t, Round(raw).Equal(dec("0.14")), Round(raw).String())
	require.False(t, sum.Final.Equal(Round(raw)))
}

func TestSummarizeTotals(t *testing.T) {
	_, sum := DefaultRates.Compute([]Item{
		{Name: "Paracetamol", UnitPrice: dec("10.00"), Qty: 2},
		{Name: "Cough Syrup", UnitPrice: dec("50.00"), Qty: 1},
	})
	require.True(t, sum.Subtotal.Equal(dec("70.00")))
	require.True(t, sum.Discount.Equal(dec("5.60")))
	require.True(t, sum.Tax.Equal(dec("3.22")))
	require.True(t, sum.Final.Equal(dec("67.62")))
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	require.True(t, sum.Final.IsZero())
	require.True(t, sum.Subtotal.IsZero())
}

func TestPriceSmallAmountsRoundLikeFloats(t *testing.T) {
	line := DefaultRates.Price(Item{Name: "Lozenge", UnitPrice: dec("0.11"), Qty: 1})
	require.True(t, line.LineTotal.Equal(dec("0.11")), line.LineTotal.String())
	require.True(t, line.LineDiscount.Equal(dec("0.01")), line.LineDiscount.String())
	require.True(t, line.LineTax.Equal(dec("0.01")), line.LineTax.String())
	require.True(t, line.LineFinal.Equal(dec("0.11")), line.LineFinal.String())

	bulk := DefaultRates.Price(Item{Name: "Bandage", UnitPrice: dec("19.99"), Qty: 3})
	require.True(t, bulk.LineTotal.Equal(dec("59.97")))
	require.True(t, bulk.LineDiscount.Equal(dec("4.80")))
	require.True(t, bulk.LineTax.Equal(dec("2.76")))
	require.True(t, bulk.LineFinal.Equal(dec("57.93")), bulk.LineFinal.String())
}

func TestRoundMatchesBinaryFloat(t *testing.T) {
	cases := map[string]string{
		"0.125": "0.12",
		"0.135": "0.14",
		"0.145": "0.14",
		"2.675": "2.67",
		"2.001": "2.00",
		"0.005": "0.01",
	}
	for in, want := range cases {
		got := Round(dec(in))
		require.True(t, got.Equal(dec(want)), "%s rounded to %s", in, got.String())
	}
}
