package cart

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAddItemMergesByExactName(t *testing.T) {
	var c Cart
	require.NoError(t, c.AddItem("X", dec("10"), 2, "A-1"))
	require.NoError(t, c.AddItem("X", dec("10"), 3, "A-1"))
	require.NoError(t, c.AddItem("x", dec("10"), 1, "A-1"))

	require.Len(t, c.Items, 2)
	require.Equal(t, 5, c.Items[0].Qty)
	require.Equal(t, "x", c.Items[1].Name)
}

func TestAddItemRejectsBadFields(t *testing.T) {
	var c Cart
	cases := []struct {
		field string
		err   error
	}{
		{"name", c.AddItem(" ", dec("1"), 1, "")},
		{"price", c.AddItem("A", dec("-1"), 1, "")},
		{"quantity", c.AddItem("A", dec("1"), 0, "")},
		{"price", c.AddItem("A", dec("10.005"), 1, "")},
		{"price", c.AddItem("A", dec("10000000000.00"), 1, "")},
		{"quantity", c.AddItem("A", dec("1"), math.MaxInt32+1, "")},
	}
	for _, tc := range cases {
		var invalid *InvalidInputError
		require.ErrorAs(t, tc.err, &invalid)
		require.Equal(t, tc.field, invalid.Field)
	}
	require.True(t, c.Empty())
}

func TestAddItemKeepsLedgerColumnRanges(t *testing.T) {
	var c Cart
	require.NoError(t, c.AddItem("A", dec("10.000"), 1, ""))
	require.True(t, c.RemoveItem("A"))
	require.NoError(t, c.AddItem("B", dec("9999999999.99"), 1, ""))

	var invalid *InvalidInputError
	err := c.AddItem("C", dec("0.01"), 1, "")
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "quantity", invalid.Field)

	var big Cart
	require.NoError(t, big.AddItem("Cotton", dec("0.01"), math.MaxInt32, ""))
	err = big.AddItem("Cotton", dec("0.01"), 1, "")
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "quantity", invalid.Field)
	require.Equal(t, math.MaxInt32, big.Items[0].Qty)
}

func TestRemoveItemIdempotent(t *testing.T) {
	var c Cart
	require.NoError(t, c.AddItem("A", dec("1"), 1, ""))
	require.NoError(t, c.AddItem("B", dec("2"), 1, ""))

	require.True(t, c.RemoveItem("A"))
	require.False(t, c.RemoveItem("A"))
	require.False(t, c.RemoveItem("missing"))
	require.Len(t, c.Items, 1)
	require.Equal(t, "B", c.Items[0].Name)
}

func TestComputeTotalsSumsRoundedLines(t *testing.T) {
	var c Cart
	for _, name := range []string{"Cotton", "Gauze", "Swab"} {
		require.NoError(t, c.AddItem(name, dec("0.05"), 1, ""))
	}
	lines, sum := c.ComputeTotals(pricing.DefaultRates)
	require.Len(t, lines, 3)
	require.True(t, sum.Final.Equal(dec("0.15")), sum.Final.String())
}

func TestCheckoutEmptyCart(t *testing.T) {
	var c Cart
	_, err := c.Checkout(Customer{Name: "Asha", Phone: "9876543210"}, pricing.DefaultRates, time.Now())
	require.ErrorIs(t, err, ErrEmptyCart)
	require.True(t, c.Empty())
}

func TestCheckoutBuildsDraft(t *testing.T) {
	var c Cart
	require.NoError(t, c.AddItem("Paracetamol", dec("10.00"), 2, "A-1"))
	require.NoError(t, c.AddItem("Cough Syrup", dec("50.00"), 1, "B-4"))
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	d, err := c.Checkout(Customer{Name: " Asha ", Phone: "9876543210"}, pricing.DefaultRates, at)
	require.NoError(t, err)
	require.Equal(t, "Asha", d.CustomerName)
	require.True(t, d.BillFinal.Equal(dec("67.62")))
	require.Len(t, d.Lines, 2)

	rows := d.Rows()
	for _, row := range rows {
		require.Equal(t, at, row.BilledAt)
		require.True(t, row.BillFinal.Equal(dec("67.62")))
	}
	require.Len(t, c.Items, 2, "checkout leaves clearing to the caller")
}
