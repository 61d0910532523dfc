package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Money is the decimal amount type used for every price and total.
type Money = decimal.Decimal

// Rates are the fractional discount and tax rates applied to each line.
type Rates struct {
	Discount Money
	Tax      Money
}

// DefaultRates applies an 8% discount followed by 5% tax on the discounted amount.
var DefaultRates = Rates{
	Discount: decimal.RequireFromString("0.08"),
	Tax:      decimal.RequireFromString("0.05"),
}

// Item describes a line item used for pricing calculation.
type Item struct {
	Name      string `json:"name"`
	UnitPrice Money  `json:"unitPrice"`
	Qty       int    `json:"quantity"`
	Shelf     string `json:"shelfLocation"`
}

// Line is an Item with its derived amounts, each rounded on its own.
type Line struct {
	Item
	LineTotal    Money `json:"lineTotal"`
	LineDiscount Money `json:"lineDiscount"`
	LineTax      Money `json:"lineTax"`
	LineFinal    Money `json:"lineFinal"`
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"totalDiscount"`
	Tax      Money `json:"totalTax"`
	Final    Money `json:"finalAmount"`
}

// Round rounds to two decimal places the way a binary float64 rounds: the
// nearest float to m is rounded, so 2.675 becomes 2.67 and 0.005 becomes 0.01.
func Round(m Money) Money {
	_, out := round2(m.InexactFloat64())
	return out
}

// round2 rounds the exact value of x to cents, ties to even. It returns the
// float carried into later steps and its decimal form.
func round2(x float64) (float64, Money) {
	s := strconv.FormatFloat(x, 'f', 2, 64)
	f, _ := strconv.ParseFloat(s, 64)
	return f, decimal.RequireFromString(s)
}

// Price computes the derived amounts for one item. Inputs are assumed validated.
// Intermediate values are float64 so every cent matches bills already in the ledger.
func (r Rates) Price(it Item) Line {
	total, lineTotal := round2(it.UnitPrice.InexactFloat64() * float64(it.Qty))
	discount, lineDiscount := round2(total * r.Discount.InexactFloat64())
	taxable := total - discount
	tax, lineTax := round2(taxable * r.Tax.InexactFloat64())
	_, lineFinal := round2(taxable + tax)
	return Line{
		Item:         it,
		LineTotal:    lineTotal,
		LineDiscount: lineDiscount,
		LineTax:      lineTax,
		LineFinal:    lineFinal,
	}
}

// Compute prices every item and sums the already rounded per-line values.
func (r Rates) Compute(items []Item) ([]Line, Summary) {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, r.Price(it))
	}
	return lines, Summarize(lines)
}

// Summarize adds up priced lines without re-rounding the sums.
func Summarize(lines []Line) Summary {
	sum := Summary{Subtotal: decimal.Zero, Discount: decimal.Zero, Tax: decimal.Zero, Final: decimal.Zero}
	for _, l := range lines {
		sum.Subtotal = sum.Subtotal.Add(l.LineTotal)
		sum.Discount = sum.Discount.Add(l.LineDiscount)
		sum.Tax = sum.Tax.Add(l.LineTax)
		sum.Final = sum.Final.Add(l.LineFinal)
	}
	return sum
}
