package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/pricing"
)

// Row is one persisted line item. BillFinal repeats the bill total on every row of the bill.
type Row struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	ItemName      string          `json:"itemName"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
	LineDiscount  decimal.Decimal `json:"lineDiscount"`
	LineTax       decimal.Decimal `json:"lineTax"`
	BillFinal     decimal.Decimal `json:"billFinal"`
	BilledAt      time.Time       `json:"billTimestamp"`
}

// LineFinal is the row's own share of the bill. The stored line amounts are
// already rounded, so the difference is exact.
func (r Row) LineFinal() decimal.Decimal {
	return r.LineTotal.Sub(r.LineDiscount).Add(r.LineTax)
}

// Draft is a priced bill ready to be appended.
type Draft struct {
	CustomerName  string
	CustomerPhone string
	Lines         []pricing.Line
	BillFinal     decimal.Decimal
	BilledAt      time.Time
}

// Rows expands the draft into one row per line, all sharing BillFinal and BilledAt.
func (d Draft) Rows() []Row {
	rows := make([]Row, 0, len(d.Lines))
	for _, l := range d.Lines {
		rows = append(rows, Row{
			CustomerName:  d.CustomerName,
			CustomerPhone: d.CustomerPhone,
			ItemName:      l.Name,
			UnitPrice:     l.UnitPrice,
			Quantity:      l.Qty,
			LineTotal:     l.LineTotal,
			LineDiscount:  l.LineDiscount,
			LineTax:       l.LineTax,
			BillFinal:     d.BillFinal,
			BilledAt:      d.BilledAt,
		})
	}
	return rows
}

// Filter bounds a read by bill timestamp. Zero values are unbounded; Until is exclusive.
type Filter struct {
	Since time.Time
	Until time.Time
}

func (f Filter) match(t time.Time) bool {
	if !f.Since.IsZero() && t.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !t.Before(f.Until) {
		return false
	}
	return true
}

// Store is append-only ledger storage.
type Store interface {
	// Append persists every row or none and returns them with assigned ids.
	Append(ctx context.Context, rows []Row) ([]Row, error)
	// List returns matching rows ordered by ascending id.
	List(ctx context.Context, f Filter) ([]Row, error)
}
