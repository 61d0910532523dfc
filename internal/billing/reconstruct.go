package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/ledger"
)

// Bill is a logical bill rebuilt from its ledger rows.
type Bill struct {
	BillID        int64           `json:"billId"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	ItemCount     int             `json:"itemCount"`
	TotalQuantity int             `json:"totalQuantity"`
	BillFinal     decimal.Decimal `json:"billFinal"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	BilledAt      time.Time       `json:"billTimestamp"`
}

// Order selects the recency order of reconstructed bills.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// Reconstruct groups rows into bills using key. The bill amount is the
// largest BillFinal in the group, the id is the smallest row id and the
// timestamp is the latest row timestamp. Output is sorted by timestamp then
// id, so it depends only on the set of rows passed in.
func Reconstruct(rows []ledger.Row, key KeyFunc, order Order) []Bill {
	groups := make(map[Key]*Bill, len(rows))
	for _, r := range rows {
		k := key(r)
		b, ok := groups[k]
		if !ok {
			groups[k] = &Bill{
				BillID:        r.ID,
				CustomerName:  r.CustomerName,
				CustomerPhone: r.CustomerPhone,
				ItemCount:     1,
				TotalQuantity: r.Quantity,
				BillFinal:     r.BillFinal,
				Subtotal:      r.LineTotal,
				Discount:      r.LineDiscount,
				Tax:           r.LineTax,
				BilledAt:      r.BilledAt,
			}
			continue
		}
		if r.ID < b.BillID {
			b.BillID = r.ID
		}
		b.ItemCount++
		b.TotalQuantity += r.Quantity
		if r.BillFinal.GreaterThan(b.BillFinal) {
			b.BillFinal = r.BillFinal
		}
		b.Subtotal = b.Subtotal.Add(r.LineTotal)
		b.Discount = b.Discount.Add(r.LineDiscount)
		b.Tax = b.Tax.Add(r.LineTax)
		if r.BilledAt.After(b.BilledAt) {
			b.BilledAt = r.BilledAt
		}
	}

	bills := make([]Bill, 0, len(groups))
	for _, b := range groups {
		bills = append(bills, *b)
	}
	sortBills(bills, order)
	return bills
}

func sortBills(bills []Bill, order Order) {
	sort.Slice(bills, func(i, j int) bool {
		a, b := bills[i], bills[j]
		if !a.BilledAt.Equal(b.BilledAt) {
			if order == OldestFirst {
				return a.BilledAt.Before(b.BilledAt)
			}
			return a.BilledAt.After(b.BilledAt)
		}
		if order == OldestFirst {
			return a.BillID < b.BillID
		}
		return a.BillID > b.BillID
	})
}

// Revenue sums one amount per bill.
func Revenue(bills []Bill) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.BillFinal)
	}
	return total
}

// Limit returns at most n bills; n <= 0 returns all of them.
func Limit(bills []Bill, n int) []Bill {
	if n <= 0 || n >= len(bills) {
		return bills
	}
	return bills[:n]
}

// FromSummaries converts bills grouped by the storage engine.
func FromSummaries(sums []ledger.BillSummary) []Bill {
	bills := make([]Bill, 0, len(sums))
	for _, s := range sums {
		bills = append(bills, Bill{
			BillID:        s.BillID,
			CustomerName:  s.CustomerName,
			CustomerPhone: s.CustomerPhone,
			ItemCount:     s.ItemCount,
			TotalQuantity: s.TotalQuantity,
			BillFinal:     s.BillFinal,
			Subtotal:      s.Subtotal,
			Discount:      s.Discount,
			Tax:           s.Tax,
			BilledAt:      s.BilledAt,
		})
	}
	return bills
}
