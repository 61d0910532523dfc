package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BillSummary is one bill grouped inside Postgres.
type BillSummary struct {
	BillID        int64
	CustomerName  string
	CustomerPhone string
	ItemCount     int
	TotalQuantity int
	BillFinal     decimal.Decimal
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	BilledAt      time.Time
}

// SummaryQuery selects the grouping and window for SummarizeBills.
type SummaryQuery struct {
	Filter
	// ByDay groups on the calendar day in Location; otherwise on the exact timestamp.
	ByDay    bool
	Location *time.Location
	// Limit of zero returns every bill.
	Limit int
}

const summarizeBillsSQL = `
SELECT MIN(id), customer_name, customer_phone, COUNT(*), SUM(quantity),
	MAX(bill_final)::text, SUM(line_total)::text, SUM(line_discount)::text, SUM(line_tax)::text,
	MAX(billed_at)
FROM ledger_rows
WHERE ($1::timestamptz IS NULL OR billed_at >= $1)
  AND ($2::timestamptz IS NULL OR billed_at < $2)
GROUP BY customer_name, customer_phone,
	CASE WHEN $3::boolean THEN date_trunc('day', billed_at AT TIME ZONE $4::text)
	     ELSE billed_at AT TIME ZONE 'UTC' END
ORDER BY MAX(billed_at) DESC, MIN(id) DESC
LIMIT NULLIF($5::int, 0)`

// SummarizeBills pushes bill grouping into Postgres. It follows the same
// grouping key and ordering as billing.Reconstruct.
func (s *PostgresStore) SummarizeBills(ctx context.Context, q SummaryQuery) ([]BillSummary, error) {
	if s == nil || s.Pool == nil {
		return nil, &StorageUnavailableError{Op: "summarize", Err: fmt.Errorf("postgres store not configured")}
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	rows, err := s.Pool.Query(ctx, summarizeBillsSQL,
		optionalTime(q.Since), optionalTime(q.Until), q.ByDay, loc.String(), q.Limit)
	if err != nil {
		return nil, classify("summarize", err)
	}
	defer rows.Close()

	var out []BillSummary
	for rows.Next() {
		var b BillSummary
		var final, subtotal, discount, tax string
		if err := rows.Scan(&b.BillID, &b.CustomerName, &b.CustomerPhone, &b.ItemCount, &b.TotalQuantity,
			&final, &subtotal, &discount, &tax, &b.BilledAt); err != nil {
			return nil, classify("scan", err)
		}
		if err := parseDecimals(
			decimalField{final, &b.BillFinal},
			decimalField{subtotal, &b.Subtotal},
			decimalField{discount, &b.Discount},
			decimalField{tax, &b.Tax},
		); err != nil {
			return nil, fmt.Errorf("bill %d: %w", b.BillID, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("summarize", err)
	}
	return out, nil
}
