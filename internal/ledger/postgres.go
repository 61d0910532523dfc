package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const insertRowSQL = `
INSERT INTO ledger_rows (
	customer_name, customer_phone, item_name, unit_price, quantity,
	line_total, line_discount, line_tax, bill_final, billed_at
) VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10)
RETURNING id`

const listRowsSQL = `
SELECT id, customer_name, customer_phone, item_name, unit_price::text, quantity,
	line_total::text, line_discount::text, line_tax::text, bill_final::text, billed_at
FROM ledger_rows
WHERE ($1::timestamptz IS NULL OR billed_at >= $1)
  AND ($2::timestamptz IS NULL OR billed_at < $2)
ORDER BY id`

// PostgresStore persists ledger rows in Postgres. Each Append runs in one transaction.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, rows []Row) ([]Row, error) {
	if s == nil || s.Pool == nil {
		return nil, &StorageUnavailableError{Op: "append", Err: fmt.Errorf("postgres store not configured")}
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, classify("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]Row, 0, len(rows))
	for i, row := range rows {
		err := tx.QueryRow(ctx, insertRowSQL,
			row.CustomerName,
			row.CustomerPhone,
			row.ItemName,
			row.UnitPrice.String(),
			row.Quantity,
			row.LineTotal.String(),
			row.LineDiscount.String(),
			row.LineTax.String(),
			row.BillFinal.String(),
			row.BilledAt,
		).Scan(&row.ID)
		if err != nil {
			return nil, &PartialCommitError{Written: i, Total: len(rows), Err: classify("insert", err)}
		}
		out = append(out, row)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &PartialCommitError{Written: len(rows), Total: len(rows), Err: classify("commit", err)}
	}
	return out, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Row, error) {
	if s == nil || s.Pool == nil {
		return nil, &StorageUnavailableError{Op: "list", Err: fmt.Errorf("postgres store not configured")}
	}
	rows, err := s.Pool.Query(ctx, listRowsSQL, optionalTime(f.Since), optionalTime(f.Until))
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var unitPrice, total, discount, tax, billFinal string
		if err := rows.Scan(&row.ID, &row.CustomerName, &row.CustomerPhone, &row.ItemName, &unitPrice, &row.Quantity,
			&total, &discount, &tax, &billFinal, &row.BilledAt); err != nil {
			return nil, classify("scan", err)
		}
		if err := parseDecimals(
			decimalField{unitPrice, &row.UnitPrice},
			decimalField{total, &row.LineTotal},
			decimalField{discount, &row.LineDiscount},
			decimalField{tax, &row.LineTax},
			decimalField{billFinal, &row.BillFinal},
		); err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", row.ID, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", err)
	}
	return out, nil
}

type decimalField struct {
	raw string
	dst *decimal.Decimal
}

func parseDecimals(fields ...decimalField) error {
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", f.raw, err)
		}
		*f.dst = v
	}
	return nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
