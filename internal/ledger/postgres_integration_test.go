package ledger_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/billing"
	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

func newPostgresStore(t *testing.T) *ledger.PostgresStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, ledger.Migrate(url))

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), "TRUNCATE ledger_rows RESTART IDENTITY")
	require.NoError(t, err)
	return ledger.NewPostgresStore(pool)
}

func commitBill(t *testing.T, w *ledger.Writer, name, phone string, at time.Time, items ...pricing.Item) []ledger.Row {
	t.Helper()
	lines, sum := pricing.DefaultRates.Compute(items)
	rows, err := w.Commit(context.Background(), ledger.Draft{
		CustomerName:  name,
		CustomerPhone: phone,
		Lines:         lines,
		BillFinal:     sum.Final,
		BilledAt:      at,
	})
	require.NoError(t, err)
	return rows
}

func priced(name, price string, qty int) pricing.Item {
	return pricing.Item{Name: name, UnitPrice: decimal.RequireFromString(price), Qty: qty}
}

func TestPostgresCommitAndList(t *testing.T) {
	store := newPostgresStore(t)
	w := &ledger.Writer{Store: store, Timeout: 5 * time.Second}
	at := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

	rows := commitBill(t, w, "Asha", "0812345678", at,
		priced("Paracetamol", "10.00", 2), priced("Cough Syrup", "50.00", 1))
	require.Len(t, rows, 2)
	require.Less(t, rows[0].ID, rows[1].ID)

	listed, err := store.List(context.Background(), ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, r := range listed {
		require.True(t, r.BillFinal.Equal(decimal.RequireFromString("67.62")), r.BillFinal.String())
		require.True(t, r.BilledAt.Equal(at))
	}
	require.True(t, listed[0].LineFinal().Equal(decimal.RequireFromString("19.32")))
}

func TestPostgresSummaryMatchesReconstruct(t *testing.T) {
	store := newPostgresStore(t)
	w := &ledger.Writer{Store: store}
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	commitBill(t, w, "Asha", "0812345678", day.Add(9*time.Hour), priced("Paracetamol", "10.00", 2))
	commitBill(t, w, "Asha", "0812345678", day.Add(15*time.Hour), priced("Cough Syrup", "50.00", 1))
	commitBill(t, w, "Budi", "0812000000", day.Add(15*time.Hour), priced("Vitamin C", "15.00", 3))
	commitBill(t, w, "Asha", "0812345678", day.Add(30*time.Hour), priced("Cetirizine", "8.75", 1))

	rows, err := store.List(context.Background(), ledger.Filter{})
	require.NoError(t, err)

	for _, grouping := range []billing.Grouping{billing.GroupByDay, billing.GroupByTimestamp} {
		t.Run(string(grouping), func(t *testing.T) {
			want := billing.Reconstruct(rows, grouping.KeyFunc(time.UTC), billing.NewestFirst)
			sums, err := store.SummarizeBills(context.Background(), ledger.SummaryQuery{
				ByDay:    grouping == billing.GroupByDay,
				Location: time.UTC,
			})
			require.NoError(t, err)
			got := billing.FromSummaries(sums)

			require.Len(t, got, len(want))
			for i := range want {
				require.Equal(t, want[i].BillID, got[i].BillID)
				require.Equal(t, want[i].ItemCount, got[i].ItemCount)
				require.True(t, want[i].BillFinal.Equal(got[i].BillFinal), "bill %d", want[i].BillID)
				require.True(t, want[i].BilledAt.Equal(got[i].BilledAt))
			}
			require.True(t, billing.Revenue(want).Equal(billing.Revenue(got)))
		})
	}
}

func TestPostgresSummaryLimitAndWindow(t *testing.T) {
	store := newPostgresStore(t)
	w := &ledger.Writer{Store: store}
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		commitBill(t, w, "Asha", "0812345678", base.AddDate(0, 0, i), priced("Paracetamol", "10.00", 1))
	}

	sums, err := store.SummarizeBills(context.Background(), ledger.SummaryQuery{
		Filter:   ledger.Filter{Since: base.AddDate(0, 0, 1)},
		ByDay:    true,
		Location: time.UTC,
		Limit:    2,
	})
	require.NoError(t, err)
	require.Len(t, sums, 2)
	require.True(t, sums[0].BilledAt.Equal(base.AddDate(0, 0, 3)))
	require.True(t, sums[1].BilledAt.Equal(base.AddDate(0, 0, 2)))
}
