package analytics

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/billing"
	"github.com/noah-isme/backend-apotek/internal/ledger"
)

// Revenue is the sum of one amount per bill.
type Revenue struct {
	Amount decimal.Decimal `json:"totalRevenue"`
	Bills  int             `json:"bills"`
}

// TaxSummary adds up reconstructed bills, each counted once.
type TaxSummary struct {
	Bills    int             `json:"bills"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"totalDiscount"`
	Tax      decimal.Decimal `json:"totalTax"`
	Final    decimal.Decimal `json:"totalFinal"`
}

// CustomerActivity summarises one customer identified by name and phone.
type CustomerActivity struct {
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Bills         int             `json:"bills"`
	Lines         int             `json:"lines"`
	TotalQuantity int             `json:"totalQuantity"`
	DistinctItems int             `json:"distinctItems"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	LastVisit     time.Time       `json:"lastVisit"`
}

// Dashboard combines the owner reports in one payload.
type Dashboard struct {
	Revenue     Revenue             `json:"revenue"`
	Daily       []billing.Bucket    `json:"daily"`
	Monthly     []billing.Bucket    `json:"monthly"`
	TopSellers  []billing.ItemSales `json:"topSellers"`
	RecentBills []billing.Bill      `json:"recentBills"`
	TaxSummary  TaxSummary          `json:"taxSummary"`
}

// TotalRevenue sums the amount of every bill in the ledger.
func (s *Service) TotalRevenue(ctx context.Context) Result[Revenue] {
	empty := Revenue{Amount: decimal.Zero}
	return report(ctx, s, "revenue", empty, nil, func(ctx context.Context) (Revenue, error) {
		bills, err := s.bills(ctx, ledger.Filter{}, 0)
		if err != nil {
			return empty, err
		}
		return Revenue{Amount: billing.Revenue(bills), Bills: len(bills)}, nil
	})
}

// DailyTrend returns exactly days points ending today; days without bills are zero.
// An unavailable trend still carries days zero points.
func (s *Service) DailyTrend(ctx context.Context, days int) Result[[]billing.Bucket] {
	if days <= 0 {
		days = s.limits().DailyDays
	}
	now := s.now()
	loc := s.loc()
	since, until := billing.DailyWindow(now, days, loc)
	params := []any{days, since.Format(time.DateOnly)}
	return report(ctx, s, "daily", billing.DailyBuckets(nil, now, days, loc), params, func(ctx context.Context) ([]billing.Bucket, error) {
		bills, err := s.bills(ctx, ledger.Filter{Since: since, Until: until}, 0)
		if err != nil {
			return nil, err
		}
		return billing.DailyBuckets(bills, now, days, loc), nil
	})
}

// MonthlyTrend returns exactly months calendar-month points ending this month.
func (s *Service) MonthlyTrend(ctx context.Context, months int) Result[[]billing.Bucket] {
	if months <= 0 {
		months = s.limits().MonthlyMonths
	}
	now := s.now()
	loc := s.loc()
	since, until := billing.MonthlyWindow(now, months, loc)
	params := []any{months, since.Format("2006-01")}
	return report(ctx, s, "monthly", billing.MonthlyBuckets(nil, now, months, loc), params, func(ctx context.Context) ([]billing.Bucket, error) {
		bills, err := s.bills(ctx, ledger.Filter{Since: since, Until: until}, 0)
		if err != nil {
			return nil, err
		}
		return billing.MonthlyBuckets(bills, now, months, loc), nil
	})
}

// TopSellers ranks items by quantity sold across all rows.
func (s *Service) TopSellers(ctx context.Context, limit int) Result[[]billing.ItemSales] {
	if limit <= 0 {
		limit = s.limits().Top
	}
	return report(ctx, s, "top", []billing.ItemSales{}, []any{limit}, func(ctx context.Context) ([]billing.ItemSales, error) {
		rows, err := s.rows(ctx, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		items := billing.ItemTotals(rows)
		if len(items) > limit {
			items = items[:limit]
		}
		if items == nil {
			items = []billing.ItemSales{}
		}
		return items, nil
	})
}

// RecentBills lists the newest bills.
func (s *Service) RecentBills(ctx context.Context, limit int) Result[[]billing.Bill] {
	if limit <= 0 {
		limit = s.limits().Recent
	}
	return s.listing(ctx, "recent", limit)
}

// PaymentHistory lists bills with their subtotal, discount and tax sums.
func (s *Service) PaymentHistory(ctx context.Context, limit int) Result[[]billing.Bill] {
	if limit <= 0 {
		limit = s.limits().Payments
	}
	return s.listing(ctx, "payments", limit)
}

func (s *Service) listing(ctx context.Context, name string, limit int) Result[[]billing.Bill] {
	return report(ctx, s, name, []billing.Bill{}, []any{limit}, func(ctx context.Context) ([]billing.Bill, error) {
		return s.bills(ctx, ledger.Filter{}, limit)
	})
}

// TaxSummary totals every bill once.
func (s *Service) TaxSummary(ctx context.Context) Result[TaxSummary] {
	empty := TaxSummary{Subtotal: decimal.Zero, Discount: decimal.Zero, Tax: decimal.Zero, Final: decimal.Zero}
	return report(ctx, s, "tax", empty, nil, func(ctx context.Context) (TaxSummary, error) {
		bills, err := s.bills(ctx, ledger.Filter{}, 0)
		if err != nil {
			return empty, err
		}
		sum := empty
		for _, b := range bills {
			sum.Bills++
			sum.Subtotal = sum.Subtotal.Add(b.Subtotal)
			sum.Discount = sum.Discount.Add(b.Discount)
			sum.Tax = sum.Tax.Add(b.Tax)
			sum.Final = sum.Final.Add(b.BillFinal)
		}
		return sum, nil
	})
}

// Customers ranks customers by total spent, then by most recent visit.
func (s *Service) Customers(ctx context.Context, limit int) Result[[]CustomerActivity] {
	if limit <= 0 {
		limit = s.limits().Payments
	}
	return report(ctx, s, "customers", []CustomerActivity{}, []any{limit}, func(ctx context.Context) ([]CustomerActivity, error) {
		rows, err := s.rows(ctx, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		out := customerActivity(rows, s.keyFunc())
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	})
}

// Dashboard composes the owner reports. It is unavailable when any part is.
func (s *Service) Dashboard(ctx context.Context) Result[Dashboard] {
	l := s.limits()
	revenue := s.TotalRevenue(ctx)
	daily := s.DailyTrend(ctx, l.DailyDays)
	monthly := s.MonthlyTrend(ctx, l.MonthlyMonths)
	top := s.TopSellers(ctx, l.Top)
	recent := s.RecentBills(ctx, l.Recent)
	tax := s.TaxSummary(ctx)

	d := Dashboard{
		Revenue:     revenue.Data,
		Daily:       daily.Data,
		Monthly:     monthly.Data,
		TopSellers:  top.Data,
		RecentBills: recent.Data,
		TaxSummary:  tax.Data,
	}
	if revenue.OK() && daily.OK() && monthly.OK() && top.OK() && recent.OK() && tax.OK() {
		return Ok(d)
	}
	return Unavailable(d)
}

// Warm recomputes the cached reports.
func (s *Service) Warm(ctx context.Context) error {
	if s == nil {
		return errNotConfigured
	}
	if !s.Dashboard(ctx).OK() {
		return errors.New("analytics: dashboard unavailable")
	}
	l := s.limits()
	if !s.PaymentHistory(ctx, l.Payments).OK() || !s.Customers(ctx, l.Payments).OK() {
		return errors.New("analytics: listings unavailable")
	}
	return nil
}

type customer struct {
	name  string
	phone string
}

func customerActivity(rows []ledger.Row, key billing.KeyFunc) []CustomerActivity {
	index := make(map[customer]int)
	items := make(map[customer]map[string]struct{})
	out := []CustomerActivity{}
	for _, r := range rows {
		c := customer{name: r.CustomerName, phone: r.CustomerPhone}
		i, ok := index[c]
		if !ok {
			i = len(out)
			index[c] = i
			items[c] = make(map[string]struct{})
			out = append(out, CustomerActivity{CustomerName: c.name, CustomerPhone: c.phone, TotalSpent: decimal.Zero})
		}
		out[i].Lines++
		out[i].TotalQuantity += r.Quantity
		items[c][r.ItemName] = struct{}{}
		if r.BilledAt.After(out[i].LastVisit) {
			out[i].LastVisit = r.BilledAt
		}
	}
	for _, b := range billing.Reconstruct(rows, key, billing.NewestFirst) {
		c := customer{name: b.CustomerName, phone: b.CustomerPhone}
		i := index[c]
		out[i].Bills++
		out[i].TotalSpent = out[i].TotalSpent.Add(b.BillFinal)
	}
	for c, i := range index {
		out[i].DistinctItems = len(items[c])
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.TotalSpent.Equal(b.TotalSpent) {
			return a.TotalSpent.GreaterThan(b.TotalSpent)
		}
		if !a.LastVisit.Equal(b.LastVisit) {
			return a.LastVisit.After(b.LastVisit)
		}
		if a.CustomerName != b.CustomerName {
			return a.CustomerName < b.CustomerName
		}
		return a.CustomerPhone < b.CustomerPhone
	})
	return out
}
