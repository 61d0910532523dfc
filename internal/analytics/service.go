package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/billing"
	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/resilience"
)

var errNotConfigured = errors.New("analytics service not configured")

// Pushdown groups bills inside the storage engine. It must agree with
// billing.Reconstruct for the same rows.
type Pushdown interface {
	SummarizeBills(ctx context.Context, q ledger.SummaryQuery) ([]ledger.BillSummary, error)
}

// Limits are the default window sizes and list lengths of the reports.
type Limits struct {
	DailyDays     int
	MonthlyMonths int
	Recent        int
	Payments      int
	Top           int
}

// DefaultLimits matches the dashboard of the counter application.
var DefaultLimits = Limits{DailyDays: 15, MonthlyMonths: 12, Recent: 15, Payments: 100, Top: 5}

// Service builds read-only reports from reconstructed bills. Storage failures
// never surface as errors; the affected report is marked unavailable.
type Service struct {
	Store    ledger.Store
	Pushdown Pushdown
	R        *redis.Client
	TTL      time.Duration
	Grouping billing.Grouping
	Location *time.Location
	Limits   Limits
	Breaker  *resilience.Breaker
	Now      func() time.Time
	Log      zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *Service) limits() Limits {
	l := DefaultLimits
	if s == nil {
		return l
	}
	if s.Limits.DailyDays > 0 {
		l.DailyDays = s.Limits.DailyDays
	}
	if s.Limits.MonthlyMonths > 0 {
		l.MonthlyMonths = s.Limits.MonthlyMonths
	}
	if s.Limits.Recent > 0 {
		l.Recent = s.Limits.Recent
	}
	if s.Limits.Payments > 0 {
		l.Payments = s.Limits.Payments
	}
	if s.Limits.Top > 0 {
		l.Top = s.Limits.Top
	}
	return l
}

func (s *Service) keyFunc() billing.KeyFunc {
	return s.Grouping.KeyFunc(s.loc())
}

func (s *Service) rows(ctx context.Context, f ledger.Filter) ([]ledger.Row, error) {
	if s.Store == nil {
		return nil, errNotConfigured
	}
	return s.Store.List(ctx, f)
}

// bills returns at most limit bills within f, newest first.
func (s *Service) bills(ctx context.Context, f ledger.Filter, limit int) ([]billing.Bill, error) {
	if s.Pushdown != nil {
		sums, err := s.Pushdown.SummarizeBills(ctx, ledger.SummaryQuery{
			Filter:   f,
			ByDay:    s.Grouping != billing.GroupByTimestamp,
			Location: s.loc(),
			Limit:    limit,
		})
		if err != nil {
			return nil, err
		}
		return billing.FromSummaries(sums), nil
	}
	rows, err := s.rows(ctx, f)
	if err != nil {
		return nil, err
	}
	return billing.Limit(billing.Reconstruct(rows, s.keyFunc(), billing.NewestFirst), limit), nil
}

// report serves name from cache or computes it behind the breaker.
func report[T any](ctx context.Context, s *Service, name string, empty T, params []any, compute func(context.Context) (T, error)) Result[T] {
	if s == nil {
		obs.ObserveReport(name, string(StatusUnavailable))
		return Unavailable(empty)
	}
	key, cached := s.reportKey(ctx, name, params...)
	if cached {
		if v, ok := fromCache[T](ctx, s, key); ok {
			obs.ObserveReport(name, string(StatusOK))
			return Ok(v)
		}
	}

	var value T
	err := s.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		value, err = compute(ctx)
		return err
	})
	if err != nil {
		s.Log.Warn().Err(err).Str("report", name).Bool("storage_down", ledger.IsUnavailable(err)).Msg("analytics_unavailable")
		obs.ObserveReport(name, string(StatusUnavailable))
		return Unavailable(empty)
	}
	if cached {
		s.store(ctx, key, value)
	}
	obs.ObserveReport(name, string(StatusOK))
	return Ok(value)
}
