package checkout

import (
	"context"
	"errors"
	"strconv"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

// Committer appends a priced bill to the ledger.
type Committer interface {
	Commit(ctx context.Context, d ledger.Draft) ([]ledger.Row, error)
}

// Locker serialises checkouts of one session.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service turns a session cart into a committed bill.
type Service struct {
	Sessions cart.SessionStore
	Ledger   Committer
	Locker   Locker
	LockTTL  time.Duration
	Events   Emitter
	Validate *validator.Validate
	Rates    pricing.Rates
	Now      func() time.Time
	Log      zerolog.Logger
}

// BillCommitted is the payload of events.TopicBillCommitted.
type BillCommitted struct {
	BillID        int64     `json:"billId"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	Rows          int       `json:"rows"`
	BillFinal     string    `json:"billFinal"`
	BilledAt      time.Time `json:"billTimestamp"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) rates() pricing.Rates {
	if s.Rates.Discount.IsZero() && s.Rates.Tax.IsZero() {
		return pricing.DefaultRates
	}
	return s.Rates
}

// Checkout commits the session cart for customer. On success the cart is
// cleared and the receipt kept on the session. On failure the cart is left as it was.
func (s *Service) Checkout(ctx context.Context, sessionID string, customer cart.Customer) (cart.Receipt, error) {
	if s == nil || s.Sessions == nil || s.Ledger == nil {
		return cart.Receipt{}, errors.New("checkout service not configured")
	}
	if err := s.validate(customer); err != nil {
		obs.ObserveCheckout("invalid")
		return cart.Receipt{}, err
	}
	var receipt cart.Receipt
	run := func(ctx context.Context) error {
		var err error
		receipt, err = s.checkout(ctx, sessionID, customer)
		return err
	}
	var err error
	if s.Locker != nil {
		ttl := s.LockTTL
		if ttl <= 0 {
			ttl = 15 * time.Second
		}
		err = s.Locker.WithLock(ctx, "checkout:"+sessionID, ttl, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return cart.Receipt{}, err
	}
	return receipt, nil
}

func (s *Service) checkout(ctx context.Context, sessionID string, customer cart.Customer) (cart.Receipt, error) {
	sess, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		return cart.Receipt{}, err
	}
	draft, err := sess.Cart.Checkout(customer, s.rates(), s.now().UTC())
	if err != nil {
		obs.ObserveCheckout("empty")
		return cart.Receipt{}, err
	}

	rows, err := s.Ledger.Commit(ctx, draft)
	if err != nil {
		obs.ObserveCheckout("failed")
		s.Log.Error().Err(err).Str("session", sessionID).Int("lines", len(draft.Lines)).Msg("bill_commit_failed")
		return cart.Receipt{}, err
	}

	receipt := cart.Receipt{
		BillID:        minID(rows),
		CustomerName:  draft.CustomerName,
		CustomerPhone: draft.CustomerPhone,
		Lines:         draft.Lines,
		Totals:        pricing.Summarize(draft.Lines),
		BilledAt:      draft.BilledAt,
	}
	sess.Cart.Clear()
	sess.LastReceipt = &receipt
	if err := s.saveAfterCommit(ctx, sess); err != nil {
		s.Log.Error().Err(err).Int64("bill_id", receipt.BillID).Str("session", sessionID).Msg("session_save_failed_after_commit")
		receipt.Warning = StaleCartWarning
	}
	obs.ObserveCheckout("ok")
	s.Log.Info().
		Int64("bill_id", receipt.BillID).
		Int("rows", len(rows)).
		Str("bill_final", draft.BillFinal.StringFixed(2)).
		Msg("bill_committed")

	if s.Events != nil {
		payload := BillCommitted{
			BillID:        receipt.BillID,
			CustomerName:  receipt.CustomerName,
			CustomerPhone: receipt.CustomerPhone,
			Rows:          len(rows),
			BillFinal:     draft.BillFinal.StringFixed(2),
			BilledAt:      draft.BilledAt,
		}
		if _, err := s.Events.Emit(ctx, events.TopicBillCommitted, strconv.FormatInt(receipt.BillID, 10), payload); err != nil {
			s.Log.Warn().Err(err).Int64("bill_id", receipt.BillID).Msg("bill_event_failed")
		}
	}
	return receipt, nil
}

// StaleCartWarning is returned on a receipt whose bill committed while the
// session still holds the checked-out cart.
const StaleCartWarning = "bill saved but the cart could not be cleared; clear it before checking out again"

const saveAttempts = 3

// saveAfterCommit persists the cleared cart. The bill is already in the
// ledger, so a cancelled request context does not stop the retries.
func (s *Service) saveAfterCommit(ctx context.Context, sess *cart.Session) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		if err = s.Sessions.Save(ctx, sess); err == nil {
			return nil
		}
		s.Log.Warn().Err(err).Int("attempt", attempt).Msg("session_save_retry")
		if attempt < saveAttempts {
			time.Sleep(time.Duration(attempt) * 20 * time.Millisecond)
		}
	}
	return err
}

func (s *Service) validate(customer cart.Customer) error {
	v := s.Validate
	if v == nil {
		v = common.NewValidator()
	}
	err := v.Struct(customer)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &cart.InvalidInputError{Field: verrs[0].Field(), Reason: "failed " + verrs[0].Tag() + " rule"}
	}
	return err
}

func minID(rows []ledger.Row) int64 {
	var id int64
	for i, r := range rows {
		if i == 0 || r.ID < id {
			id = r.ID
		}
	}
	return id
}
