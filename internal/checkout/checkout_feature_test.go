package checkout_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/billing"
	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/checkout"
	"github.com/noah-isme/backend-apotek/internal/ledger"
)

type checkoutTestContext struct {
	session  string
	sessions *cart.MemorySessionStore
	store    *ledger.MemoryStore
	svc      *checkout.Service
	receipt  cart.Receipt
	err      error
}

func (c *checkoutTestContext) reset() {
	c.sessions = cart.NewMemorySessionStore()
	c.store = ledger.NewMemoryStore()
	c.svc = &checkout.Service{
		Sessions: c.sessions,
		Ledger:   &ledger.Writer{Store: c.store},
		Now:      func() time.Time { return time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC) },
		Log:      zerolog.Nop(),
	}
	c.receipt = cart.Receipt{}
	c.err = nil
}

func (c *checkoutTestContext) anEmptyCartForSession(session string) error {
	c.session = session
	sess, err := c.sessions.Load(context.Background(), session)
	if err != nil {
		return err
	}
	if !sess.Cart.Empty() {
		return errors.New("cart is not empty")
	}
	return nil
}

func (c *checkoutTestContext) theLedgerFailsOnRow(n int) error {
	c.store.FailRow = func(index int, _ ledger.Row) error {
		if index == n-1 {
			return fmt.Errorf("row %d rejected", n)
		}
		return nil
	}
	return nil
}

func (c *checkoutTestContext) iAddAtWithQuantity(name, price string, qty int) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	sess, err := c.sessions.Load(context.Background(), c.session)
	if err != nil {
		return err
	}
	if err := sess.Cart.AddItem(name, p, qty, ""); err != nil {
		return err
	}
	return c.sessions.Save(context.Background(), sess)
}

func (c *checkoutTestContext) iCheckOutForWithPhone(name, phone string) error {
	c.receipt, c.err = c.svc.Checkout(context.Background(), c.session, cart.Customer{Name: name, Phone: phone})
	return nil
}

func (c *checkoutTestContext) theCheckoutSucceedsWithBillFinal(final string) error {
	if c.err != nil {
		return fmt.Errorf("checkout failed: %w", c.err)
	}
	return equalAmount(c.receipt.Totals.Final, final)
}

func (c *checkoutTestContext) checkoutFailsBecauseTheCartIsEmpty() error {
	if !errors.Is(c.err, cart.ErrEmptyCart) {
		return fmt.Errorf("expected empty cart error, got %v", c.err)
	}
	return nil
}

func (c *checkoutTestContext) checkoutFailsWithARetryableCommitError() error {
	var partial *ledger.PartialCommitError
	if !errors.As(c.err, &partial) {
		return fmt.Errorf("expected partial commit error, got %v", c.err)
	}
	if !partial.Retryable() {
		return errors.New("partial commit should be retryable")
	}
	return nil
}

func (c *checkoutTestContext) rows() ([]ledger.Row, error) {
	return c.store.List(context.Background(), ledger.Filter{})
}

func (c *checkoutTestContext) theLedgerHoldsRows(n int) error {
	rows, err := c.rows()
	if err != nil {
		return err
	}
	if len(rows) != n {
		return fmt.Errorf("expected %d rows, got %d", n, len(rows))
	}
	return nil
}

func (c *checkoutTestContext) theLedgerHoldsRowsWithBillFinal(n int, final string) error {
	if err := c.theLedgerHoldsRows(n); err != nil {
		return err
	}
	rows, _ := c.rows()
	for _, r := range rows {
		if err := equalAmount(r.BillFinal, final); err != nil {
			return fmt.Errorf("row %d: %w", r.ID, err)
		}
	}
	return nil
}

func (c *checkoutTestContext) bills() ([]billing.Bill, error) {
	rows, err := c.rows()
	if err != nil {
		return nil, err
	}
	return billing.Reconstruct(rows, billing.DayKey(time.UTC), billing.NewestFirst), nil
}

func (c *checkoutTestContext) reconstructionYieldsBill(n int, final string, items, qty int) error {
	bills, err := c.bills()
	if err != nil {
		return err
	}
	if len(bills) != n {
		return fmt.Errorf("expected %d bills, got %d", n, len(bills))
	}
	b := bills[0]
	if b.ItemCount != items || b.TotalQuantity != qty {
		return fmt.Errorf("expected %d items and quantity %d, got %d and %d", items, qty, b.ItemCount, b.TotalQuantity)
	}
	return equalAmount(b.BillFinal, final)
}

func (c *checkoutTestContext) reconstructionYieldsBills(n int) error {
	bills, err := c.bills()
	if err != nil {
		return err
	}
	if len(bills) != n {
		return fmt.Errorf("expected %d bills, got %d", n, len(bills))
	}
	return nil
}

func (c *checkoutTestContext) totalRevenueIs(amount string) error {
	bills, err := c.bills()
	if err != nil {
		return err
	}
	return equalAmount(billing.Revenue(bills), amount)
}

func (c *checkoutTestContext) theCartHasLines(n int) error {
	sess, err := c.sessions.Load(context.Background(), c.session)
	if err != nil {
		return err
	}
	if len(sess.Cart.Items) != n {
		return fmt.Errorf("expected %d lines, got %d", n, len(sess.Cart.Items))
	}
	return nil
}

func (c *checkoutTestContext) itemHasQuantity(name string, qty int) error {
	sess, err := c.sessions.Load(context.Background(), c.session)
	if err != nil {
		return err
	}
	for _, it := range sess.Cart.Items {
		if it.Name == name {
			if it.Qty != qty {
				return fmt.Errorf("expected quantity %d, got %d", qty, it.Qty)
			}
			return nil
		}
	}
	return fmt.Errorf("item %q not in cart", name)
}

func equalAmount(got decimal.Decimal, want string) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !got.Equal(w) {
		return fmt.Errorf("expected %s, got %s", w, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart for session "([^"]*)"$`, tc.anEmptyCartForSession)
	ctx.Step(`^the ledger fails on row (\d+)$`, tc.theLedgerFailsOnRow)

	// When steps
	ctx.Step(`^I add "([^"]*)" at "([^"]*)" with quantity (\d+)$`, tc.iAddAtWithQuantity)
	ctx.Step(`^I check out for "([^"]*)" with phone "([^"]*)"$`, tc.iCheckOutForWithPhone)

	// Then steps
	ctx.Step(`^the checkout succeeds with bill final "([^"]*)"$`, tc.theCheckoutSucceedsWithBillFinal)
	ctx.Step(`^checkout fails because the cart is empty$`, tc.checkoutFailsBecauseTheCartIsEmpty)
	ctx.Step(`^checkout fails with a retryable commit error$`, tc.checkoutFailsWithARetryableCommitError)
	ctx.Step(`^the ledger holds (\d+) rows$`, tc.theLedgerHoldsRows)
	ctx.Step(`^the ledger holds (\d+) rows with bill final "([^"]*)"$`, tc.theLedgerHoldsRowsWithBillFinal)
	ctx.Step(`^reconstruction yields (\d+) bill with final "([^"]*)", (\d+) items and quantity (\d+)$`, tc.reconstructionYieldsBill)
	ctx.Step(`^reconstruction yields (\d+) bills$`, tc.reconstructionYieldsBills)
	ctx.Step(`^total revenue is "([^"]*)"$`, tc.totalRevenueIs)
	ctx.Step(`^the cart has (\d+) lines$`, tc.theCartHasLines)
	ctx.Step(`^"([^"]*)" has quantity (\d+)$`, tc.itemHasQuantity)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
