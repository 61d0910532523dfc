package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

// Writer commits priced bills to a Store.
type Writer struct {
	Store Store
	// Timeout bounds a single commit. Zero leaves the caller's deadline in place.
	Timeout time.Duration
}

// Commit writes one row per line of d, all sharing d.BillFinal and d.BilledAt.
// Nothing is visible unless every row is written. Failures are not retried here.
func (w *Writer) Commit(ctx context.Context, d Draft) ([]Row, error) {
	if w == nil || w.Store == nil {
		return nil, errors.New("ledger writer not configured")
	}
	if err := validateDraft(d); err != nil {
		return nil, err
	}
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := w.Store.Append(ctx, d.Rows())
	if err != nil {
		obs.ObserveLedgerCommit("error", 0, time.Since(start))
		return nil, err
	}
	obs.ObserveLedgerCommit("ok", len(rows), time.Since(start))
	return rows, nil
}

func validateDraft(d Draft) error {
	switch {
	case len(d.Lines) == 0:
		return fmt.Errorf("no lines: %w", ErrInvalidDraft)
	case strings.TrimSpace(d.CustomerName) == "":
		return fmt.Errorf("customer name required: %w", ErrInvalidDraft)
	case strings.TrimSpace(d.CustomerPhone) == "":
		return fmt.Errorf("customer phone required: %w", ErrInvalidDraft)
	case d.BilledAt.IsZero():
		return fmt.Errorf("bill timestamp required: %w", ErrInvalidDraft)
	}
	if want := pricing.Summarize(d.Lines).Final; !want.Equal(d.BillFinal) {
		return fmt.Errorf("bill final %s does not match lines %s: %w", d.BillFinal, want, ErrInvalidDraft)
	}
	return nil
}
