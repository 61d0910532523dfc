package ledger

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrInvalidDraft is returned for drafts that cannot form a bill.
var ErrInvalidDraft = errors.New("invalid ledger draft")

// PartialCommitError reports a multi-row append that failed partway and was rolled back.
type PartialCommitError struct {
	Written int
	Total   int
	Err     error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("ledger commit failed after %d of %d rows: %v", e.Written, e.Total, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// Retryable reports that the caller may resubmit the same bill.
func (e *PartialCommitError) Retryable() bool { return true }

// StorageUnavailableError reports that ledger storage could not be reached.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("ledger storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a StorageUnavailableError.
func IsUnavailable(err error) bool {
	var target *StorageUnavailableError
	return errors.As(err, &target)
}

// classify wraps connectivity failures as StorageUnavailableError and leaves other errors alone.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsUnavailable(err) {
		return err
	}
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err):
		return &StorageUnavailableError{Op: op, Err: err}
	}
	return fmt.Errorf("ledger %s: %w", op, err)
}
