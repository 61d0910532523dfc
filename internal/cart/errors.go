package cart

import (
	"errors"
	"fmt"
)

// ErrEmptyCart is returned when checking out a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// InvalidInputError rejects a single request field.
type InvalidInputError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	// Index is the position of the entry in a bulk request.
	Index *int `json:"index,omitempty"`
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInvalidInput reports whether err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
