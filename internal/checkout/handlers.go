package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/lock"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

// Checkout commits the caller's cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	p, ok := common.PrincipalFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var customer cart.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	receipt, err := h.Svc.Checkout(r.Context(), p.CartSession(), customer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": receipt})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus == http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg("checkout_request_failed")
	}
	common.WriteAppError(w, appErr)
}

func toAppError(err error) *common.AppError {
	var (
		invalid *cart.InvalidInputError
		partial *ledger.PartialCommitError
	)
	switch {
	case errors.As(err, &invalid):
		return common.NewAppError("INVALID_INPUT", invalid.Error(), http.StatusUnprocessableEntity, err).
			WithDetails(map[string]string{invalid.Field: invalid.Reason})
	case errors.Is(err, cart.ErrEmptyCart):
		return common.NewAppError("EMPTY_CART", "cart has no items", http.StatusConflict, err)
	case errors.Is(err, lock.ErrNotAcquired):
		return common.NewAppError("CHECKOUT_IN_PROGRESS", "another checkout for this session is running", http.StatusConflict, err)
	case errors.As(err, &partial), ledger.IsUnavailable(err):
		appErr := common.NewAppError("COMMIT_FAILED", "bill was not saved, retry", http.StatusServiceUnavailable, err)
		appErr.RetryAfter = time.Second
		return appErr
	}
	return common.NewAppError("INTERNAL", "checkout failed", http.StatusInternalServerError, err)
}
