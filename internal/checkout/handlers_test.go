package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/ledger"
)

func postCheckout(h *Handler, staff, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cart/checkout", strings.NewReader(body))
	if staff != "" {
		req = req.WithContext(common.WithPrincipal(context.Background(), common.Principal{StaffID: staff, Role: common.RoleStaff}))
	}
	rec := httptest.NewRecorder()
	h.Checkout(rec, req)
	return rec
}

func TestHandlerCheckoutCreated(t *testing.T) {
	f := newFixture(t)
	f.fill(t, "staff-1")
	h := &Handler{Svc: f.svc, Log: zerolog.Nop()}

	rec := postCheckout(h, "staff-1", `{"customerName":"Asha","customerPhone":"9876543210"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"finalAmount":"67.62"`)
}

func TestHandlerCheckoutErrors(t *testing.T) {
	f := newFixture(t)
	h := &Handler{Svc: f.svc, Log: zerolog.Nop()}

	rec := postCheckout(h, "", `{}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postCheckout(h, "staff-1", `{"customerName":"Asha","customerPhone":"9876543210"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "EMPTY_CART")

	rec = postCheckout(h, "staff-1", `{"customerName":"Asha","customerPhone":"12"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "customerPhone")

	f.fill(t, "staff-1")
	f.store.FailRow = func(int, ledger.Row) error { return errors.New("disk") }
	rec = postCheckout(h, "staff-1", `{"customerName":"Asha","customerPhone":"9876543210"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestToAppErrorFallback(t *testing.T) {
	appErr := toAppError(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)

	appErr = toAppError(&ledger.StorageUnavailableError{Op: "begin", Err: errors.New("refused")})
	require.Equal(t, "COMMIT_FAILED", appErr.Code)
}
