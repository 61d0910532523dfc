package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

func newRouter(t *testing.T) http.Handler {
	return routerFor(newService(t))
}

func routerFor(svc *Service) http.Handler {
	h := &Handler{Svc: svc, Log: zerolog.Nop()}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-Test-Staff") != "" {
				req = req.WithContext(common.WithPrincipal(req.Context(), common.Principal{StaffID: req.Header.Get("X-Test-Staff"), Role: common.RoleStaff}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/cart", h.Routes)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Test-Staff", "staff-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerAddAndView(t *testing.T) {
	h := newRouter(t)

	rec := serve(h, http.MethodPost, "/cart/items", `{"name":"Paracetamol","price":"10.00","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, http.MethodGet, "/cart/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Count  int `json:"count"`
			Totals struct {
				Final string `json:"finalAmount"`
			} `json:"totals"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Data.Count)
	require.Equal(t, "19.32", body.Data.Totals.Final)
}

func TestHandlerInvalidPrice(t *testing.T) {
	h := newRouter(t)
	rec := serve(h, http.MethodPost, "/cart/items", `{"name":"Bandage","price":"ten"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"price":"must be numeric"`)
}

func TestHandlerBulkAndRemove(t *testing.T) {
	h := newRouter(t)
	rec := serve(h, http.MethodPost, "/cart/items:bulk", `{"items":[{"name":"Paracetamol"},{"name":"Nope"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"rejected":[{"field":"price"`)

	rec = serve(h, http.MethodDelete, "/cart/items/Paracetamol", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":0`)
}

func TestHandlerInvoiceMissing(t *testing.T) {
	h := newRouter(t)
	rec := serve(h, http.MethodGet, "/cart/invoice", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerInvoiceAfterCheckout(t *testing.T) {
	svc := newService(t)
	lines, totals := pricing.DefaultRates.Compute([]pricing.Item{{Name: "Paracetamol", UnitPrice: dec("10.00"), Qty: 2}})
	require.NoError(t, svc.Sessions.Save(context.Background(), &Session{
		ID: "staff-1",
		LastReceipt: &Receipt{
			BillID:        7,
			CustomerName:  "Asha",
			CustomerPhone: "0812345678",
			Lines:         lines,
			Totals:        totals,
			BilledAt:      time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
		},
	}))

	rec := serve(routerFor(svc), http.MethodGet, "/cart/invoice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"billId":7`)
	require.Contains(t, rec.Body.String(), `"finalAmount":"19.32"`)
}

func TestHandlerRequiresPrincipal(t *testing.T) {
	h := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/cart/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
