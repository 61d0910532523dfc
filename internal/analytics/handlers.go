package analytics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-apotek/internal/common"
)

const (
	maxDays    = 366
	maxMonths  = 120
	maxListing = 1000
)

// Handler exposes analytics read endpoints. Reports always answer 200; a
// degraded report carries "status":"unavailable" and empty data.
type Handler struct {
	Svc *Service
}

// Routes registers the analytics routes. Every route except recent bills is
// wrapped with owner.
func (h *Handler) Routes(r chi.Router, owner func(http.Handler) http.Handler) {
	r.Get("/recent-bills", h.RecentBills)
	r.Group(func(r chi.Router) {
		if owner != nil {
			r.Use(owner)
		}
		r.Get("/revenue", h.Revenue)
		r.Get("/daily", h.Daily)
		r.Get("/monthly", h.Monthly)
		r.Get("/top-sellers", h.TopSellers)
		r.Get("/payments", h.Payments)
		r.Get("/tax-summary", h.TaxSummary)
		r.Get("/customers", h.Customers)
		r.Get("/dashboard", h.Dashboard)
	})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return false
	}
	return true
}

// Revenue returns the total revenue over all bills.
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	common.JSON(w, http.StatusOK, h.Svc.TotalRevenue(r.Context()))
}

// Daily returns the daily trend for ?days=.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	days := common.BoundedInt(r.URL.Query().Get("days"), h.Svc.limits().DailyDays, maxDays)
	common.JSON(w, http.StatusOK, h.Svc.DailyTrend(r.Context(), days))
}

// Monthly returns the monthly trend for ?months=.
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	months := common.BoundedInt(r.URL.Query().Get("months"), h.Svc.limits().MonthlyMonths, maxMonths)
	common.JSON(w, http.StatusOK, h.Svc.MonthlyTrend(r.Context(), months))
}

// TopSellers returns the best selling items.
func (h *Handler) TopSellers(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	limit := common.BoundedInt(r.URL.Query().Get("limit"), h.Svc.limits().Top, maxListing)
	common.JSON(w, http.StatusOK, h.Svc.TopSellers(r.Context(), limit))
}

// RecentBills returns the newest bills.
func (h *Handler) RecentBills(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	limit := common.BoundedInt(r.URL.Query().Get("limit"), h.Svc.limits().Recent, maxListing)
	common.JSON(w, http.StatusOK, h.Svc.RecentBills(r.Context(), limit))
}

// Payments returns the payment history.
func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	limit := common.BoundedInt(r.URL.Query().Get("limit"), h.Svc.limits().Payments, maxListing)
	common.JSON(w, http.StatusOK, h.Svc.PaymentHistory(r.Context(), limit))
}

// TaxSummary returns discount and tax totals.
func (h *Handler) TaxSummary(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	common.JSON(w, http.StatusOK, h.Svc.TaxSummary(r.Context()))
}

// Customers returns customer activity.
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	limit := common.BoundedInt(r.URL.Query().Get("limit"), h.Svc.limits().Payments, maxListing)
	common.JSON(w, http.StatusOK, h.Svc.Customers(r.Context(), limit))
}

// Dashboard returns the composite owner view.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	common.JSON(w, http.StatusOK, h.Svc.Dashboard(r.Context()))
}
