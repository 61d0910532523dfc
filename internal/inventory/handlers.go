package inventory

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler exposes read-only catalog lookups.
type Handler struct {
	Catalog *Catalog
}

// Routes registers inventory routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Search)
}

// Search filters by q, manufacturer or use, in that order of precedence.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Catalog == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "INVENTORY_UNAVAILABLE", "inventory not loaded", nil)
		return
	}
	q := r.URL.Query()
	var items []Medicine
	switch {
	case q.Get("q") != "":
		items = h.Catalog.Search(r.Context(), q.Get("q"))
	case q.Get("manufacturer") != "":
		items = h.Catalog.ByManufacturer(r.Context(), q.Get("manufacturer"))
	case q.Get("use") != "":
		items = h.Catalog.ByUse(r.Context(), q.Get("use"))
	default:
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "one of q, manufacturer or use is required", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}
