package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

// Routes registers cart routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/items", h.Add)
	r.Post("/items:bulk", h.BulkAdd)
	r.Delete("/items/{name}", h.Remove)
	r.Get("/invoice", h.Invoice)
}

// Get returns the priced cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.View(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Add adds or merges one item.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	view, err := h.Svc.AddItem(r.Context(), sessionID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// BulkAdd adds several items; rejected entries are listed without failing the rest.
func (h *Handler) BulkAdd(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload struct {
		Items []AddRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Items) == 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "items are required", nil)
		return
	}
	view, rejected, err := h.Svc.AddItems(r.Context(), sessionID, payload.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rejected == nil {
		rejected = []*InvalidInputError{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view, "rejected": rejected})
}

// Remove deletes an item by name. Unknown names succeed.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.RemoveItem(r.Context(), sessionID, chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Invoice returns the receipt of the last checkout in this session.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	receipt, err := h.Svc.LastReceipt(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if receipt == nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no bill has been generated in this session", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": receipt})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := common.PrincipalFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return p.CartSession(), true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_INPUT", invalid.Error(), map[string]string{invalid.Field: invalid.Reason})
		return
	}
	h.Log.Error().Err(err).Msg("cart_request_failed")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart unavailable", nil)
}
