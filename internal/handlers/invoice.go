package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/facturas/internal/httpx"
	"github.com/diewo77/facturas/internal/services"
	"github.com/diewo77/facturas/internal/store"
)

// InvoiceHandler exposes the invoice-creation workflow and the read-only
// invoice listing.
type InvoiceHandler struct {
	store store.Store
	svc   *services.InvoiceService
}

func NewInvoiceHandler(st store.Store, svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{store: st, svc: svc}
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	result, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeCreateError(w, result, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

// Render: POST /invoices/render?id=... retries document generation for an
// invoice whose data writes already succeeded.
func (h *InvoiceHandler) Render(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	result, err := h.svc.RenderDocument(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		writeCreateError(w, result, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// List: GET /invoices – newest first, joined with the client name.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListInvoices(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	if rows == nil {
		rows = []store.InvoiceSummary{}
	}
	httpx.JSON(w, http.StatusOK, rows)
}

// writeCreateError maps the service taxonomy onto response codes. A renderer
// failure is reported distinctly and carries the persisted invoice identity
// so the caller can retry rendering without re-creating the invoice.
func writeCreateError(w http.ResponseWriter, result services.CreateInvoiceResult, err error) {
	var inputErr *services.InputError
	switch {
	case errors.As(err, &inputErr):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", inputErr.Violations)
	case errors.Is(err, services.ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, services.ErrProductDiverged):
		httpx.JSONError(w, http.StatusConflict, "product_diverged", err.Error())
	case errors.Is(err, services.ErrNumberExhausted):
		httpx.JSONError(w, http.StatusConflict, "number_exhausted", nil)
	case errors.Is(err, services.ErrRenderer):
		httpx.JSONError(w, http.StatusInternalServerError, "render_failed", map[string]any{
			"invoiceId":     result.InvoiceID,
			"invoiceNumber": result.Number,
		})
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
	}
}
