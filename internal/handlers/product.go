package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/facturas/internal/httpx"
	"github.com/diewo77/facturas/internal/models"
	"github.com/diewo77/facturas/internal/store"
)

// ProductHandler serves the read-only product endpoints backing the invoice
// form: exact lookup, typeahead suggestions and the full price history.
type ProductHandler struct {
	store store.Store
}

func NewProductHandler(st store.Store) *ProductHandler {
	return &ProductHandler{store: st}
}

// Lookup: GET /products/search?name=... – the active product with that exact
// name, used by the form to prefill price and tax rate.
func (h *ProductHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		httpx.JSONError(w, http.StatusBadRequest, "name_required", nil)
		return
	}
	p, err := h.store.ActiveProductByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]float64{
		"unitPrice": p.UnitPrice,
		"taxRate":   p.TaxRate,
	})
}

// Suggestions: GET /products/suggestions?search=... – active products whose
// name contains the search term; without a term the first 10 by name.
func (h *ProductHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	products, err := h.store.SearchProducts(r.Context(), search, suggestionLimit)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	httpx.JSON(w, http.StatusOK, products)
}

// History: GET /products/history – every product row, active first, so
// superseded price points stay visible.
func (h *ProductHandler) History(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ProductHistory(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	httpx.JSON(w, http.StatusOK, products)
}
