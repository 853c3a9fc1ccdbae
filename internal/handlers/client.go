package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/facturas/internal/httpx"
	"github.com/diewo77/facturas/internal/models"
	"github.com/diewo77/facturas/internal/store"
)

const suggestionLimit = 10

// ClientHandler serves the client typeahead used by the invoice form.
type ClientHandler struct {
	store store.Store
}

func NewClientHandler(st store.Store) *ClientHandler {
	return &ClientHandler{store: st}
}

// Search: GET /clients?search=... – name substring match, at most 10 rows.
func (h *ClientHandler) Search(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	clients, err := h.store.SearchClients(r.Context(), search, suggestionLimit)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	httpx.JSON(w, http.StatusOK, clients)
}
