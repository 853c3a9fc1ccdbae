package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diewo77/facturas/internal/handlers"
	"github.com/diewo77/facturas/internal/httpx"
	"github.com/diewo77/facturas/internal/services"
	"github.com/diewo77/facturas/internal/store"
)

// New constructs the root http.Handler with all routes and middlewares
// applied. documentDir is served read-only under /invoices/pdf/.
func New(st store.Store, svc *services.InvoiceService, documentDir string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ih := handlers.NewInvoiceHandler(st, svc)
	mux.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ih.List(w, r)
		case http.MethodPost:
			ih.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("POST /invoices/render", ih.Render)
	mux.Handle("/invoices/pdf/", http.StripPrefix("/invoices/pdf/", http.FileServer(http.Dir(documentDir))))

	ch := handlers.NewClientHandler(st)
	mux.HandleFunc("GET /clients", ch.Search)

	ph := handlers.NewProductHandler(st)
	mux.HandleFunc("GET /products/search", ph.Lookup)
	mux.HandleFunc("GET /products/suggestions", ph.Suggestions)
	mux.HandleFunc("GET /products/history", ph.History)

	return withRecover(withLogging(mux, log), log)
}

// withLogging tags each request with an id and logs method, path, status and
// duration once the handler returns.
func withLogging(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func withRecover(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
