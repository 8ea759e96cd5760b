package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/haukened/rootdomain/internal/rootdomain/common/log"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

const usageText = "Domain Validator API\n\nUsage: GET /parse?url=<url>\n"

const (
	errCodeInvalidRequest = "invalid_request"
	errMissingURLParam    = "missing required query parameter: url"
)

// Error is the body of a rejected request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type handler struct {
	resolver RootDomainResolver
	logger   log.Logger
}

// NewRouter creates the chi router serving the lookup API.
func NewRouter(resolver RootDomainResolver, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	h := &handler{resolver: resolver, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleUsage)
	r.Get("/parse", h.handleParse)
	r.Get("/healthz", h.handleHealth)
	return r
}

func (h *handler) handleUsage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, usageText)
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// handleParse answers 200 for every lookup, successful or not; only an
// absent url parameter is a request error. An empty value is looked up and
// reported like any other malformed URL.
func (h *handler) handleParse(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("url") {
		h.writeJSON(w, http.StatusBadRequest, Error{Code: errCodeInvalidRequest, Message: errMissingURLParam})
		return
	}

	raw := query.Get("url")
	d, err := h.resolver.FromURL(raw)
	h.writeJSON(w, http.StatusOK, domain.NewParseResponse(raw, d.RootDomain, err))
}

// writeJSON writes a JSON response and logs serialization failures.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error(map[string]any{"status": status, "error": err}, "Failed to encode JSON response")
	}
}

// requestLogger logs each request through the application logger.
func requestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug(map[string]any{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"remote":     r.RemoteAddr,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start).String(),
				}, "HTTP request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
