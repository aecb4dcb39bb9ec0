package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOption configures optional routes
type RouterOption func(chi.Router)

// WithMetrics serves the gatherer's metrics on GET /metrics
func WithMetrics(g prometheus.Gatherer) RouterOption {
	return func(r chi.Router) {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
}

// WithMCP mounts the MCP streamable HTTP transport on /mcp
func WithMCP(handler http.Handler) RouterOption {
	return func(r chi.Router) {
		r.Handle("/mcp", handler)
	}
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(h *Handler, logger *slog.Logger, opts ...RouterOption) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		h.Register(r)
	})

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// requestID stores the caller's X-Request-ID, or a fresh uuid, under chi's
// request id key and echoes it on the response
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}
