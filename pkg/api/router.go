package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/pkg/api/handlers"
	"github.com/marmos91/asyncload/pkg/metrics"
)

// Dependencies are the components the API exposes.
type Dependencies struct {
	// Loader is the running loader. Required.
	Loader handlers.LoaderService

	// Store is checked by the readiness probe.
	Store handlers.HealthChecker

	// StoreType names the store backend in health responses.
	StoreType string
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (loader running, store healthy)
//   - GET /api/v1/loader/status - Loader status snapshot
//   - GET /api/v1/loader/packages/* - Package state and progress
//   - POST /api/v1/loader/packages - Queue a package
//   - GET /api/v1/loader/requests/{id} - Request completion
//   - POST /api/v1/loader/suspend - Suspend loading
//   - POST /api/v1/loader/resume - Resume loading
//   - POST /api/v1/loader/cancel - Cancel all loads
//   - GET /metrics - Prometheus metrics, when the registry is initialized
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.StoreType, deps.Loader)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if deps.Loader != nil {
		loaderHandler := handlers.NewLoaderHandler(deps.Loader)
		r.Route("/api/v1/loader", func(r chi.Router) {
			r.Get("/status", loaderHandler.Status)
			r.Post("/packages", loaderHandler.Queue)
			r.Get("/packages/*", loaderHandler.Package)
			r.Get("/requests/{id}", loaderHandler.Request)
			r.Post("/suspend", loaderHandler.Suspend)
			r.Post("/resume", loaderHandler.Resume)
			r.Post("/cancel", loaderHandler.Cancel)
		})
	}

	if metrics.IsEnabled() {
		r.Handle("/metrics", metrics.Handler())
	}

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request through the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}

		// Probes and scrapes run constantly; keep them at DEBUG
		if isQuietPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}

func isQuietPath(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics"
}
