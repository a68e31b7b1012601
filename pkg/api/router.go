package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iskaald/icecold/internal/logger"
	"github.com/iskaald/icecold/pkg/api/handlers"
	"github.com/iskaald/icecold/pkg/logging"
	"github.com/iskaald/icecold/pkg/metrics"
	"github.com/iskaald/icecold/pkg/service"
)

// Runtime is the part of the application runtime the admin API exposes.
type Runtime interface {
	Registry() *service.Registry
	Router() *logging.Router
	Ready() bool
	RequestQuit(ctx context.Context) service.QuitResult
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /services - Registered services in startup order
//   - GET /services/{name} - One service
//   - GET /routes - Log routing table, or one decision with ?path=
//   - POST /quit - Request a negotiated quit
//   - GET /metrics - Prometheus metrics when enabled
func NewRouter(rt Runtime) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(rt, rt.Registry())
	servicesHandler := handlers.NewServicesHandler(rt.Registry())
	routesHandler := handlers.NewRoutesHandler(rt.Router())
	quitHandler := handlers.NewQuitHandler(rt)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Route("/health", func(r chi.Router) {
			r.Get("/", healthHandler.Liveness)
			r.Get("/ready", healthHandler.Readiness)
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", servicesHandler.List)
			r.Get("/{name}", servicesHandler.Get)
		})

		r.Get("/routes", routesHandler.Get)

		// The registry is looked up per request so metrics enabled after
		// the router is built are still served.
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	})

	// Quit waits for the vote and teardown, which is bounded by the
	// coordinator's own timeouts rather than the request timeout.
	r.Post("/quit", quitHandler.Request)

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
