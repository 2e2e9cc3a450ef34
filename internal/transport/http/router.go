package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attesta/internal/platform/health"
	"attesta/internal/platform/middleware"
	registryhandler "attesta/internal/registry/handler"
)

// RouterConfig carries the dependencies the router wires together.
type RouterConfig struct {
	Registry  *registryhandler.Handler
	Health    *health.Handler
	Principal middleware.PrincipalValidator
	Logger    *slog.Logger

	// RequestTimeout bounds each request; zero selects the default.
	RequestTimeout time.Duration
}

// NewRouter wires all endpoints with the shared middleware stack.
// Read-only queries stay public; mutating routes sit behind bearer
// authentication so every call carries a resolved principal.
func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(timeout))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		cfg.Registry.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(cfg.Principal, cfg.Logger))
		cfg.Registry.RegisterProtected(r)
	})

	return r
}
