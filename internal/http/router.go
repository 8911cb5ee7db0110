package transporthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrKriegler/insurance-lifecycle/internal/http/handlers"
	"github.com/MrKriegler/insurance-lifecycle/internal/middleware"
)

// MetricsProvider is implemented by *metrics.Metrics.
type MetricsProvider interface {
	Middleware(http.Handler) http.Handler
	Handler() http.Handler
}

// Deps bundles everything the router mounts. Optional parts may be nil.
type Deps struct {
	Log            *slog.Logger
	Mounts         []handlers.Mountable
	Auth           *middleware.Authenticator
	Limiter        middleware.Limiter
	AllowedOrigins []string
	RequestTimeout time.Duration
	Health         handlers.Mountable // /health and /readyz
	Metrics        MetricsProvider
	Docs           http.Handler // /swagger/doc.json
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.SecurityHeaders)
	if len(d.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(d.AllowedOrigins))
	}

	if d.Health != nil {
		d.Health.Mount(r)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	if d.Docs != nil {
		r.Method(http.MethodGet, "/swagger/doc.json", d.Docs)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LimitRequestBody(middleware.MaxBodySize))
		if d.Limiter != nil {
			r.Use(middleware.RateLimit(d.Limiter, d.Log))
		}
		if d.RequestTimeout > 0 {
			r.Use(chimw.Timeout(d.RequestTimeout))
		}
		if d.Auth != nil {
			r.Use(d.Auth.Middleware)
		}
		// Mount each feature's routes into this router.
		for _, m := range d.Mounts {
			m.Mount(r)
		}
	})

	return r
}
