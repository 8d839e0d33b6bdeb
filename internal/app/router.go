package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/observability"
	"github.com/odyssey-erp/stockledger/internal/stores"
	"github.com/odyssey-erp/stockledger/internal/units"
	"github.com/odyssey-erp/stockledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Access        access.Middleware
	AdminHandler  *access.AdminHandler
	StoresHandler *stores.Handler
	UnitsHandler  *units.Handler
	LedgerHandler *ledger.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
	// Health reports infrastructure readiness for /healthz. Nil means always ok.
	Health func(r *http.Request) error
}

// NewRouter constructs the chi.Router with stockledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Health != nil {
			if err := params.Health(r); err != nil {
				if params.Logger != nil {
					params.Logger.Warn("health check", slog.Any("error", err))
				}
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(params.Access.Authenticate)
		if params.AdminHandler != nil {
			r.Route("/admin", params.AdminHandler.MountRoutes)
		}
		if params.StoresHandler != nil {
			r.Route("/stores", params.StoresHandler.MountRoutes)
		}
		if params.UnitsHandler != nil {
			r.Route("/units", params.UnitsHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			r.Route("/actions", params.LedgerHandler.MountRoutes)
		}
	})

	return r
}
