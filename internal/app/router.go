package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/auth"
	"github.com/rinde/rinde/internal/ledger"
	"github.com/rinde/rinde/internal/locations"
	"github.com/rinde/rinde/internal/observability"
	"github.com/rinde/rinde/internal/presets"
	"github.com/rinde/rinde/internal/rbac"
	"github.com/rinde/rinde/internal/settlement"
	"github.com/rinde/rinde/internal/shared"
	"github.com/rinde/rinde/jobs"
)

// LoginPath is the only unsafe endpoint reachable without a CSRF token.
const LoginPath = "/api/auth/login"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	LocationsHandler   *locations.Handler
	ActionsHandler     *actions.Handler
	LedgerHandler      *ledger.Handler
	PresetsHandler     *presets.Handler
	SettlementHandler  *settlement.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
}

// NewHandlers builds every HTTP handler over the shared services.
func NewHandlers(params *RouterParams, svc *Services, jobHandler *jobs.Handler) {
	logger := params.Logger
	rbacMW := params.RBACMiddleware
	params.AuthHandler = auth.NewHandler(logger, svc.Auth, svc.Locations, params.SessionManager, params.CSRFManager)
	params.LocationsHandler = locations.NewHandler(logger, svc.Locations)
	params.ActionsHandler = actions.NewHandler(logger, svc.Actions, rbacMW)
	params.LedgerHandler = ledger.NewHandler(logger, svc.Ledger, rbacMW)
	params.PresetsHandler = presets.NewHandler(logger, svc.Presets, rbacMW)
	params.SettlementHandler = settlement.NewHandler(logger, svc.Settlement, rbacMW)
	params.PermissionsHandler = rbac.NewPermissionsHandler(logger)
	params.JobHandler = jobHandler
}

// NewRouter constructs the chi.Router with Rinde defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		CSRFExempt:     []string{LoginPath},
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Route("/locations", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireUser)
			params.LocationsHandler.MountRoutes(r)

			r.Route("/{"+rbac.LocationParam+"}", func(r chi.Router) {
				params.LocationsHandler.MountLocationRoutes(r)

				r.Group(func(r chi.Router) {
					r.Use(params.RBACMiddleware.LocationContext)
					params.PermissionsHandler.MountRoutes(r)
					params.ActionsHandler.MountRoutes(r)
					params.LedgerHandler.MountRoutes(r)
					params.PresetsHandler.MountRoutes(r)
					params.SettlementHandler.MountRoutes(r)
				})
			})
		})
	})

	return r
}
