package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-crm/meridian-crm/internal/assignments"
	"github.com/meridian-crm/meridian-crm/internal/auth"
	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/observability"
	"github.com/meridian-crm/meridian-crm/internal/roles"
	"github.com/meridian-crm/meridian-crm/internal/shared"
	"github.com/meridian-crm/meridian-crm/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	AuthHandler        *auth.Handler
	AuthzHandler       *authz.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	AssignmentsHandler *assignments.Handler
	AuthzMiddleware    authz.Middleware
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/authz", params.AuthzHandler.MountRoutes)

		r.Route("/orgs/{orgID}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(params.AuthzMiddleware.Require(shared.ResourceRole, authz.ActionManage, authz.ScopeOrganization))
				r.Route("/roles", params.RolesHandler.MountRoutes)
			})
			r.Group(func(r chi.Router) {
				r.Use(params.AuthzMiddleware.Require(shared.ResourceAssignment, authz.ActionManage, authz.ScopeOrganization))
				r.Route("/assignments", params.AssignmentsHandler.MountRoutes)
			})
			r.Group(func(r chi.Router) {
				r.Use(params.AuthzMiddleware.Require(shared.ResourceUser, authz.ActionManage, authz.ScopeOrganization))
				r.Route("/users", params.UsersHandler.MountRoutes)
			})
		})
	})

	return r
}
