package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// OrgHeader carries the organization a request operates in when it is not
// part of the route.
const OrgHeader = "X-Meridian-Org"

// Middleware gates HTTP routes on the authorization engine. Denials render
// as problem-detail responses, never as panics into handler code.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require allows the request through only when the session principal holds
// the (resource, action) capability at the given scope.
func (m Middleware) Require(resource, action string, scope Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			req := Request{
				Principal: principalOf(principal),
				OrgID:     RequestOrg(r),
				Resource:  resource,
				Action:    action,
				Scope:     &scope,
			}
			decision, err := m.Service.Authorize(r.Context(), req)
			if err != nil && !errors.Is(err, ErrNoPrincipal) {
				if m.Logger != nil {
					m.Logger.Error("authorization check failed",
						slog.String("resource", resource),
						slog.String("action", action),
						slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !decision.Allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrgless is Require without scope filtering, for routes whose
// handlers apply their own target context.
func (m Middleware) RequireOrgless(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			req := Request{
				Principal: principalOf(principal),
				OrgID:     RequestOrg(r),
				Resource:  resource,
				Action:    action,
			}
			allowed, err := m.Service.Authorized(r.Context(), req)
			if err != nil && !errors.Is(err, ErrNoPrincipal) {
				if m.Logger != nil {
					m.Logger.Error("authorization check failed",
						slog.String("resource", resource),
						slog.String("action", action),
						slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func principalOf(p shared.Principal) Principal {
	return Principal{ID: p.ID, PlatformRole: p.PlatformRole}
}

// RequestOrg extracts the organization id from the route or, failing that,
// the org header.
func RequestOrg(r *http.Request) string {
	if orgID := chi.URLParam(r, "orgID"); orgID != "" {
		return orgID
	}
	return r.Header.Get(OrgHeader)
}
