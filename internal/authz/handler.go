package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Handler serves the batch permission-check endpoint UI gates and navigation
// menus call before rendering. The client treats an in-flight request as its
// loading state; the server only ever answers allowed or denied.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
}

type checkItem struct {
	Resource string          `json:"resource" validate:"required"`
	Action   string          `json:"action" validate:"required"`
	Scope    *Scope          `json:"scope,omitempty"`
	Context  *RequestContext `json:"context,omitempty"`
}

type checkRequest struct {
	OrgID  string      `json:"orgId" validate:"required"`
	Checks []checkItem `json:"checks" validate:"required,min=1,max=100,dive"`
}

type checkResult struct {
	Allowed bool `json:"allowed"`
}

type checkResponse struct {
	Results []checkResult `json:"results"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}

	var payload checkRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	results := make([]checkResult, len(payload.Checks))
	for i, check := range payload.Checks {
		allowed, err := h.service.Authorized(r.Context(), Request{
			Principal: principalOf(principal),
			OrgID:     payload.OrgID,
			Resource:  check.Resource,
			Action:    check.Action,
			Scope:     check.Scope,
			Context:   check.Context,
		})
		if err != nil {
			// Fail closed for this check; the cause stays server-side.
			h.logger.Error("batch check failed",
				slog.String("resource", check.Resource),
				slog.String("action", check.Action),
				slog.Any("error", err))
		}
		results[i] = checkResult{Allowed: allowed}
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Results: results})
}
