package assignments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Handler exposes the assignment administration API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.assign)
	r.Delete("/{assignmentID}", h.revoke)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principalID := r.URL.Query().Get("principalId")
	if principalID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "principalId query parameter required")
		return
	}
	list, err := h.service.List(r.Context(), principalID, chi.URLParam(r, "orgID"))
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": list})
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var input AssignInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	input.OrgID = chi.URLParam(r, "orgID")

	var assignedBy string
	if principal, ok := shared.PrincipalFromContext(r.Context()); ok {
		assignedBy = principal.ID
	}

	assignment, err := h.service.Assign(r.Context(), input, assignedBy)
	if err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, assignment)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "assignmentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid assignment id")
		return
	}
	if err := h.service.Revoke(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
