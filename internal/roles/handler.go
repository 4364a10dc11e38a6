package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
)

// Handler exposes the role administration API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	collator *collate.Collator
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// MountRoutes registers role administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{roleID}", h.get)
	r.Put("/{roleID}", h.update)
	r.Delete("/{roleID}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	slices.SortFunc(list, func(a, b Role) int {
		return h.collator.CompareString(a.Name, b.Name)
	})
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input RoleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	role, err := h.service.CreateRole(r.Context(), input)
	if err != nil {
		h.respondWriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var input RoleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	input.ID = chi.URLParam(r, "roleID")
	role, err := h.service.UpdateRole(r.Context(), input)
	if err != nil {
		h.respondWriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRole(r.Context(), chi.URLParam(r, "roleID")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondWriteError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
		return
	}
	httpx.RespondError(w, err)
}
