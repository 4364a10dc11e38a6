package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Handler exposes login and logout.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	sessions    *shared.SessionManager
	invalidator authz.Invalidator
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, invalidator authz.Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, sessions: sessions, invalidator: invalidator}
}

// MountRoutes registers authentication routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PlatformRole string `json:"platformRole,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}

	user, err := h.service.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(user.ID, user.PlatformRole)
	if err := h.sessions.Commit(r.Context(), w, sess); err != nil {
		h.logger.Error("commit session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PlatformRole: user.PlatformRole,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if userID := sess.User(); userID != "" {
			h.invalidator.InvalidatePrincipal(r.Context(), userID)
		}
		h.sessions.Destroy(sess)
		if err := h.sessions.Commit(r.Context(), w, sess); err != nil {
			h.logger.Error("destroy session", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
