package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/rbac"
	"github.com/rinde/rinde/internal/shared"
)

// LocationSelector decides whether a user may bind the session to a location.
type LocationSelector interface {
	CanSelect(ctx context.Context, userID, current, target int64) (rbac.Membership, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	locations      LocationSelector
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, locations LocationSelector, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		locations:      locations,
		sessionManager: sessions,
		csrfManager:    csrf,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
	r.Post("/location", h.handleSelectLocation)
}

type userDTO struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionResponse struct {
	User             userDTO `json:"user"`
	ActiveLocationID *int64  `json:"activeLocationId"`
	CSRFToken        string  `json:"csrfToken"`
}

func toUserDTO(u *User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Name: u.Name}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.ErrSessionMissing)
		return
	}
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.RespondError(w, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.RespondError(w, httpx.NewError(httpx.ErrUnauthorized, "INVALID_CREDENTIALS", ""))
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if _, had := sess.UserID(); had {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove previous session", slog.Any("error", err))
		}
	}
	// new id and no values from an earlier user
	sess.Clear()
	sess.Renew()
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	expires := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expires, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusOK, sessionResponse{User: toUserDTO(user), CSRFToken: token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*shared.Session, *User, bool) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := sess.UserID()
	if !ok {
		httpx.RespondError(w, httpx.NewError(httpx.ErrUnauthorized, "UNAUTHENTICATED", ""))
		return nil, nil, false
	}
	user, err := h.service.User(r.Context(), userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.NewError(httpx.ErrUnauthorized, "UNAUTHENTICATED", ""))
			return nil, nil, false
		}
		h.logger.Error("load session user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, nil, false
	}
	return sess, user, true
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := sessionResponse{User: toUserDTO(user), CSRFToken: token}
	if loc, ok := sess.ActiveLocation(); ok {
		resp.ActiveLocationID = &loc
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSelectLocation(w http.ResponseWriter, r *http.Request) {
	sess, user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var in SelectLocationInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	current, _ := sess.ActiveLocation()
	m, err := h.locations.CanSelect(r.Context(), user.ID, current, in.LocationID)
	if err != nil {
		if httpx.CodeOf(err) == "" {
			h.logger.Error("select location", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	sess.SetActiveLocation(in.LocationID)
	h.logger.Info("location selected", slog.Int64("user_id", user.ID), slog.Int64("location_id", in.LocationID))
	httpx.JSON(w, http.StatusOK, map[string]any{"activeLocationId": in.LocationID, "role": m.Role})
}
