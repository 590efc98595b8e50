package actions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/rbac"
	"github.com/rinde/rinde/internal/shared"
)

// Handler exposes action endpoints under a location-bound router.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers action routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermMovementsRead)).Get("/actions", h.listActions)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermConfigRead))
		r.Get("/actions/config", h.showConfig)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermConfigWrite))
		r.Post("/actions/ensure", h.ensure)
		r.Put("/actions/config", h.saveConfig)
	})
}

func (h *Handler) listActions(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	list, err := h.service.ListUsable(r.Context(), p.LocationID)
	if err != nil {
		h.fail(w, "list actions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"actions": list})
}

func (h *Handler) ensure(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	inserted, err := h.service.Ensure(r.Context(), p.LocationID)
	if err != nil {
		h.fail(w, "ensure actions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"inserted": inserted})
}

func (h *Handler) showConfig(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	rows, err := h.service.Config(r.Context(), p.LocationID)
	if err != nil {
		h.fail(w, "load action config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"actions": rows})
}

type saveConfigRequest struct {
	Actions []SaveInput `json:"actions" validate:"required,min=1,dive"`
}

func (h *Handler) saveConfig(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	var req saveConfigRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.SaveConfig(r.Context(), p.LocationID, req.Actions); err != nil {
		h.fail(w, "save action config", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.CodeOf(err) == "" {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
