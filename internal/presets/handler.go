package presets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/rbac"
	"github.com/rinde/rinde/internal/shared"
)

// Handler exposes preset endpoints under a location-bound router.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers preset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermMovementsRead)).Get("/presets", h.listPresets)
	r.With(h.rbac.RequireAll(shared.PermMovementsWrite)).Post("/presets/{presetID}/apply", h.apply)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermConfigWrite))
		r.Post("/presets", h.createPreset)
		r.Patch("/presets/{presetID}", h.updatePreset)
		r.Delete("/presets/{presetID}", h.deletePreset)
		r.Get("/presets/{presetID}/items", h.listItems)
		r.Post("/presets/{presetID}/items", h.createItem)
		r.Delete("/presets/{presetID}/items/{itemID}", h.deleteItem)
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.Validation("BAD_REQUEST", "invalid "+name)
	}
	return id, nil
}

func (h *Handler) listPresets(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	list, err := h.service.List(r.Context(), p.LocationID)
	if err != nil {
		h.fail(w, "list presets", err)
		return
	}
	if list == nil {
		list = []Preset{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"presets": list})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	presetID, err := pathID(r, "presetID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ApplyInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Apply(r.Context(), p.LocationID, p.UserID, presetID, in.Date)
	if err != nil {
		h.fail(w, "apply preset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) createPreset(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	var in CreatePresetInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.CreateLocal(r.Context(), p.LocationID, in)
	if err != nil {
		h.fail(w, "create preset", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) updatePreset(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	presetID, err := pathID(r, "presetID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdatePresetInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), p.LocationID, presetID, in); err != nil {
		h.fail(w, "update preset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) deletePreset(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	presetID, err := pathID(r, "presetID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deactivate(r.Context(), p.LocationID, presetID); err != nil {
		h.fail(w, "deactivate preset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	presetID, err := pathID(r, "presetID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.Items(r.Context(), p.LocationID, presetID)
	if err != nil {
		h.fail(w, "list preset items", err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	presetID, err := pathID(r, "presetID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CreateItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.service.AddItem(r.Context(), p.LocationID, presetID, in)
	if err != nil {
		h.fail(w, "create preset item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	presetID, err := pathID(r, "presetID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteItem(r.Context(), p.LocationID, presetID, itemID); err != nil {
		h.fail(w, "delete preset item", err)
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
