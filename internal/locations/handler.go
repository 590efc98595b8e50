package locations

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/rbac"
	"github.com/rinde/rinde/internal/shared"
)

// Handler exposes location endpoints for authenticated users.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the collection routes under /api/locations.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
}

// MountLocationRoutes registers routes on /api/locations/{locationID} that must
// not require the location to be the active one.
func (h *Handler) MountLocationRoutes(r chi.Router) {
	r.Delete("/", h.deactivate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller, _ := shared.CallerFromContext(r.Context())
	list, err := h.service.ListMine(r.Context(), caller.UserID)
	if err != nil {
		h.fail(w, "list locations", err)
		return
	}
	if list == nil {
		list = []rbac.Membership{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"locations": list})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, _ := shared.CallerFromContext(r.Context())
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), caller.UserID, in)
	if err != nil {
		h.fail(w, "create location", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	caller, _ := shared.CallerFromContext(r.Context())
	locationID, err := strconv.ParseInt(chi.URLParam(r, rbac.LocationParam), 10, 64)
	if err != nil || locationID <= 0 {
		httpx.RespondError(w, httpx.Validation("BAD_REQUEST", "invalid location id"))
		return
	}
	if err := h.service.Deactivate(r.Context(), caller.UserID, caller.ActiveLocation, locationID); err != nil {
		h.fail(w, "deactivate location", err)
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
