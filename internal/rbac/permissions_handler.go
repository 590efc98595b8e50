package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rinde/rinde/internal/platform/httpx"
)

// PermissionsHandler reports the caller's role and permissions at the bound location.
type PermissionsHandler struct {
	logger *slog.Logger
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger) *PermissionsHandler {
	return &PermissionsHandler{logger: logger}
}

// MountRoutes registers permission routes under a location-bound router.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.listPermissions)
}

type permissionsResponse struct {
	LocationID  int64    `json:"locationId"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.Forbidden("FORBIDDEN"))
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{
		LocationID:  p.LocationID,
		Role:        p.Role,
		Permissions: EffectivePermissions(p.Role),
	})
}
