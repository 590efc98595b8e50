package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rinde/rinde/internal/platform/httpx"
	"github.com/rinde/rinde/internal/shared"
)

// LocationParam is the chi URL parameter naming the location.
const LocationParam = "locationID"

// Middleware wires location binding and authorization helpers for HTTP handlers.
type Middleware struct {
	Memberships MembershipReader
	Logger      *slog.Logger
}

// RequireUser rejects requests without an authenticated session.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.SessionFromContext(r.Context()).UserID(); !ok {
			httpx.RespondError(w, httpx.NewError(httpx.ErrUnauthorized, "UNAUTHENTICATED", ""))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LocationContext binds the request to {locationID}. The session must be
// authenticated, its active location must match the path, and the user needs an
// active membership there. The resulting Principal is stored in the context.
func (m Middleware) LocationContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		userID, ok := sess.UserID()
		if !ok {
			httpx.RespondError(w, httpx.NewError(httpx.ErrUnauthorized, "UNAUTHENTICATED", ""))
			return
		}
		locationID, err := strconv.ParseInt(chi.URLParam(r, LocationParam), 10, 64)
		if err != nil || locationID <= 0 {
			httpx.RespondError(w, httpx.Validation("BAD_REQUEST", "invalid location id"))
			return
		}
		active, ok := sess.ActiveLocation()
		if !ok || active != locationID {
			httpx.RespondError(w, httpx.Forbidden("LOCATION_CONTEXT_MISMATCH"))
			return
		}
		membership, err := m.Memberships.ActiveMembership(r.Context(), userID, locationID)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				httpx.RespondError(w, httpx.Forbidden("FORBIDDEN"))
				return
			}
			m.logError("rbac load membership", err)
			httpx.RespondError(w, err)
			return
		}
		p := Principal{UserID: userID, LocationID: locationID, Role: membership.Role}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAny ensures the principal has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.Forbidden("FORBIDDEN"))
				return
			}
			if hasAnyPermission(EffectivePermissions(p.Role), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.Forbidden("FORBIDDEN_ROLE"))
		})
	}
}

// RequireAll ensures the principal has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.Forbidden("FORBIDDEN"))
				return
			}
			if hasAllPermissions(EffectivePermissions(p.Role), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.Forbidden("FORBIDDEN_ROLE"))
		})
	}
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
