package rbac

import (
	"sort"
	"strings"

	"github.com/rinde/rinde/internal/shared"
)

var rolePermissions = map[Role][]string{
	RoleAdmin: {
		shared.PermConfigRead,
		shared.PermConfigWrite,
		shared.PermMovementsRead,
		shared.PermMovementsWrite,
	},
	RoleOperator: {
		shared.PermMovementsRead,
		shared.PermMovementsWrite,
	},
	RoleReader: {
		shared.PermMovementsRead,
	},
}

// EffectivePermissions returns the sorted permission names granted to role.
func EffectivePermissions(role Role) []string {
	perms := append([]string(nil), rolePermissions[role]...)
	sort.Strings(perms)
	return perms
}

// RoleHasPermission reports whether role grants perm.
func RoleHasPermission(role Role, perm string) bool {
	perm = strings.TrimSpace(strings.ToLower(perm))
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
