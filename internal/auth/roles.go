package auth

import "github.com/spec-kit/intern-service/internal/domain"

// Capability names an operation group a route may require.
type Capability string

const (
	CapManageCatalog      Capability = "manage_catalog"
	CapGradeSubmissions   Capability = "grade_submissions"
	CapViewAnyAssignments Capability = "view_any_assignments"
	CapOwnAssignments     Capability = "own_assignments"
)

var roleCapabilities = map[domain.Role]map[Capability]struct{}{
	domain.RoleAdmin: {
		CapManageCatalog:      {},
		CapGradeSubmissions:   {},
		CapViewAnyAssignments: {},
	},
	domain.RoleIntern: {
		CapOwnAssignments: {},
	},
}

// Allows reports whether role holds capability.
func Allows(role domain.Role, capability Capability) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	_, ok = caps[capability]
	return ok
}

// AllowsAny reports whether role holds at least one of capabilities.
func AllowsAny(role domain.Role, capabilities ...Capability) bool {
	for _, capability := range capabilities {
		if Allows(role, capability) {
			return true
		}
	}
	return false
}
