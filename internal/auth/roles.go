package auth

import "strings"

// Role is a registry user role. An operator can do everything a viewer can.
type Role string

const (
	// RoleViewer reads the registry, dashboard, exports and stream.
	RoleViewer Role = "viewer"
	// RoleOperator also adds, edits and deletes records.
	RoleOperator Role = "operator"
)

var roleRanks = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
}

// NormalizeRole maps a claim value to a known role, ignoring case and spaces.
func NormalizeRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// Allows reports whether r may call a route that requires required.
func (r Role) Allows(required Role) bool {
	rank, ok := roleRanks[r]
	return ok && rank >= roleRanks[required]
}
