// Package identity supplies the actor capability bundles the workflow policy
// evaluates. The engine never authenticates credentials itself; it consumes
// whatever the identity store says about a caller.
package identity

import (
	"strings"

	id "chrona/pkg/domain"
	strutil "chrona/pkg/platform/strings"
)

// PermissionApprove is the capability required to approve or reject subjects.
const PermissionApprove = "workflow:approve"

// Actor is an opaque capability bundle for one authenticated user: role and
// permission names plus organization/team membership. Locale is the user's
// notification language; empty means the catalog default.
type Actor struct {
	UserID      id.UserID
	Roles       []string
	Permissions []string
	OrgID       id.OrgID
	TeamIDs     []id.TeamID
	Locale      string
}

// Normalize dedupes and lowercases role and permission names so policy checks
// never depend on how the identity store formats them. The locale tag is
// lowercased the same way.
func (a Actor) Normalize() Actor {
	a.Roles = strutil.DedupeAndTrimLower(a.Roles)
	a.Permissions = strutil.DedupeAndTrimLower(a.Permissions)
	a.Locale = strings.ToLower(strings.TrimSpace(a.Locale))
	return a
}

// HasPermission reports whether the actor holds the named permission.
func (a Actor) HasPermission(name string) bool {
	for _, p := range a.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// InOrg reports whether the actor belongs to the given organization.
func (a Actor) InOrg(orgID id.OrgID) bool {
	return a.OrgID == orgID
}

// InTeam reports whether the actor belongs to the given team.
func (a Actor) InTeam(teamID id.TeamID) bool {
	for _, t := range a.TeamIDs {
		if t == teamID {
			return true
		}
	}
	return false
}
