// Package rbac decides whether an actor may use a capability. Decisions are pure
// functions of the actor and the capability; nothing is cached between requests.
package rbac

import (
	"errors"
	"fmt"

	"travelcms/internal/model"
)

// ErrAccessDenied is returned when the actor's role is outside the allowed set
var ErrAccessDenied = errors.New("access denied")

// Actor is the authenticated user performing a request
type Actor struct {
	UserID   uint           `json:"user_id"`
	Username string         `json:"username"`
	Role     model.RoleKind `json:"role"`
}

// ActorFromUser builds an Actor from a user loaded with its role
func ActorFromUser(u *model.User) Actor {
	return Actor{UserID: u.ID, Username: u.Username, Role: u.RoleKind()}
}

// Capability names a guarded group of operations
type Capability string

const (
	ViewLogs      Capability = "logs.view"
	ManageUsers   Capability = "users.manage"
	ManageContent Capability = "content.manage"
)

// AllCapabilities lists every capability in display order
var AllCapabilities = []Capability{ViewLogs, ManageUsers, ManageContent}

var policy = map[Capability][]model.RoleKind{
	ViewLogs:      {model.RoleSuperadmin, model.RoleAuditor},
	ManageUsers:   {model.RoleSuperadmin, model.RoleUserAdmin},
	ManageContent: {model.RoleContentAdmin},
}

// AllowedRoles returns the roles permitted to use c
func AllowedRoles(c Capability) []model.RoleKind {
	roles := policy[c]
	out := make([]model.RoleKind, len(roles))
	copy(out, roles)
	return out
}

// HasRole reports whether role is a member of allowed
func HasRole(role model.RoleKind, allowed ...model.RoleKind) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CapabilitiesOf returns the capabilities granted to role, in display order
func CapabilitiesOf(role model.RoleKind) []Capability {
	out := []Capability{}
	for _, c := range AllCapabilities {
		if HasRole(role, policy[c]...) {
			out = append(out, c)
		}
	}
	return out
}

// Can reports whether the actor may use c. Unknown capabilities are denied.
func Can(actor Actor, c Capability) bool {
	return HasRole(actor.Role, policy[c]...)
}

// Authorize returns ErrAccessDenied when the actor may not use c
func Authorize(actor Actor, c Capability) error {
	if !Can(actor, c) {
		return fmt.Errorf("%w: role %q lacks %s", ErrAccessDenied, actor.Role, c)
	}
	return nil
}

// CanAssignRole reports whether the actor may move a user from current to target.
// Granting or revoking superadmin is reserved to superadmins.
func CanAssignRole(actor Actor, current, target model.RoleKind) bool {
	if !Can(actor, ManageUsers) {
		return false
	}
	if current == model.RoleSuperadmin || target == model.RoleSuperadmin {
		return actor.Role == model.RoleSuperadmin
	}
	return true
}
