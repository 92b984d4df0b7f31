package model

import "time"

// RoleKind is the closed set of roles the application knows how to serve.
type RoleKind string

const (
	RoleSuperadmin   RoleKind = "superadmin"
	RoleContentAdmin RoleKind = "content_admin"
	RoleUserAdmin    RoleKind = "user_admin"
	RoleAuditor      RoleKind = "auditor"
	RoleUser         RoleKind = "user"
)

// AllRoleKinds lists every RoleKind in seeding order
var AllRoleKinds = []RoleKind{
	RoleSuperadmin,
	RoleContentAdmin,
	RoleUserAdmin,
	RoleAuditor,
	RoleUser,
}

// ParseRoleKind maps a stored role name to its kind. Names outside the known set
// fall back to RoleUser so they receive the plain user view.
func ParseRoleKind(name string) RoleKind {
	switch RoleKind(name) {
	case RoleSuperadmin, RoleContentAdmin, RoleUserAdmin, RoleAuditor:
		return RoleKind(name)
	default:
		return RoleUser
	}
}

// Role is a named group of users. Name is unique at the storage layer.
type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Users       []User    `gorm:"foreignKey:RoleID" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OpenToRegistration reports whether visitors may pick this role when signing
// up. Privileged roles are only granted through user management.
func (r Role) OpenToRegistration() bool {
	return RoleKind(r.Name) == RoleUser
}

// Kind returns the role variant for this row
func (r Role) Kind() RoleKind {
	return ParseRoleKind(r.Name)
}
