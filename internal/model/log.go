package model

import "time"

// LogCategory classifies an audit entry
type LogCategory string

const (
	CategoryContentUpdate  LogCategory = "content_update"
	CategoryUserManagement LogCategory = "user_management"
	CategorySecurity       LogCategory = "security"
)

// AllLogCategories lists the accepted categories in display order
var AllLogCategories = []LogCategory{
	CategoryContentUpdate,
	CategoryUserManagement,
	CategorySecurity,
}

// IsValid reports whether c is one of the known categories
func (c LogCategory) IsValid() bool {
	for _, known := range AllLogCategories {
		if c == known {
			return true
		}
	}
	return false
}

const (
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionLogout         = "logout"
	ActionUserRegistered = "user_registered"
	ActionRoleChanged    = "role_changed"
	ActionPlaceCreated   = "place_created"
	ActionRouteCreated   = "route_created"
)

// Log tracks who did what and when for privileged actions
type Log struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"not null;index" json:"user_id"`
	User      *User       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"user,omitempty"`
	Category  LogCategory `gorm:"type:varchar(50);not null;index" json:"category"`
	Action    string      `gorm:"type:varchar(255);not null" json:"action"`
	Timestamp time.Time   `gorm:"column:timestamp;autoCreateTime;not null;index" json:"timestamp"`
	Details   string      `gorm:"type:text" json:"details,omitempty"` // Serialized JSON payload of the action
}
