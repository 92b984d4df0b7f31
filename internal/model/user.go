package model

import "time"

// User is an account that can sign in. Username is unique at the storage layer
// and RoleID must reference an existing Role.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"` // Omit hash from every response
	RoleID       uint      `gorm:"not null;index" json:"role_id"`
	Role         *Role     `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"role,omitempty"`
	Logs         []Log     `gorm:"foreignKey:UserID" json:"-"`
	Comments     []Comment `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RoleKind returns the kind of the preloaded role, or RoleUser when it was not loaded
func (u User) RoleKind() RoleKind {
	if u.Role == nil {
		return RoleUser
	}
	return u.Role.Kind()
}
