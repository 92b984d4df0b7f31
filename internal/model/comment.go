package model

import "time"

// Comment is a user's message, usually attached to a Route
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"column:date_created;autoCreateTime;not null" json:"created_at"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"user,omitempty"`
	RouteID   *uint     `gorm:"index" json:"route_id,omitempty"`
	Route     *Route    `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE;" json:"-"`
}
