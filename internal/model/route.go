package model

import (
	"fmt"
	"time"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Route is a trip through the catalog, optionally anchored to a Place
type Route struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(100);not null" json:"name"`
	CreatedAt       time.Time `gorm:"column:creation_date;autoCreateTime;not null" json:"created_at"`
	DurationSeconds int       `gorm:"not null" json:"duration_seconds"`
	Difficulty      int       `gorm:"not null;check:difficulty BETWEEN 1 AND 5" json:"difficulty"`
	AgeRestriction  *int      `gorm:"column:age_restrictions" json:"age_restriction,omitempty"`
	PlaceID         *uint     `gorm:"index" json:"place_id,omitempty"`
	Place           *Place    `gorm:"foreignKey:PlaceID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"place,omitempty"`
	Comments        []Comment `gorm:"foreignKey:RouteID" json:"comments,omitempty"`
}

// Duration returns the route length as a time.Duration
func (r Route) Duration() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}

// DurationLabel formats the duration as H:MM:SS
func (r Route) DurationLabel() string {
	s := r.DurationSeconds
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
