package model

import "github.com/shopspring/decimal"

// Rating bounds for Place.Rating
var (
	MinRating = decimal.Zero
	MaxRating = decimal.NewFromInt(5)
)

// Place is a point of interest that routes can lead to
type Place struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Category    string          `gorm:"type:varchar(50)" json:"category,omitempty"`
	Rating      decimal.Decimal `gorm:"type:decimal(3,2);not null" json:"rating"`
	Location    string          `gorm:"column:geographical_location;type:varchar(100)" json:"location,omitempty"`
	Routes      []Route         `gorm:"foreignKey:PlaceID" json:"routes,omitempty"`
}
