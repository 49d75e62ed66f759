package model

import "time"

// PropertyLocation is the one-to-one geographic position of a property.
type PropertyLocation struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PropertyID uint      `json:"product_id" gorm:"uniqueIndex;not null"`
	Latitude   float64   `json:"latitude" gorm:"type:decimal(10,8);not null"`
	Longitude  float64   `json:"longitude" gorm:"type:decimal(11,8);not null"`
	Address    *string   `json:"address" gorm:"size:255"`
	IsActive   bool      `json:"is_active" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}
