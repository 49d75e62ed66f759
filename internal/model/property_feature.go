package model

import (
	"gorm.io/datatypes"
)

type PropertyFeature struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	PropertyID uint           `json:"property_id" gorm:"index"`
	Title      string         `json:"title" gorm:"not null"`          // e.g. "Amenidades"
	Values     datatypes.JSON `json:"values"`                         // string or array of strings
	Order      int            `json:"order" gorm:"column:sort_order"` // display order
}
