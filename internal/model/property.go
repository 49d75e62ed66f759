package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation is the kind of deal a listing is offered under.
type Operation string

const (
	OperationSale        Operation = "venta"
	OperationRental      Operation = "alquiler"
	OperationAnticretico Operation = "anticretico"
)

// Operations keeps the display order used by filter options.
var Operations = []Operation{OperationSale, OperationRental, OperationAnticretico}

func (o Operation) Valid() bool {
	switch o {
	case OperationSale, OperationRental, OperationAnticretico:
		return true
	}
	return false
}

// Label returns the public label for the operation
func (o Operation) Label() string {
	switch o {
	case OperationSale:
		return "Venta"
	case OperationRental:
		return "Alquiler"
	case OperationAnticretico:
		return "Anticrético"
	}
	return string(o)
}

type Property struct {
	ID          uint                `json:"id" gorm:"primaryKey"`
	CompanyID   uint                `json:"company_id" gorm:"index"`
	Name        string              `json:"name" gorm:"size:255;not null"`
	Code        string              `json:"codigo_inmueble" gorm:"size:100;uniqueIndex;not null"`
	SKU         *string             `json:"sku" gorm:"size:100;uniqueIndex"`
	Description string              `json:"descripcion" gorm:"type:text"`
	Price       decimal.Decimal     `json:"price" gorm:"type:decimal(12,2);not null;index"`
	UsableArea  decimal.NullDecimal `json:"superficie_util" gorm:"type:decimal(10,2)"`
	BuiltArea   decimal.NullDecimal `json:"superficie_construida" gorm:"type:decimal(10,2)"`
	Rooms       *int                `json:"ambientes"`
	Bedrooms    *int                `json:"habitaciones"`
	Bathrooms   *int                `json:"banos"`
	Garages     *int                `json:"cocheras"`
	YearBuilt   *int                `json:"ano_construccion"`
	Operation   Operation           `json:"operacion" gorm:"size:20;index"`
	Commission  decimal.NullDecimal `json:"comision" gorm:"type:decimal(5,2)"`
	IsPublic    bool                `json:"is_public" gorm:"index"`
	CategoryID  *uint               `json:"category_id" gorm:"index"`
	AgentID     *uint               `json:"agent_id" gorm:"index"`
	CreatedAt   time.Time           `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// Relations
	Category *Category         `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Agent    *User             `json:"-" gorm:"foreignKey:AgentID"`
	Images   []PropertyImage   `json:"images" gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
	Location *PropertyLocation `json:"location,omitempty" gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
	Features []PropertyFeature `json:"features,omitempty" gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
}

// Age returns the years elapsed since construction, relative to now.
func (p *Property) Age(now time.Time) *int {
	if p.YearBuilt == nil {
		return nil
	}
	age := now.Year() - *p.YearBuilt
	return &age
}

// PrimaryImage returns the cover image, or nil when the property has none.
func (p *Property) PrimaryImage() *PropertyImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	return nil
}

type PropertyImage struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PropertyID   uint      `json:"property_id" gorm:"index;not null"`
	Path         string    `json:"path" gorm:"not null"`
	URL          string    `json:"url" gorm:"not null"`
	OriginalName string    `json:"original_name"`
	IsPrimary    bool      `json:"is_primary"`
	Order        int       `json:"order" gorm:"column:sort_order;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
