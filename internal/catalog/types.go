// Package catalog serves the public property catalog from either the local
// database (FilterEngine) or a remote HTTP API (ExternalCatalog).
package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Source is the contract shared by both catalog backends.
type Source interface {
	Search(ctx context.Context, c Criteria) (*Listing, error)
	// Get returns nil, nil when the property does not exist or is not public.
	Get(ctx context.Context, id uint) (*Item, error)
	Related(ctx context.Context, item *Item, limit int) ([]Item, error)
	MapItems(ctx context.Context) ([]Item, error)
	ClearCache(ctx context.Context) error
}

// Item is the public projection of a property.
type Item struct {
	ID           uint                `json:"id"`
	Name         string              `json:"name"`
	Code         string              `json:"codigo_inmueble"`
	SKU          *string             `json:"sku,omitempty"`
	Price        decimal.Decimal     `json:"price"`
	Description  string              `json:"descripcion"`
	Address      *string             `json:"direccion"`
	UsableArea   decimal.NullDecimal `json:"superficie_util"`
	BuiltArea    decimal.NullDecimal `json:"superficie_construida"`
	Rooms        *int                `json:"ambientes"`
	Bedrooms     *int                `json:"habitaciones"`
	Bathrooms    *int                `json:"banos"`
	Garages      *int                `json:"cocheras"`
	YearBuilt    *int                `json:"ano_construccion"`
	Age          *int                `json:"antiguedad"`
	Operation    string              `json:"operacion"`
	CategoryID   *uint               `json:"category_id"`
	Category     *string             `json:"category"`
	IsPublic     bool                `json:"is_public"`
	Commission   decimal.NullDecimal `json:"comision"`
	PrimaryImage *string             `json:"imagen_portada,omitempty"`
	Images       []Image             `json:"images"`
	Location     *Location           `json:"location"`
	Features     []Feature           `json:"caracteristicas,omitempty"`
	ListingAgent *string             `json:"agente_captador,omitempty"`
	SellingAgent *string             `json:"agente_vendedor,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type Image struct {
	ID           uint   `json:"id"`
	URL          string `json:"image_path"`
	OriginalName string `json:"original_name"`
	IsPrimary    bool   `json:"is_primary"`
	Order        int    `json:"order"`
	Size         int64  `json:"size,omitempty"`
}

type Location struct {
	ID        uint    `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   *string `json:"address"`
	IsActive  bool    `json:"is_active"`
}

type Feature struct {
	Title  string      `json:"title"`
	Values interface{} `json:"values"`
}

// Pagination mirrors a length-aware paginator. From and To are nil when the
// page holds no items.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	From        *int  `json:"from"`
	To          *int  `json:"to"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type FilterOptions struct {
	Categories  []Option `json:"categorias"`
	Operations  []Option `json:"operaciones"`
	PriceRanges []Option `json:"rango_precios"`
	Addresses   []string `json:"ubicaciones"`
	SortOptions []Option `json:"opciones_ordenamiento"`
}

// Listing is the response of a catalog search.
type Listing struct {
	Items         []Item            `json:"propiedades"`
	Pagination    Pagination        `json:"pagination"`
	FilterOptions *FilterOptions    `json:"filter_options"`
	Filters       map[string]string `json:"filtros"`
	Error         string            `json:"error,omitempty"`
}

// page is the cached part of a listing.
type page struct {
	Items      []Item     `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// RelatedView keeps only the first two images of an item, for suggestion
// strips.
func RelatedView(item Item) Item {
	if len(item.Images) > 2 {
		item.Images = item.Images[:2]
	}
	item.Features = nil
	return item
}
