package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// envelope is the response wrapper of the remote catalog API.
type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
}

type upstreamProduct struct {
	ID              flexUint            `json:"id"`
	Name            string              `json:"nombre"`
	Code            string              `json:"codigo_inmueble"`
	SKU             *string             `json:"sku"`
	Price           decimal.Decimal     `json:"precio"`
	Description     string              `json:"descripcion"`
	Operation       string              `json:"operacion"`
	Commission      decimal.NullDecimal `json:"comision"`
	Characteristics upstreamFeatures    `json:"caracteristicas"`
	Category        *upstreamCategory   `json:"categoria"`
	Images          []upstreamImage     `json:"imagenes"`
	PrimaryImage    *string             `json:"imagen_portada"`
	ListingAgent    *string             `json:"agente_captador"`
	SellingAgent    *string             `json:"agente_vendedor"`
	Location        *upstreamLocation   `json:"ubicacion"`
	CreatedAt       flexTime            `json:"fecha_creacion"`
	UpdatedAt       flexTime            `json:"fecha_actualizacion"`
}

type upstreamFeatures struct {
	UsableArea decimal.NullDecimal `json:"superficie_util"`
	BuiltArea  decimal.NullDecimal `json:"superficie_construida"`
	Rooms      flexInt             `json:"ambientes"`
	Bedrooms   flexInt             `json:"habitaciones"`
	Bathrooms  flexInt             `json:"banos"`
	Garages    flexInt             `json:"cocheras"`
	YearBuilt  flexInt             `json:"ano_construccion"`
}

type upstreamCategory struct {
	ID   flexUint `json:"id"`
	Name string   `json:"nombre"`
}

type upstreamImage struct {
	ID        flexUint `json:"id"`
	URL       string   `json:"url"`
	Filename  string   `json:"filename"`
	IsPrimary bool     `json:"es_portada"`
	Size      flexInt  `json:"size"`
}

type upstreamLocation struct {
	Latitude  decimal.Decimal `json:"latitud"`
	Longitude decimal.Decimal `json:"longitud"`
	Address   *string         `json:"direccion"`
}

// toItem maps a remote product onto the public item shape. Remote products
// are always public.
func (u upstreamProduct) toItem(now time.Time) Item {
	f := u.Characteristics
	item := Item{
		ID:           uint(u.ID),
		Name:         u.Name,
		Code:         u.Code,
		SKU:          u.SKU,
		Price:        u.Price,
		Description:  u.Description,
		UsableArea:   f.UsableArea,
		BuiltArea:    f.BuiltArea,
		Rooms:        f.Rooms.Ptr(),
		Bedrooms:     f.Bedrooms.Ptr(),
		Bathrooms:    f.Bathrooms.Ptr(),
		Garages:      f.Garages.Ptr(),
		YearBuilt:    f.YearBuilt.Ptr(),
		Operation:    u.Operation,
		IsPublic:     true,
		Commission:   u.Commission,
		PrimaryImage: u.PrimaryImage,
		Images:       make([]Image, 0, len(u.Images)),
		ListingAgent: u.ListingAgent,
		SellingAgent: u.SellingAgent,
		CreatedAt:    time.Time(u.CreatedAt),
		UpdatedAt:    time.Time(u.UpdatedAt),
	}
	if item.Code == "" {
		item.Code = "N/A"
	}
	if u.Category != nil {
		id := uint(u.Category.ID)
		name := u.Category.Name
		item.CategoryID = &id
		item.Category = &name
	}
	for _, img := range u.Images {
		item.Images = append(item.Images, Image{
			ID:           uint(img.ID),
			URL:          img.URL,
			OriginalName: img.Filename,
			IsPrimary:    img.IsPrimary,
			Size:         int64(img.Size.Value),
		})
	}
	if loc := u.Location; loc != nil {
		item.Location = &Location{
			Latitude:  loc.Latitude.InexactFloat64(),
			Longitude: loc.Longitude.InexactFloat64(),
			Address:   loc.Address,
			IsActive:  true,
		}
		item.Address = loc.Address
	}
	refreshAge(&item, now)
	return item
}

// refreshAge recomputes the derived age against now.
func refreshAge(item *Item, now time.Time) {
	item.Age = nil
	if item.YearBuilt != nil {
		age := now.Year() - *item.YearBuilt
		item.Age = &age
	}
}

// flexUint accepts a JSON number or a numeric string.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}

	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexUint(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		val, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("flexUint: invalid string %q: %w", s, err)
		}
		*f = flexUint(val)
		return nil
	}

	return fmt.Errorf("flexUint: expected number or string")
}

// flexInt is a nullable int that accepts a JSON number or a numeric string.
// Empty strings decode as null.
type flexInt struct {
	Value int
	Valid bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	*f = flexInt{}
	if isNull(data) {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return f.parse(string(n))
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("flexInt: expected number or string")
	}
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return f.parse(s)
}

func (f *flexInt) parse(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("flexInt: invalid number %q: %w", s, err)
	}
	f.Value = int(d.IntPart())
	f.Valid = true
	return nil
}

func (f flexInt) Ptr() *int {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

var upstreamTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// flexTime accepts the date formats the remote API has been seen to send.
// Unparseable values decode as the zero time.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	for _, layout := range upstreamTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	return nil
}

func isNull(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
