package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/errs"
)

const (
	DefaultPerPage = 12
	MaxPerPage     = 100

	DefaultRadiusKm = 5.0
	MinRadiusKm     = 0.1
	MaxRadiusKm     = 100.0
)

// Criteria is a parsed catalog query. Nil pointers and empty strings mean
// "no constraint".
type Criteria struct {
	Categories []string         `json:"categories,omitempty"`
	Operations []string         `json:"operations,omitempty"`
	PriceMin   *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax   *decimal.Decimal `json:"price_max,omitempty"`
	PriceRange string           `json:"price_range,omitempty"`
	Rooms      *int             `json:"rooms,omitempty"`
	Bedrooms   *int             `json:"bedrooms,omitempty"`
	Bathrooms  *int             `json:"bathrooms,omitempty"`
	Garages    *int             `json:"garages,omitempty"`
	BuiltMin   *decimal.Decimal `json:"built_min,omitempty"`
	BuiltMax   *decimal.Decimal `json:"built_max,omitempty"`
	UsableMin  *decimal.Decimal `json:"usable_min,omitempty"`
	UsableMax  *decimal.Decimal `json:"usable_max,omitempty"`
	Code       string           `json:"code,omitempty"`
	Address    string           `json:"address,omitempty"`
	Latitude   *float64         `json:"lat,omitempty"`
	Longitude  *float64         `json:"lng,omitempty"`
	RadiusKm   *float64         `json:"radius,omitempty"`
	Sort       string           `json:"sort,omitempty"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`

	// Applied echoes the recognised, non-empty query parameters.
	Applied map[string]string `json:"-"`
}

// echoed lists the query parameters copied into Criteria.Applied.
var echoed = []string{
	"categoria", "operacion", "codigo", "rango_precio", "ubicacion",
	"precio_min", "precio_max", "ambientes", "habitaciones", "banos", "cocheras",
	"superficie_min", "superficie_max",
	"superficie_construida_min", "superficie_construida_max",
	"superficie_terreno_min", "superficie_terreno_max",
	"lat", "lng", "radio", "orden", "per_page",
}

type priceBracket struct {
	value    string
	label    string
	min, max *decimal.Decimal
}

func bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

var priceBrackets = []priceBracket{
	{"0-50000", "$0 - $50,000", nil, bound(50000)},
	{"50000-100000", "$50,000 - $100,000", bound(50000), bound(100000)},
	{"100000-200000", "$100,000 - $200,000", bound(100000), bound(200000)},
	{"200000-500000", "$200,000 - $500,000", bound(200000), bound(500000)},
	{"500000+", "$500,000+", bound(500000), nil},
}

func lookupBracket(value string) (priceBracket, bool) {
	for _, b := range priceBrackets {
		if b.value == value {
			return b, true
		}
	}
	return priceBracket{}, false
}

const (
	SortCreatedDesc = "created_at_desc"
	SortCreatedAsc  = "created_at_asc"
	SortPriceAsc    = "price_asc"
	SortPriceDesc   = "price_desc"
	SortNameAsc     = "name_asc"
	SortNameDesc    = "name_desc"
)

var sortOptions = []Option{
	{SortCreatedDesc, "Más recientes primero"},
	{SortCreatedAsc, "Más antiguos primero"},
	{SortPriceAsc, "Precio: Menor a Mayor"},
	{SortPriceDesc, "Precio: Mayor a Menor"},
	{SortNameAsc, "Nombre A-Z"},
	{SortNameDesc, "Nombre Z-A"},
}

func validSort(s string) bool {
	for _, o := range sortOptions {
		if o.Value == s {
			return true
		}
	}
	return false
}

// ParseCriteria reads catalog criteria through get, which returns the raw
// value of a query parameter or "". Every malformed parameter is reported in
// the returned ValidationError.
func ParseCriteria(get func(key string) string) (Criteria, error) {
	p := &parser{get: get, v: &errs.ValidationError{}}
	c := Criteria{Applied: map[string]string{}}

	for _, key := range echoed {
		if raw := strings.TrimSpace(get(key)); raw != "" {
			c.Applied[key] = raw
		}
	}

	c.Categories = splitList(get("categoria"))
	c.Operations = splitList(get("operacion"))
	for _, op := range c.Operations {
		if !model.Operation(op).Valid() {
			p.v.Add("operacion", "must be one of venta, alquiler, anticretico")
			break
		}
	}

	c.PriceMin = p.money("precio_min")
	c.PriceMax = p.money("precio_max")
	if raw := strings.TrimSpace(get("rango_precio")); raw != "" {
		if _, ok := lookupBracket(raw); ok {
			c.PriceRange = raw
		} else {
			p.v.Add("rango_precio", "is not a known price range")
		}
	}

	c.Rooms = p.count("ambientes")
	c.Bedrooms = p.count("habitaciones")
	c.Bathrooms = p.count("banos")
	c.Garages = p.count("cocheras")

	c.BuiltMin = p.money("superficie_construida_min")
	c.BuiltMax = p.money("superficie_construida_max")
	// legacy names map onto built surface when the new ones are absent
	if c.BuiltMin == nil {
		c.BuiltMin = p.money("superficie_min")
	}
	if c.BuiltMax == nil {
		c.BuiltMax = p.money("superficie_max")
	}
	c.UsableMin = p.money("superficie_terreno_min")
	c.UsableMax = p.money("superficie_terreno_max")

	c.Code = strings.TrimSpace(get("codigo"))
	c.Address = strings.TrimSpace(get("ubicacion"))

	c.Latitude = p.float("lat", -90, 90)
	c.Longitude = p.float("lng", -180, 180)
	c.RadiusKm = p.float("radio", MinRadiusKm, MaxRadiusKm)
	if (c.Latitude == nil) != (c.Longitude == nil) {
		p.v.Add("lat", "lat and lng must be given together")
	}
	if c.Latitude != nil && c.RadiusKm == nil {
		r := DefaultRadiusKm
		c.RadiusKm = &r
	}

	c.Sort = strings.TrimSpace(get("orden"))
	if c.Sort != "" && !validSort(c.Sort) {
		p.v.Add("orden", "is not a known sort option")
	}

	c.Page = p.positive("page", 1)
	c.PerPage = p.positive("per_page", DefaultPerPage)
	if c.PerPage > MaxPerPage {
		c.PerPage = MaxPerPage
	}

	if err := p.v.OrNil(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// CacheKey derives a stable key from every criterion, page included.
func (c Criteria) CacheKey() string {
	n := c
	n.Categories = sortedCopy(c.Categories)
	n.Operations = sortedCopy(c.Operations)
	n.Code = strings.ToLower(c.Code)
	n.Address = strings.ToLower(c.Address)

	raw, _ := json.Marshal(n)
	sum := md5.Sum(raw)
	return "property_filters_" + hex.EncodeToString(sum[:])
}

// PriceBounds merges the explicit bounds with the preset bracket. Both apply,
// so the effective range is their intersection.
func (c Criteria) PriceBounds() (lower, upper []decimal.Decimal) {
	if c.PriceMin != nil {
		lower = append(lower, *c.PriceMin)
	}
	if c.PriceMax != nil {
		upper = append(upper, *c.PriceMax)
	}
	if b, ok := lookupBracket(c.PriceRange); ok {
		if b.min != nil {
			lower = append(lower, *b.min)
		}
		if b.max != nil {
			upper = append(upper, *b.max)
		}
	}
	return lower, upper
}

// HasProximity reports whether a lat/lng pair was given.
func (c Criteria) HasProximity() bool {
	return c.Latitude != nil && c.Longitude != nil && c.RadiusKm != nil
}

func (c Criteria) offset() int {
	return (c.Page - 1) * c.PerPage
}

type parser struct {
	get func(string) string
	v   *errs.ValidationError
}

func (p *parser) money(key string) *decimal.Decimal {
	raw := strings.TrimSpace(p.get(key))
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.v.Add(key, "must be a number")
		return nil
	}
	if d.IsNegative() {
		p.v.Add(key, "must be at least 0")
		return nil
	}
	return &d
}

func (p *parser) count(key string) *int {
	raw := strings.TrimSpace(p.get(key))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		p.v.Add(key, "must be a non-negative integer")
		return nil
	}
	return &n
}

func (p *parser) float(key string, min, max float64) *float64 {
	raw := strings.TrimSpace(p.get(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.v.Add(key, "must be a number")
		return nil
	}
	if f < min || f > max {
		p.v.Add(key, "must be between "+strconv.FormatFloat(min, 'f', -1, 64)+" and "+strconv.FormatFloat(max, 'f', -1, 64))
		return nil
	}
	return &f
}

// positive parses a page-like integer. Missing, malformed or non-positive
// values fall back to def.
func (p *parser) positive(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(p.get(key)))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
