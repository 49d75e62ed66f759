package catalog

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"inmuebles_backend/pkg/utils/location"
)

// filterItems applies criteria to an in-memory catalog. Categories match by
// name, ignoring case.
func filterItems(items []Item, c Criteria) []Item {
	lower, upper := c.PriceBounds()
	out := make([]Item, 0, len(items))

	for _, item := range items {
		if len(c.Categories) > 0 && !matchesCategoryName(item, c.Categories) {
			continue
		}
		if len(c.Operations) > 0 && !slices.Contains(c.Operations, item.Operation) {
			continue
		}
		if c.Code != "" && !matchesCode(item, c.Code) {
			continue
		}
		if !withinBounds(item.Price, lower, upper) {
			continue
		}
		if !equalCount(c.Rooms, item.Rooms) || !equalCount(c.Bedrooms, item.Bedrooms) ||
			!equalCount(c.Bathrooms, item.Bathrooms) || !equalCount(c.Garages, item.Garages) {
			continue
		}
		if !withinRange(item.BuiltArea, c.BuiltMin, c.BuiltMax) || !withinRange(item.UsableArea, c.UsableMin, c.UsableMax) {
			continue
		}
		if c.Address != "" && !containsFold(item.Address, c.Address) {
			continue
		}
		if c.HasProximity() && !isNear(item, *c.Latitude, *c.Longitude, *c.RadiusKm) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesCategoryName(item Item, names []string) bool {
	if item.Category == nil {
		return false
	}
	for _, n := range names {
		if strings.EqualFold(*item.Category, n) {
			return true
		}
	}
	return false
}

func matchesCode(item Item, code string) bool {
	needle := strings.ToLower(code)
	if strings.Contains(strings.ToLower(item.Code), needle) {
		return true
	}
	return item.SKU != nil && strings.Contains(strings.ToLower(*item.SKU), needle)
}

func withinBounds(v decimal.Decimal, lower, upper []decimal.Decimal) bool {
	for _, l := range lower {
		if v.LessThan(l) {
			return false
		}
	}
	for _, u := range upper {
		if v.GreaterThan(u) {
			return false
		}
	}
	return true
}

func equalCount(want, got *int) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

// withinRange treats a missing value as failing any given bound.
func withinRange(v decimal.NullDecimal, min, max *decimal.Decimal) bool {
	if min == nil && max == nil {
		return true
	}
	if !v.Valid {
		return false
	}
	if min != nil && v.Decimal.LessThan(*min) {
		return false
	}
	if max != nil && v.Decimal.GreaterThan(*max) {
		return false
	}
	return true
}

func containsFold(s *string, substr string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), strings.ToLower(substr))
}

func isNear(item Item, lat, lon, radiusKm float64) bool {
	if item.Location == nil {
		return false
	}
	return location.DistanceKm(lat, lon, item.Location.Latitude, item.Location.Longitude) <= radiusKm
}

// sortItems orders items in place for an explicit sort option. An empty
// option keeps the incoming order.
func sortItems(items []Item, option string) {
	var cmp func(a, b Item) int
	switch option {
	case SortCreatedDesc:
		cmp = func(a, b Item) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortCreatedAsc:
		cmp = func(a, b Item) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortPriceAsc:
		cmp = func(a, b Item) int { return a.Price.Cmp(b.Price) }
	case SortPriceDesc:
		cmp = func(a, b Item) int { return b.Price.Cmp(a.Price) }
	case SortNameAsc:
		cmp = func(a, b Item) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case SortNameDesc:
		cmp = func(a, b Item) int { return strings.Compare(strings.ToLower(b.Name), strings.ToLower(a.Name)) }
	default:
		return
	}
	slices.SortStableFunc(items, cmp)
}
