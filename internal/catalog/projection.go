package catalog

import (
	"encoding/json"
	"time"

	"inmuebles_backend/internal/model"
)

// itemFromProperty projects a stored property with its preloaded relations.
func itemFromProperty(p *model.Property, now time.Time) Item {
	item := Item{
		ID:          p.ID,
		Name:        p.Name,
		Code:        p.Code,
		SKU:         p.SKU,
		Price:       p.Price,
		Description: p.Description,
		UsableArea:  p.UsableArea,
		BuiltArea:   p.BuiltArea,
		Rooms:       p.Rooms,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Garages:     p.Garages,
		YearBuilt:   p.YearBuilt,
		Age:         p.Age(now),
		Operation:   string(p.Operation),
		CategoryID:  p.CategoryID,
		IsPublic:    p.IsPublic,
		Commission:  p.Commission,
		Images:      make([]Image, 0, len(p.Images)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	if p.Code == "" {
		item.Code = "N/A"
	}
	if p.Category != nil {
		name := p.Category.Name
		item.Category = &name
	}

	for _, img := range p.Images {
		item.Images = append(item.Images, Image{
			ID:           img.ID,
			URL:          img.URL,
			OriginalName: img.OriginalName,
			IsPrimary:    img.IsPrimary,
			Order:        img.Order,
		})
	}
	if cover := p.PrimaryImage(); cover != nil {
		url := cover.URL
		item.PrimaryImage = &url
	}

	if loc := p.Location; loc != nil {
		item.Location = &Location{
			ID:        loc.ID,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Address:   loc.Address,
			IsActive:  loc.IsActive,
		}
		item.Address = loc.Address
	}

	for _, f := range p.Features {
		var values interface{}
		if len(f.Values) > 0 {
			if err := json.Unmarshal(f.Values, &values); err != nil {
				values = string(f.Values)
			}
		}
		item.Features = append(item.Features, Feature{Title: f.Title, Values: values})
	}

	return item
}

// mapView strips an item down to what a map marker needs.
func mapView(item Item) Item {
	item.Images = []Image{}
	item.Features = nil
	item.Description = ""
	return item
}
