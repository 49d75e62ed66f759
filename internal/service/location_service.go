package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/store"
	"inmuebles_backend/pkg/errs"
)

type LocationInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   *string  `json:"address"`
	IsActive  *bool    `json:"is_active"`
}

// LocationService scopes the location store to the tenant's properties.
type LocationService struct {
	db        *gorm.DB
	locations *store.LocationStore
	options   OptionsCache
}

func NewLocationService(db *gorm.DB, locations *store.LocationStore, options OptionsCache) *LocationService {
	return &LocationService{db: db, locations: locations, options: options}
}

func (s *LocationService) Get(ctx context.Context, tenantID, propertyID uint) (*model.PropertyLocation, error) {
	if err := s.owns(ctx, tenantID, propertyID); err != nil {
		return nil, err
	}
	return s.locations.Get(ctx, propertyID)
}

// Upsert saves the location of a property. A missing is_active means active.
func (s *LocationService) Upsert(ctx context.Context, tenantID, propertyID uint, in LocationInput) (*model.PropertyLocation, error) {
	if err := s.owns(ctx, tenantID, propertyID); err != nil {
		return nil, err
	}
	if in.Latitude == nil || in.Longitude == nil {
		v := &errs.ValidationError{}
		if in.Latitude == nil {
			v.Add("latitude", "is required")
		}
		if in.Longitude == nil {
			v.Add("longitude", "is required")
		}
		return nil, v
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	loc, err := s.locations.Upsert(ctx, propertyID, *in.Latitude, *in.Longitude, in.Address, active)
	if err != nil {
		return nil, err
	}
	clearOptions(ctx, s.options)
	return loc, nil
}

func (s *LocationService) Toggle(ctx context.Context, tenantID, propertyID uint) (*model.PropertyLocation, error) {
	if err := s.owns(ctx, tenantID, propertyID); err != nil {
		return nil, err
	}
	return s.locations.ToggleActive(ctx, propertyID)
}

func (s *LocationService) Delete(ctx context.Context, tenantID, propertyID uint) error {
	if err := s.owns(ctx, tenantID, propertyID); err != nil {
		return err
	}
	if err := s.locations.Delete(ctx, propertyID); err != nil {
		return err
	}
	clearOptions(ctx, s.options)
	return nil
}

// List returns the tenant's locations with their properties.
func (s *LocationService) List(ctx context.Context, tenantID uint, onlyActive bool) ([]model.PropertyLocation, error) {
	all, err := s.locations.List(ctx, onlyActive)
	if err != nil {
		return nil, err
	}
	out := make([]model.PropertyLocation, 0, len(all))
	for _, loc := range all {
		if loc.Property != nil && loc.Property.CompanyID == tenantID {
			out = append(out, loc)
		}
	}
	return out, nil
}

// Nearby returns the tenant's active locations within radiusKm, closest
// first, each with its property and category loaded.
func (s *LocationService) Nearby(ctx context.Context, tenantID uint, lat, lon, radiusKm float64) ([]store.NearbyResult, error) {
	results, err := s.locations.Nearby(ctx, lat, lon, radiusKm, true)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]uint, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Location.PropertyID)
	}
	var props []model.Property
	err = s.db.WithContext(ctx).Preload("Category").
		Where("id IN ? AND company_id = ?", ids, tenantID).
		Find(&props).Error
	if err != nil {
		return nil, fmt.Errorf("loading nearby properties: %w", err)
	}
	byID := make(map[uint]*model.Property, len(props))
	for i := range props {
		byID[props[i].ID] = &props[i]
	}

	out := make([]store.NearbyResult, 0, len(results))
	for _, r := range results {
		if p, ok := byID[r.Location.PropertyID]; ok {
			r.Location.Property = p
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *LocationService) owns(ctx context.Context, tenantID, propertyID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Property{}).
		Where("id = ? AND company_id = ?", propertyID, tenantID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("loading property: %w", err)
	}
	if count == 0 {
		return errs.NotFound("property")
	}
	return nil
}
