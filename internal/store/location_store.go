// Package store provides data access for property locations.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/errs"
	"inmuebles_backend/pkg/utils/location"
)

const maxAddressLength = 255

// LocationStore reads and writes the one-to-one location of a property.
type LocationStore struct {
	db *gorm.DB
}

func NewLocationStore(db *gorm.DB) *LocationStore {
	return &LocationStore{db: db}
}

// NearbyResult pairs a location with its distance from the query point.
type NearbyResult struct {
	Location   model.PropertyLocation `json:"location"`
	DistanceKm float64                `json:"distance"`
}

func (s *LocationStore) Get(ctx context.Context, propertyID uint) (*model.PropertyLocation, error) {
	var loc model.PropertyLocation
	err := s.db.WithContext(ctx).Where("property_id = ?", propertyID).First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("location")
	}
	if err != nil {
		return nil, fmt.Errorf("loading location: %w", err)
	}
	return &loc, nil
}

// Upsert creates the location of propertyID or overwrites every field of the
// existing one. Input is validated before anything is written.
func (s *LocationStore) Upsert(ctx context.Context, propertyID uint, lat, lon float64, address *string, active bool) (*model.PropertyLocation, error) {
	v := location.ValidateCoordinates(lat, lon)
	if address != nil {
		trimmed := strings.TrimSpace(*address)
		if len([]rune(trimmed)) > maxAddressLength {
			v.Add("address", fmt.Sprintf("must be at most %d characters", maxAddressLength))
		}
		if trimmed == "" {
			address = nil
		} else {
			address = &trimmed
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var loc model.PropertyLocation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Property{}).Where("id = ?", propertyID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errs.NotFound("property")
		}

		err := tx.Where("property_id = ?", propertyID).First(&loc).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		loc.PropertyID = propertyID
		loc.Latitude = lat
		loc.Longitude = lon
		loc.Address = address
		loc.IsActive = active

		if loc.ID == 0 {
			return tx.Create(&loc).Error
		}
		return tx.Save(&loc).Error
	})
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("saving location: %w", err)
	}
	return &loc, nil
}

func (s *LocationStore) SetActive(ctx context.Context, propertyID uint, active bool) (*model.PropertyLocation, error) {
	loc, err := s.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	loc.IsActive = active
	if err := s.db.WithContext(ctx).Model(loc).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("updating location: %w", err)
	}
	return loc, nil
}

// ToggleActive flips the active flag.
func (s *LocationStore) ToggleActive(ctx context.Context, propertyID uint) (*model.PropertyLocation, error) {
	loc, err := s.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return s.SetActive(ctx, propertyID, !loc.IsActive)
}

func (s *LocationStore) Delete(ctx context.Context, propertyID uint) error {
	result := s.db.WithContext(ctx).Where("property_id = ?", propertyID).Delete(&model.PropertyLocation{})
	if result.Error != nil {
		return fmt.Errorf("deleting location: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("location")
	}
	return nil
}

// List returns every location with its property, newest property first.
func (s *LocationStore) List(ctx context.Context, onlyActive bool) ([]model.PropertyLocation, error) {
	var locs []model.PropertyLocation
	q := s.db.WithContext(ctx).Preload("Property").Order("property_id DESC")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	return locs, nil
}

// Nearby scans all locations and keeps those within radiusKm of the point,
// closest first. The scan is linear in the number of locations.
func (s *LocationStore) Nearby(ctx context.Context, lat, lon, radiusKm float64, onlyActive bool) ([]NearbyResult, error) {
	var locs []model.PropertyLocation
	q := s.db.WithContext(ctx).Order("id")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("scanning locations: %w", err)
	}

	results := make([]NearbyResult, 0)
	for _, loc := range locs {
		d := location.DistanceKm(lat, lon, loc.Latitude, loc.Longitude)
		if d <= radiusKm {
			results = append(results, NearbyResult{Location: loc, DistanceKm: d})
		}
	}

	slices.SortStableFunc(results, func(a, b NearbyResult) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})
	return results, nil
}

// likeEscaper escapes LIKE wildcards with '!', which none of the supported
// dialects treat specially inside a string literal.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ContainsPattern returns a lower-cased LIKE pattern matching substr
// literally anywhere in a value. Use it with LikeEscape.
func ContainsPattern(substr string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(substr)) + "%"
}

// LikeEscape is the ESCAPE clause matching ContainsPattern.
const LikeEscape = "ESCAPE '!'"

// PropertyIDsByAddress returns the ids of properties whose address contains
// substr, ignoring case.
func (s *LocationStore) PropertyIDsByAddress(ctx context.Context, substr string) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.PropertyLocation{}).
		Where("LOWER(address) LIKE ? "+LikeEscape, ContainsPattern(substr)).
		Pluck("property_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("matching addresses: %w", err)
	}
	return ids, nil
}

// DistinctAddresses returns up to limit distinct non-empty addresses.
func (s *LocationStore) DistinctAddresses(ctx context.Context, limit int) ([]string, error) {
	addresses := make([]string, 0, limit)
	err := s.db.WithContext(ctx).Model(&model.PropertyLocation{}).
		Where("address IS NOT NULL AND address <> ''").
		Distinct("address").
		Order("address").
		Limit(limit).
		Pluck("address", &addresses).Error
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return addresses, nil
}

// ToGeoJSON renders a location as a GeoJSON point feature.
func ToGeoJSON(loc *model.PropertyLocation) location.Feature {
	return location.NewPointFeature(loc.ID, loc.PropertyID, loc.Latitude, loc.Longitude, loc.Address, loc.IsActive)
}

// ToFeatureCollection renders several locations.
func ToFeatureCollection(locs []model.PropertyLocation) location.FeatureCollection {
	features := make([]location.Feature, 0, len(locs))
	for i := range locs {
		features = append(features, ToGeoJSON(&locs[i]))
	}
	return location.NewFeatureCollection(features)
}
