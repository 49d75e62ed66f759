// Package service holds the back-office use cases. Every call is scoped to
// the tenant (company) id taken from the caller's token.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"inmuebles_backend/internal/catalog"
	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/errs"
	"inmuebles_backend/pkg/utils/storage"
	"inmuebles_backend/pkg/utils/validation"
)

const minYearBuilt = 1900

// OptionsCache is the part of the catalog engine that writes must reset.
type OptionsCache interface {
	ClearOptionsCache(ctx context.Context) error
}

type FeatureInput struct {
	Title  string          `json:"title" validate:"required,max=255"`
	Values json.RawMessage `json:"values"`
}

type PropertyInput struct {
	Name        string              `json:"name" validate:"required,max=255"`
	Code        string              `json:"codigo_inmueble" validate:"required,max=100"`
	SKU         *string             `json:"sku" validate:"omitempty,max=100"`
	Description string              `json:"descripcion"`
	Price       decimal.Decimal     `json:"price"`
	UsableArea  decimal.NullDecimal `json:"superficie_util"`
	BuiltArea   decimal.NullDecimal `json:"superficie_construida"`
	Rooms       *int                `json:"ambientes" validate:"omitempty,gte=0"`
	Bedrooms    *int                `json:"habitaciones" validate:"omitempty,gte=0"`
	Bathrooms   *int                `json:"banos" validate:"omitempty,gte=0"`
	Garages     *int                `json:"cocheras" validate:"omitempty,gte=0"`
	YearBuilt   *int                `json:"ano_construccion"`
	Operation   string              `json:"operacion" validate:"required,oneof=venta alquiler anticretico"`
	Commission  decimal.NullDecimal `json:"comision"`
	IsPublic    bool                `json:"is_public"`
	CategoryID  *uint               `json:"category_id"`
	AgentID     *uint               `json:"agent_id"`
	Features    []FeatureInput      `json:"caracteristicas" validate:"dive"`
}

type PropertyService struct {
	db      *gorm.DB
	storage storage.ObjectStorage
	options OptionsCache
	now     func() time.Time
}

func NewPropertyService(db *gorm.DB, store storage.ObjectStorage, options OptionsCache) *PropertyService {
	return &PropertyService{db: db, storage: store, options: options, now: time.Now}
}

// List returns one page of the tenant's properties, newest first. search
// matches name or code.
func (s *PropertyService) List(ctx context.Context, tenantID uint, search string, page, perPage int) ([]model.Property, catalog.Pagination, error) {
	if perPage < 1 {
		perPage = catalog.DefaultPerPage
	}
	if perPage > catalog.MaxPerPage {
		perPage = catalog.MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	q := s.db.WithContext(ctx).Model(&model.Property{}).Where("company_id = ?", tenantID)
	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(code) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, catalog.Pagination{}, fmt.Errorf("counting properties: %w", err)
	}

	properties := []model.Property{}
	err := q.Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&properties).Error
	if err != nil {
		return nil, catalog.Pagination{}, fmt.Errorf("listing properties: %w", err)
	}
	return properties, catalog.NewPagination(total, page, perPage), nil
}

func (s *PropertyService) Get(ctx context.Context, tenantID, id uint) (*model.Property, error) {
	var p model.Property
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Location").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("Features", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Where("id = ? AND company_id = ?", id, tenantID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("property")
	}
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	return &p, nil
}

// Create validates and stores a new property with its features.
func (s *PropertyService) Create(ctx context.Context, tenantID uint, in PropertyInput) (*model.Property, error) {
	p := model.Property{CompanyID: tenantID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validate(tx, in, 0); err != nil {
			return err
		}
		apply(&p, in)
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return replaceFeatures(tx, p.ID, in.Features)
	})
	if err != nil {
		return nil, wrapWrite("creating property", err)
	}

	clearOptions(ctx, s.options)
	return s.Get(ctx, tenantID, p.ID)
}

// Update overwrites every field and replaces the feature set.
func (s *PropertyService) Update(ctx context.Context, tenantID, id uint, in PropertyInput) (*model.Property, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Property
		if err := tx.Where("id = ? AND company_id = ?", id, tenantID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("property")
			}
			return err
		}
		if err := s.validate(tx, in, id); err != nil {
			return err
		}
		apply(&p, in)
		if err := tx.Omit("Category", "Agent", "Images", "Location", "Features").Save(&p).Error; err != nil {
			return err
		}
		return replaceFeatures(tx, p.ID, in.Features)
	})
	if err != nil {
		return nil, wrapWrite("updating property", err)
	}

	clearOptions(ctx, s.options)
	return s.Get(ctx, tenantID, id)
}

// TogglePublic flips the visibility of a property in the public catalog.
func (s *PropertyService) TogglePublic(ctx context.Context, tenantID, id uint) (*model.Property, error) {
	result := s.db.WithContext(ctx).Model(&model.Property{}).
		Where("id = ? AND company_id = ?", id, tenantID).
		Update("is_public", gorm.Expr("NOT is_public"))
	if result.Error != nil {
		return nil, fmt.Errorf("toggling property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errs.NotFound("property")
	}

	clearOptions(ctx, s.options)
	return s.Get(ctx, tenantID, id)
}

// Delete removes the property with its images, location and features.
// Stored image files are removed after commit; failures there are logged.
func (s *PropertyService) Delete(ctx context.Context, tenantID, id uint) error {
	var images []model.PropertyImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Property
		if err := tx.Where("id = ? AND company_id = ?", id, tenantID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("property")
			}
			return err
		}
		if err := tx.Where("property_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		for _, related := range []interface{}{&model.PropertyImage{}, &model.PropertyLocation{}, &model.PropertyFeature{}} {
			if err := tx.Where("property_id = ?", id).Delete(related).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		return wrapWrite("deleting property", err)
	}

	for _, img := range images {
		if err := s.storage.Delete(ctx, img.Path); err != nil {
			log.Printf("Could not delete image file %s of property %d: %v", img.Path, id, err)
		}
	}
	clearOptions(ctx, s.options)
	return nil
}

// validate collects every problem with in. excludeID is the property being
// updated, so its own code and sku do not count as duplicates.
func (s *PropertyService) validate(tx *gorm.DB, in PropertyInput, excludeID uint) error {
	v := &errs.ValidationError{}
	if err := validation.Struct(in); err != nil {
		fv, ok := errs.AsValidation(err)
		if !ok {
			return err
		}
		v.Fields = append(v.Fields, fv.Fields...)
	}

	if in.Price.IsNegative() {
		v.Add("price", "must be at least 0")
	}
	if in.Commission.Valid && (in.Commission.Decimal.IsNegative() || in.Commission.Decimal.GreaterThan(decimal.NewFromInt(100))) {
		v.Add("comision", "must be between 0 and 100")
	}
	for field, area := range map[string]decimal.NullDecimal{"superficie_util": in.UsableArea, "superficie_construida": in.BuiltArea} {
		if area.Valid && area.Decimal.IsNegative() {
			v.Add(field, "must be at least 0")
		}
	}
	if in.YearBuilt != nil {
		if year := s.now().Year(); *in.YearBuilt < minYearBuilt || *in.YearBuilt > year {
			v.Add("ano_construccion", fmt.Sprintf("must be between %d and %d", minYearBuilt, year))
		}
	}

	if in.CategoryID != nil {
		var count int64
		if err := tx.Model(&model.Category{}).Where("id = ?", *in.CategoryID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			v.Add("category_id", "does not exist")
		}
	}

	if code := strings.TrimSpace(in.Code); code != "" {
		taken, err := exists(tx, "code = ? AND id <> ?", code, excludeID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("codigo_inmueble", "is already in use")
		}
	}
	if in.SKU != nil && strings.TrimSpace(*in.SKU) != "" {
		taken, err := exists(tx, "sku = ? AND id <> ?", strings.TrimSpace(*in.SKU), excludeID)
		if err != nil {
			return err
		}
		if taken {
			v.Add("sku", "is already in use")
		}
	}

	return v.OrNil()
}

func exists(tx *gorm.DB, query string, args ...interface{}) (bool, error) {
	var count int64
	err := tx.Model(&model.Property{}).Where(query, args...).Count(&count).Error
	return count > 0, err
}

func apply(p *model.Property, in PropertyInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Code = strings.TrimSpace(in.Code)
	p.SKU = nil
	if in.SKU != nil && strings.TrimSpace(*in.SKU) != "" {
		sku := strings.TrimSpace(*in.SKU)
		p.SKU = &sku
	}
	p.Description = in.Description
	p.Price = in.Price
	p.UsableArea = in.UsableArea
	p.BuiltArea = in.BuiltArea
	p.Rooms = in.Rooms
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.Garages = in.Garages
	p.YearBuilt = in.YearBuilt
	p.Operation = model.Operation(in.Operation)
	p.Commission = in.Commission
	p.IsPublic = in.IsPublic
	p.CategoryID = in.CategoryID
	p.AgentID = in.AgentID
}

func replaceFeatures(tx *gorm.DB, propertyID uint, features []FeatureInput) error {
	if err := tx.Where("property_id = ?", propertyID).Delete(&model.PropertyFeature{}).Error; err != nil {
		return err
	}
	for i, f := range features {
		values := datatypes.JSON(f.Values)
		if len(values) == 0 {
			values = datatypes.JSON("null")
		}
		row := model.PropertyFeature{
			PropertyID: propertyID,
			Title:      strings.TrimSpace(f.Title),
			Values:     values,
			Order:      i,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// clearOptions resets the cached filter options. Failures are logged.
func clearOptions(ctx context.Context, options OptionsCache) {
	if options == nil {
		return
	}
	if err := options.ClearOptionsCache(ctx); err != nil {
		log.Printf("Could not clear filter options cache: %v", err)
	}
}

// wrapWrite keeps taxonomy errors intact and wraps everything else.
func wrapWrite(op string, err error) error {
	if _, ok := errs.AsValidation(err); ok {
		return err
	}
	if _, ok := errs.AsConflict(err); ok {
		return err
	}
	if errs.IsNotFound(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
