package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/errs"
)

// CategoryService manages the shared category list used by the catalog
// filters.
type CategoryService struct {
	db      *gorm.DB
	options OptionsCache
}

func NewCategoryService(db *gorm.DB, options OptionsCache) *CategoryService {
	return &CategoryService{db: db, options: options}
}

// CategoryWithCount is a category with the number of properties using it.
type CategoryWithCount struct {
	model.Category
	PropertiesCount int64 `json:"properties_count"`
}

func (s *CategoryService) List(ctx context.Context) ([]CategoryWithCount, error) {
	var categories []model.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	var counts []struct {
		CategoryID uint
		Total      int64
	}
	err := s.db.WithContext(ctx).Model(&model.Property{}).
		Select("category_id, COUNT(*) AS total").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting category usage: %w", err)
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.CategoryID] = c.Total
	}

	out := make([]CategoryWithCount, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryWithCount{Category: c, PropertiesCount: byID[c.ID]})
	}
	return out, nil
}

func (s *CategoryService) Create(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if err := s.checkName(ctx, name, 0); err != nil {
		return nil, err
	}

	c := model.Category{Name: name}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	clearOptions(ctx, s.options)
	return &c, nil
}

func (s *CategoryService) Rename(ctx context.Context, id uint, name string) (*model.Category, error) {
	var c model.Category
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("category")
		}
		return nil, fmt.Errorf("loading category: %w", err)
	}

	name = strings.TrimSpace(name)
	if err := s.checkName(ctx, name, id); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&c).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("renaming category: %w", err)
	}
	c.Name = name
	clearOptions(ctx, s.options)
	return &c, nil
}

// Delete refuses to remove a category that properties still reference.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Category
		if err := tx.First(&c, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("category")
			}
			return err
		}

		var used int64
		if err := tx.Model(&model.Property{}).Where("category_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return errs.Conflict("category %q is used by %d properties", c.Name, used)
		}
		return tx.Delete(&c).Error
	})
	if err != nil {
		return wrapWrite("deleting category", err)
	}
	clearOptions(ctx, s.options)
	return nil
}

func (s *CategoryService) checkName(ctx context.Context, name string, excludeID uint) error {
	if name == "" {
		return errs.Invalid("name", "is required")
	}
	if len([]rune(name)) > 100 {
		return errs.Invalid("name", "must be at most 100 characters")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&model.Category{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), excludeID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("checking category name: %w", err)
	}
	if count > 0 {
		return errs.Invalid("name", "is already in use")
	}
	return nil
}
