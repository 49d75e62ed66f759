package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/errs"
	imageutil "inmuebles_backend/pkg/utils/image"
	"inmuebles_backend/pkg/utils/storage"
	"inmuebles_backend/pkg/utils/validation"
)

// ImageService manages the gallery of a property. At most one image per
// property is primary.
type ImageService struct {
	db      *gorm.DB
	storage storage.ObjectStorage
}

func NewImageService(db *gorm.DB, store storage.ObjectStorage) *ImageService {
	return &ImageService{db: db, storage: store}
}

// Upload re-encodes and stores files, then appends them to the gallery.
// When the property has no primary image the first upload becomes primary.
func (s *ImageService) Upload(ctx context.Context, tenantID, propertyID uint, files []*multipart.FileHeader) ([]model.PropertyImage, error) {
	if err := validation.ValidateImages(files); err != nil {
		return nil, err
	}

	p, err := s.property(ctx, s.db, tenantID, propertyID)
	if err != nil {
		return nil, err
	}

	var stored []model.PropertyImage
	for _, file := range files {
		img, err := s.store(ctx, p, file)
		if err != nil {
			s.discard(ctx, stored)
			return nil, err
		}
		stored = append(stored, img)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next struct{ Max *int }
		if err := tx.Model(&model.PropertyImage{}).Select("MAX(sort_order) AS max").
			Where("property_id = ?", p.ID).Scan(&next).Error; err != nil {
			return err
		}
		order := 0
		if next.Max != nil {
			order = *next.Max + 1
		}

		var primaries int64
		if err := tx.Model(&model.PropertyImage{}).
			Where("property_id = ? AND is_primary = ?", p.ID, true).Count(&primaries).Error; err != nil {
			return err
		}

		for i := range stored {
			stored[i].Order = order + i
			stored[i].IsPrimary = primaries == 0 && i == 0
			if err := tx.Create(&stored[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, stored)
		return nil, fmt.Errorf("saving images: %w", err)
	}
	return stored, nil
}

func (s *ImageService) store(ctx context.Context, p *model.Property, file *multipart.FileHeader) (model.PropertyImage, error) {
	src, err := file.Open()
	if err != nil {
		return model.PropertyImage{}, fmt.Errorf("could not open file: %w", err)
	}
	defer src.Close()

	processed, err := imageutil.Process(src)
	if err != nil {
		return model.PropertyImage{}, errs.Invalid("images", fmt.Sprintf("%s: %v", file.Filename, err))
	}

	key := storage.ImageKey(p.Code, processed.Ext)
	url, err := s.storage.Put(ctx, key, processed.Data, processed.ContentType)
	if err != nil {
		return model.PropertyImage{}, fmt.Errorf("storing %s: %w", file.Filename, err)
	}

	return model.PropertyImage{
		PropertyID:   p.ID,
		Path:         key,
		URL:          url,
		OriginalName: file.Filename,
	}, nil
}

// discard removes files whose rows were never written.
func (s *ImageService) discard(ctx context.Context, images []model.PropertyImage) {
	for _, img := range images {
		if err := s.storage.Delete(ctx, img.Path); err != nil {
			log.Printf("Could not remove orphan image %s: %v", img.Path, err)
		}
	}
}

// SetPrimary makes imageID the only primary image of its property.
func (s *ImageService) SetPrimary(ctx context.Context, tenantID, imageID uint) (*model.PropertyImage, error) {
	var img model.PropertyImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.image(tx, tenantID, imageID)
		if err != nil {
			return err
		}
		img = *found

		if err := tx.Model(&model.PropertyImage{}).
			Where("property_id = ? AND id <> ?", img.PropertyID, img.ID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		img.IsPrimary = true
		return tx.Model(&img).Update("is_primary", true).Error
	})
	if err != nil {
		return nil, wrapWrite("setting primary image", err)
	}
	return &img, nil
}

// Delete removes an image. Deleting the primary promotes the image with the
// lowest sort order. The stored file is removed only once the row delete has
// committed, and a failure there is only logged.
func (s *ImageService) Delete(ctx context.Context, tenantID, imageID uint) error {
	img, err := s.image(s.db.WithContext(ctx), tenantID, imageID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.PropertyImage{}, img.ID).Error; err != nil {
			return err
		}
		if !img.IsPrimary {
			return nil
		}

		var next model.PropertyImage
		err := tx.Where("property_id = ?", img.PropertyID).
			Order("sort_order ASC, id ASC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_primary", true).Error
	})
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}

	if err := s.storage.Delete(ctx, img.Path); err != nil {
		log.Printf("Could not delete image file %s: %v", img.Path, err)
	}
	return nil
}

// Reorder sets the gallery order to the order of imageIDs. Every image of the
// property must be listed exactly once.
func (s *ImageService) Reorder(ctx context.Context, tenantID, propertyID uint, imageIDs []uint) ([]model.PropertyImage, error) {
	var images []model.PropertyImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.property(ctx, tx, tenantID, propertyID); err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", propertyID).Find(&images).Error; err != nil {
			return err
		}

		current := make(map[uint]bool, len(images))
		for _, img := range images {
			current[img.ID] = true
		}
		seen := make(map[uint]bool, len(imageIDs))
		for _, id := range imageIDs {
			if !current[id] || seen[id] {
				return errs.Invalid("image_ids", "must list every image of the property exactly once")
			}
			seen[id] = true
		}
		if len(seen) != len(current) {
			return errs.Invalid("image_ids", "must list every image of the property exactly once")
		}

		for i, id := range imageIDs {
			if err := tx.Model(&model.PropertyImage{}).Where("id = ?", id).Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return tx.Where("property_id = ?", propertyID).Order("sort_order ASC, id ASC").Find(&images).Error
	})
	if err != nil {
		return nil, wrapWrite("reordering images", err)
	}
	return images, nil
}

func (s *ImageService) property(ctx context.Context, db *gorm.DB, tenantID, propertyID uint) (*model.Property, error) {
	var p model.Property
	err := db.WithContext(ctx).Where("id = ? AND company_id = ?", propertyID, tenantID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("property")
	}
	if err != nil {
		return nil, fmt.Errorf("loading property: %w", err)
	}
	return &p, nil
}

// image loads an image that belongs to one of the tenant's properties.
func (s *ImageService) image(db *gorm.DB, tenantID, imageID uint) (*model.PropertyImage, error) {
	var img model.PropertyImage
	err := db.Joins("JOIN properties ON properties.id = property_images.property_id").
		Where("property_images.id = ? AND properties.company_id = ?", imageID, tenantID).
		First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("image")
	}
	if err != nil {
		return nil, fmt.Errorf("loading image: %w", err)
	}
	return &img, nil
}
