package validation

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"inmuebles_backend/pkg/errs"
)

const (
	MaxImageSize     = 5 * 1024 * 1024 // 5MB
	MaxImagesPerCall = 10
)

var AllowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ValidateImages checks an upload batch: 1 to 10 files, each an allowed
// type and at most 5MB. Every failing file is reported.
func ValidateImages(files []*multipart.FileHeader) error {
	v := &errs.ValidationError{}

	switch {
	case len(files) == 0:
		v.Add("images", "at least one image is required")
	case len(files) > MaxImagesPerCall:
		v.Add("images", fmt.Sprintf("at most %d images per upload", MaxImagesPerCall))
	}

	for i, file := range files {
		field := fmt.Sprintf("images.%d", i)
		if file.Size > MaxImageSize {
			v.Add(field, "file size exceeds limit of 5MB")
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !AllowedImageTypes[ext] {
			v.Add(field, "invalid file type. Allowed types: jpeg, jpg, png, gif, webp")
		}
	}

	return v.OrNil()
}
