package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/testutil"
	"inmuebles_backend/pkg/errs"
)

func TestImageUploadFirstBecomesPrimary(t *testing.T) {
	db := testutil.NewDB(t)
	store := newFakeStorage()
	svc := NewImageService(db, store)
	ctx := context.Background()
	p := testutil.CreateProperty(t, db, 100000)

	img := pngBytes(t)
	first, err := svc.Upload(ctx, 1, p.ID, uploads(t, map[string][]byte{"a.png": img, "b.png": img}, "a.png", "b.png"))
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, first[0].IsPrimary)
	assert.False(t, first[1].IsPrimary)
	assert.Equal(t, 0, first[0].Order)
	assert.Equal(t, 1, first[1].Order)
	assert.True(t, strings.HasPrefix(first[0].URL, "https://cdn.test/properties/"))
	assert.Equal(t, "a.png", first[0].OriginalName)

	more, err := svc.Upload(ctx, 1, p.ID, uploads(t, map[string][]byte{"c.png": img}, "c.png"))
	require.NoError(t, err)
	assert.False(t, more[0].IsPrimary)
	assert.Equal(t, 2, more[0].Order)
	assert.Len(t, store.objects, 3)
}

func TestImageUploadRejectsBadFiles(t *testing.T) {
	db := testutil.NewDB(t)
	store := newFakeStorage()
	svc := NewImageService(db, store)
	p := testutil.CreateProperty(t, db, 100000)

	_, err := svc.Upload(context.Background(), 1, p.ID, uploads(t, map[string][]byte{"doc.pdf": []byte("%PDF")}, "doc.pdf"))
	v, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("images.0"))

	// an allowed extension with a body that is not an image
	_, err = svc.Upload(context.Background(), 1, p.ID, uploads(t, map[string][]byte{
		"ok.png":  pngBytes(t),
		"bad.jpg": []byte("not an image"),
	}, "ok.png", "bad.jpg"))
	_, ok = errs.AsValidation(err)
	require.True(t, ok)
	assert.Empty(t, store.objects, "stored files of a failed batch are discarded")

	var count int64
	db.Model(&model.PropertyImage{}).Count(&count)
	assert.Zero(t, count)
}

func TestImageUploadOtherTenant(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewImageService(db, newFakeStorage())
	p := testutil.CreateProperty(t, db, 100000)

	_, err := svc.Upload(context.Background(), 2, p.ID, uploads(t, map[string][]byte{"a.png": pngBytes(t)}, "a.png"))
	assert.True(t, errs.IsNotFound(err))
}

func seedImages(t *testing.T, svc *ImageService, propertyID uint, n int) []model.PropertyImage {
	t.Helper()
	files := map[string][]byte{}
	var order []string
	for i := 0; i < n; i++ {
		name := string(rune('a'+i)) + ".png"
		files[name] = pngBytes(t)
		order = append(order, name)
	}
	images, err := svc.Upload(context.Background(), 1, propertyID, uploads(t, files, order...))
	require.NoError(t, err)
	return images
}

func primaries(t *testing.T, svc *ImageService, propertyID uint) []uint {
	var ids []uint
	require.NoError(t, svc.db.Model(&model.PropertyImage{}).
		Where("property_id = ? AND is_primary = ?", propertyID, true).
		Pluck("id", &ids).Error)
	return ids
}

func TestImageSetPrimaryKeepsOne(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewImageService(db, newFakeStorage())
	p := testutil.CreateProperty(t, db, 100000)
	images := seedImages(t, svc, p.ID, 3)

	got, err := svc.SetPrimary(context.Background(), 1, images[2].ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrimary)
	assert.Equal(t, []uint{images[2].ID}, primaries(t, svc, p.ID))

	_, err = svc.SetPrimary(context.Background(), 2, images[1].ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestImageDeletePromotesNext(t *testing.T) {
	db := testutil.NewDB(t)
	store := newFakeStorage()
	svc := NewImageService(db, store)
	p := testutil.CreateProperty(t, db, 100000)
	images := seedImages(t, svc, p.ID, 3)

	// storage failures do not block the row delete
	store.failDelete = true
	require.NoError(t, svc.Delete(context.Background(), 1, images[0].ID))
	assert.Equal(t, []uint{images[1].ID}, primaries(t, svc, p.ID))

	store.failDelete = false
	require.NoError(t, svc.Delete(context.Background(), 1, images[2].ID))
	assert.Equal(t, []uint{images[1].ID}, primaries(t, svc, p.ID))

	require.NoError(t, svc.Delete(context.Background(), 1, images[1].ID))
	assert.Empty(t, primaries(t, svc, p.ID))
	assert.Len(t, store.deleted, 3)
}

func TestImageDeleteRemovesFileAfterRow(t *testing.T) {
	db := testutil.NewDB(t)
	store := newFakeStorage()
	svc := NewImageService(db, store)
	p := testutil.CreateProperty(t, db, 100000)
	images := seedImages(t, svc, p.ID, 2)

	var rowsAtDelete int64 = -1
	store.onDelete = func(string) {
		require.NoError(t, db.Model(&model.PropertyImage{}).Where("id = ?", images[0].ID).Count(&rowsAtDelete).Error)
	}
	require.NoError(t, svc.Delete(context.Background(), 1, images[0].ID))
	assert.Equal(t, int64(0), rowsAtDelete)
	assert.Equal(t, []string{images[0].Path}, store.deleted)
}

func TestImageDeleteKeepsFileWhenRowDeleteFails(t *testing.T) {
	db := testutil.NewDB(t)
	store := newFakeStorage()
	svc := NewImageService(db, store)
	p := testutil.CreateProperty(t, db, 100000)
	images := seedImages(t, svc, p.ID, 2)

	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("database is locked"))
	}))

	err := svc.Delete(context.Background(), 1, images[0].ID)
	require.Error(t, err)
	assert.Empty(t, store.deleted)
	assert.Contains(t, store.objects, images[0].Path)
	assert.Equal(t, []uint{images[0].ID}, primaries(t, svc, p.ID))
}

func TestImageReorder(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewImageService(db, newFakeStorage())
	p := testutil.CreateProperty(t, db, 100000)
	images := seedImages(t, svc, p.ID, 3)
	ctx := context.Background()

	reordered, err := svc.Reorder(ctx, 1, p.ID, []uint{images[2].ID, images[0].ID, images[1].ID})
	require.NoError(t, err)
	require.Len(t, reordered, 3)
	assert.Equal(t, images[2].ID, reordered[0].ID)
	assert.Equal(t, 0, reordered[0].Order)

	for _, ids := range [][]uint{
		{images[0].ID, images[1].ID},
		{images[0].ID, images[0].ID, images[1].ID},
		{images[0].ID, images[1].ID, 9999},
	} {
		_, err := svc.Reorder(ctx, 1, p.ID, ids)
		v, ok := errs.AsValidation(err)
		require.True(t, ok, "%v", ids)
		assert.True(t, v.Has("image_ids"))
	}
}
