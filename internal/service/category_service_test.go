package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/testutil"
	"inmuebles_backend/pkg/errs"
)

func TestCategoryLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	spy := &optionsSpy{}
	svc := NewCategoryService(db, spy)
	ctx := context.Background()

	casa, err := svc.Create(ctx, "  Casa ")
	require.NoError(t, err)
	assert.Equal(t, "Casa", casa.Name)

	_, err = svc.Create(ctx, "casa")
	v, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("name"))

	_, err = svc.Create(ctx, "")
	_, ok = errs.AsValidation(err)
	assert.True(t, ok)

	renamed, err := svc.Rename(ctx, casa.ID, "Casa de campo")
	require.NoError(t, err)
	assert.Equal(t, "Casa de campo", renamed.Name)

	_, err = svc.Rename(ctx, 999, "Oficina")
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, 2, spy.clears)
}

func TestCategoryDeleteInUseConflicts(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewCategoryService(db, nil)
	ctx := context.Background()

	used, err := svc.Create(ctx, "Terreno")
	require.NoError(t, err)
	free, err := svc.Create(ctx, "Parqueo")
	require.NoError(t, err)
	testutil.CreateProperty(t, db, 50000, func(p *model.Property) { p.CategoryID = &used.ID })
	testutil.CreateProperty(t, db, 60000, func(p *model.Property) { p.CategoryID = &used.ID })

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Parqueo", list[0].Name)
	assert.Equal(t, int64(0), list[0].PropertiesCount)
	assert.Equal(t, int64(2), list[1].PropertiesCount)

	err = svc.Delete(ctx, used.ID)
	_, ok := errs.AsConflict(err)
	require.True(t, ok, "got %v", err)

	require.NoError(t, svc.Delete(ctx, free.ID))
	assert.True(t, errs.IsNotFound(svc.Delete(ctx, free.ID)))

	var count int64
	db.Model(&model.Category{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
