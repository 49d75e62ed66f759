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

func TestRoleConflictsWhileAssigned(t *testing.T) {
	db := testutil.NewDB(t)
	roles := NewRoleService(db)
	users := NewUserService(db)
	ctx := context.Background()

	admin, err := roles.Create(ctx, 1, RoleInput{Name: "admin", DisplayName: "Administrador"})
	require.NoError(t, err)
	agent, err := roles.Create(ctx, 1, RoleInput{Name: "agente"})
	require.NoError(t, err)
	assert.True(t, admin.IsActive)

	u, err := users.Create(ctx, 1, UserInput{Name: "Ana", Email: "ana@inmuebles.bo", Password: "secreto123"})
	require.NoError(t, err)
	_, err = users.AssignRoles(ctx, 1, u.ID, []uint{admin.ID}, admin.ID)
	require.NoError(t, err)

	list, err := roles.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].UsersCount)
	assert.Equal(t, int64(0), list[1].UsersCount)

	_, err = roles.SetActive(ctx, 1, admin.ID, false)
	_, ok := errs.AsConflict(err)
	require.True(t, ok, "got %v", err)
	_, ok = errs.AsConflict(roles.Delete(ctx, 1, admin.ID))
	require.True(t, ok)

	reloaded, err := roles.Get(ctx, 1, admin.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsActive, "a refused change leaves the role untouched")

	off, err := roles.SetActive(ctx, 1, agent.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	require.NoError(t, roles.Delete(ctx, 1, agent.ID))

	var count int64
	db.Model(&model.Role{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRoleNamesAreTenantScoped(t *testing.T) {
	db := testutil.NewDB(t)
	roles := NewRoleService(db)
	ctx := context.Background()

	first, err := roles.Create(ctx, 1, RoleInput{Name: "admin"})
	require.NoError(t, err)
	_, err = roles.Create(ctx, 2, RoleInput{Name: "admin"})
	require.NoError(t, err)

	_, err = roles.Create(ctx, 1, RoleInput{Name: "ADMIN"})
	v, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("name"))

	updated, err := roles.Update(ctx, 1, first.ID, RoleInput{Name: "admin", Description: "Acceso total"})
	require.NoError(t, err)
	assert.Equal(t, "Acceso total", updated.Description)

	_, err = roles.Get(ctx, 2, first.ID)
	assert.True(t, errs.IsNotFound(err))
}
