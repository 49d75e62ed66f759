package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/errs"
	"inmuebles_backend/pkg/utils/validation"
)

type RoleInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	DisplayName string `json:"display_name" validate:"max=255"`
	Description string `json:"description"`
}

// RoleService manages the roles of one tenant. A role that is assigned to
// users can be neither deactivated nor deleted.
type RoleService struct {
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{db: db}
}

// List returns the tenant's roles with the number of users holding each.
func (s *RoleService) List(ctx context.Context, tenantID uint) ([]model.Role, error) {
	roles := []model.Role{}
	if err := s.db.WithContext(ctx).Where("company_id = ?", tenantID).Order("id ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}

	var counts []struct {
		RoleID uint
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&model.UserRole{}).
		Select("user_roles.role_id, COUNT(*) AS total").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.company_id = ?", tenantID).
		Group("user_roles.role_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting role users: %w", err)
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.RoleID] = c.Total
	}
	for i := range roles {
		roles[i].UsersCount = byID[roles[i].ID]
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, tenantID, id uint) (*model.Role, error) {
	return s.role(s.db.WithContext(ctx), tenantID, id)
}

func (s *RoleService) Create(ctx context.Context, tenantID uint, in RoleInput) (*model.Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate(ctx, tenantID, in, 0); err != nil {
		return nil, err
	}

	role := model.Role{
		CompanyID:   tenantID,
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
		return nil, fmt.Errorf("creating role: %w", err)
	}
	return &role, nil
}

func (s *RoleService) Update(ctx context.Context, tenantID, id uint, in RoleInput) (*model.Role, error) {
	role, err := s.role(s.db.WithContext(ctx), tenantID, id)
	if err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate(ctx, tenantID, in, id); err != nil {
		return nil, err
	}

	role.Name = in.Name
	role.DisplayName = in.DisplayName
	role.Description = in.Description
	if err := s.db.WithContext(ctx).Save(role).Error; err != nil {
		return nil, fmt.Errorf("updating role: %w", err)
	}
	return role, nil
}

// SetActive toggles the role. Deactivating a role that users hold fails with
// a ConflictError.
func (s *RoleService) SetActive(ctx context.Context, tenantID, id uint, active bool) (*model.Role, error) {
	var role *model.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.role(tx, tenantID, id)
		if err != nil {
			return err
		}
		role = found

		if !active {
			if err := s.ensureUnassigned(tx, role); err != nil {
				return err
			}
		}
		role.IsActive = active
		return tx.Model(role).Update("is_active", active).Error
	})
	if err != nil {
		return nil, wrapWrite("changing role status", err)
	}
	return role, nil
}

func (s *RoleService) Delete(ctx context.Context, tenantID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.role(tx, tenantID, id)
		if err != nil {
			return err
		}
		if err := s.ensureUnassigned(tx, role); err != nil {
			return err
		}
		return tx.Delete(role).Error
	})
	if err != nil {
		return wrapWrite("deleting role", err)
	}
	return nil
}

func (s *RoleService) ensureUnassigned(tx *gorm.DB, role *model.Role) error {
	var users int64
	if err := tx.Model(&model.UserRole{}).Where("role_id = ?", role.ID).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return errs.Conflict("role %q is assigned to %d users", role.Name, users)
	}
	return nil
}

func (s *RoleService) validate(ctx context.Context, tenantID uint, in RoleInput, excludeID uint) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&model.Role{}).
		Where("company_id = ? AND LOWER(name) = ? AND id <> ?", tenantID, strings.ToLower(in.Name), excludeID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("checking role name: %w", err)
	}
	if count > 0 {
		return errs.Invalid("name", "is already in use")
	}
	return nil
}

func (s *RoleService) role(db *gorm.DB, tenantID, id uint) (*model.Role, error) {
	var role model.Role
	err := db.Where("id = ? AND company_id = ?", id, tenantID).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("role")
	}
	if err != nil {
		return nil, fmt.Errorf("loading role: %w", err)
	}
	return &role, nil
}
