package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/errs"
	"inmuebles_backend/pkg/utils/validation"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown e-mail,
// a wrong password or an inactive account alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserWithRoles is a user together with its role assignments.
type UserWithRoles struct {
	model.User
	Roles []model.UserRole `json:"roles"`
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) List(ctx context.Context, tenantID uint) ([]UserWithRoles, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Where("company_id = ?", tenantID).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	if len(users) == 0 {
		return []UserWithRoles{}, nil
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	var links []model.UserRole
	err := s.db.WithContext(ctx).Preload("Role").
		Where("user_id IN ?", ids).
		Order("role_id ASC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("loading user roles: %w", err)
	}

	byUser := make(map[uint][]model.UserRole, len(users))
	for _, l := range links {
		byUser[l.UserID] = append(byUser[l.UserID], l)
	}
	out := make([]UserWithRoles, 0, len(users))
	for _, u := range users {
		roles := byUser[u.ID]
		if roles == nil {
			roles = []model.UserRole{}
		}
		out = append(out, UserWithRoles{User: u, Roles: roles})
	}
	return out, nil
}

// Create stores an active user with a bcrypt password hash.
func (s *UserService) Create(ctx context.Context, tenantID uint, in UserInput) (*model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking e-mail: %w", err)
	}
	if count > 0 {
		return nil, errs.Invalid("email", "is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := model.User{
		CompanyID: tenantID,
		Name:      strings.TrimSpace(in.Name),
		Email:     in.Email,
		Password:  string(hashed),
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &user, nil
}

// AssignRoles replaces the user's roles with roleIDs. primaryID must be one
// of them; every role must be an active role of the tenant.
func (s *UserService) AssignRoles(ctx context.Context, tenantID, userID uint, roleIDs []uint, primaryID uint) ([]model.UserRole, error) {
	unique := make([]uint, 0, len(roleIDs))
	seen := make(map[uint]bool, len(roleIDs))
	for _, id := range roleIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	v := &errs.ValidationError{}
	if len(unique) == 0 {
		v.Add("role_ids", "at least one role is required")
	}
	if len(unique) > 0 && !seen[primaryID] {
		v.Add("primary_role_id", "must be one of role_ids")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var links []model.UserRole
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.user(tx, tenantID, userID); err != nil {
			return err
		}

		var roles []model.Role
		if err := tx.Where("id IN ? AND company_id = ? AND is_active = ?", unique, tenantID, true).Find(&roles).Error; err != nil {
			return err
		}
		if len(roles) != len(unique) {
			return errs.Invalid("role_ids", "every role must be an active role of the company")
		}

		if err := tx.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		for _, id := range unique {
			link := model.UserRole{UserID: userID, RoleID: id, IsPrimary: id == primaryID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Role").Where("user_id = ?", userID).Order("role_id ASC").Find(&links).Error
	})
	if err != nil {
		return nil, wrapWrite("assigning roles", err)
	}
	return links, nil
}

// EffectiveRole returns the role used for authorization: the primary role,
// or the one with the lowest id when none is flagged. It returns nil when
// the user holds no role.
func (s *UserService) EffectiveRole(ctx context.Context, tenantID, userID uint) (*model.Role, error) {
	if _, err := s.user(s.db.WithContext(ctx), tenantID, userID); err != nil {
		return nil, err
	}
	return effectiveRole(s.db.WithContext(ctx), userID)
}

// Authenticate checks the credentials of an active user and returns it with
// its effective role name, or ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, string, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading user: %w", err)
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	role, err := effectiveRole(s.db.WithContext(ctx), user.ID)
	if err != nil {
		return nil, "", err
	}
	name := ""
	if role != nil {
		name = role.Name
	}
	return &user, name, nil
}

func effectiveRole(db *gorm.DB, userID uint) (*model.Role, error) {
	var link model.UserRole
	err := db.Preload("Role").
		Where("user_id = ?", userID).
		Order("is_primary DESC, role_id ASC").
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading effective role: %w", err)
	}
	return link.Role, nil
}

func (s *UserService) user(db *gorm.DB, tenantID, id uint) (*model.User, error) {
	var user model.User
	err := db.Where("id = ? AND company_id = ?", id, tenantID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &user, nil
}
