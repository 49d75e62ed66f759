package model

import (
	"time"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CompanyID uint      `json:"company_id" gorm:"index"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Email     string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"company_id": u.CompanyID,
		"is_active":  u.IsActive,
	}
}

type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CompanyID   uint      `json:"company_id" gorm:"index"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	DisplayName string    `json:"display_name" gorm:"size:255"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	UsersCount int64 `json:"users_count" gorm:"-"`
}

// UserRole is the user/role junction. IsPrimary marks the role used for
// authorization when a user holds several.
type UserRole struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey"`
	RoleID    uint      `json:"role_id" gorm:"primaryKey;index"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`

	Role *Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}
