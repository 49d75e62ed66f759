package model

import (
	"time"
)

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusClosed    LeadStatus = "closed"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusClosed:
		return true
	}
	return false
}

type Lead struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	CompanyID   uint       `json:"company_id" gorm:"index"`
	PropertyID  *uint      `json:"property_id" gorm:"index"`
	FirstName   string     `json:"nombre" gorm:"size:255;not null"`
	LastName    string     `json:"apellido" gorm:"size:255"`
	DocumentID  string     `json:"carnet" gorm:"size:50"`
	Email       string     `json:"email" gorm:"size:255"`
	Phone       string     `json:"telefono" gorm:"size:50"`
	Message     string     `json:"mensaje" gorm:"type:text"`
	Source      string     `json:"source" gorm:"size:20"`
	Status      LeadStatus `json:"status" gorm:"size:20;index"`
	ReadStatus  bool       `json:"read_status"`
	ContactedAt *time.Time `json:"contacted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

// FullName joins first and last name.
func (l *Lead) FullName() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}
