package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/pkg/email"
	"inmuebles_backend/pkg/errs"
	"inmuebles_backend/pkg/utils/validation"
)

// defaultCompanyID receives contact requests that name no property.
const defaultCompanyID = 1

// Notifier delivers new-lead notifications. *email.EmailService satisfies it.
type Notifier interface {
	SendLeadNotificationEmail(ctx context.Context, to string, data email.LeadNotificationData) error
}

// ContactInput is the public contact form.
type ContactInput struct {
	FirstName  string `json:"nombre" validate:"required,max=200"`
	LastName   string `json:"apellido" validate:"required,max=200"`
	DocumentID string `json:"carnet" validate:"required,max=50"`
	Email      string `json:"email" validate:"required,email,max=200"`
	Phone      string `json:"telefono" validate:"required,max=30"`
	Message    string `json:"mensaje" validate:"required,max=2000"`
	PropertyID *uint  `json:"property_id"`
}

type LeadFilter struct {
	Status     string
	Read       *bool
	PropertyID *uint
}

type LeadService struct {
	db       *gorm.DB
	notifier Notifier
	inbox    string
	now      func() time.Time
}

// NewLeadService wires the lead store. notifier may be nil; inbox receives
// leads whose property has no agent e-mail.
func NewLeadService(db *gorm.DB, notifier Notifier, inbox string) *LeadService {
	return &LeadService{db: db, notifier: notifier, inbox: inbox, now: time.Now}
}

// Create stores a web lead and notifies the property's agent. A property id
// that is not a local public property is dropped, since listings served by
// the remote catalog have no local row. A failed notification is logged and
// does not fail the call.
func (s *LeadService) Create(ctx context.Context, in ContactInput) (*model.Lead, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	lead := model.Lead{
		CompanyID:  defaultCompanyID,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		DocumentID: strings.TrimSpace(in.DocumentID),
		Email:      in.Email,
		Phone:      strings.TrimSpace(in.Phone),
		Message:    strings.TrimSpace(in.Message),
		Source:     "web",
		Status:     model.LeadStatusNew,
	}

	var property *model.Property
	if in.PropertyID != nil {
		var p model.Property
		err := s.db.WithContext(ctx).Preload("Agent").
			Where("id = ? AND is_public = ?", *in.PropertyID, true).
			First(&p).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			log.Printf("Lead references unknown property %d", *in.PropertyID)
		case err != nil:
			return nil, fmt.Errorf("loading property: %w", err)
		default:
			property = &p
			lead.PropertyID = &p.ID
			lead.CompanyID = p.CompanyID
		}
	}

	if err := s.db.WithContext(ctx).Create(&lead).Error; err != nil {
		return nil, fmt.Errorf("creating lead: %w", err)
	}

	s.notify(ctx, &lead, property)
	return &lead, nil
}

func (s *LeadService) notify(ctx context.Context, lead *model.Lead, property *model.Property) {
	if s.notifier == nil {
		return
	}

	to := s.inbox
	data := email.LeadNotificationData{
		LeadName:     lead.FullName(),
		LeadEmail:    lead.Email,
		LeadPhone:    lead.Phone,
		LeadDocument: lead.DocumentID,
		LeadMessage:  lead.Message,
		ReceivedAt:   lead.CreatedAt,
	}
	if property != nil {
		data.PropertyTitle = property.Name
		data.PropertyCode = property.Code
		if property.Agent != nil && property.Agent.Email != "" {
			to = property.Agent.Email
		}
	}
	if to == "" {
		log.Printf("Lead %d has no notification recipient", lead.ID)
		return
	}

	if err := s.notifier.SendLeadNotificationEmail(ctx, to, data); err != nil {
		log.Printf("Could not send lead notification email: %v", err)
	}
}

// List returns the tenant's leads, newest first.
func (s *LeadService) List(ctx context.Context, tenantID uint, f LeadFilter) ([]model.Lead, error) {
	q := s.db.WithContext(ctx).Preload("Property").Where("company_id = ?", tenantID)
	if f.Status != "" {
		if !model.LeadStatus(f.Status).Valid() {
			return nil, errs.Invalid("status", "must be one of new contacted qualified closed")
		}
		q = q.Where("status = ?", f.Status)
	}
	if f.Read != nil {
		q = q.Where("read_status = ?", *f.Read)
	}
	if f.PropertyID != nil {
		q = q.Where("property_id = ?", *f.PropertyID)
	}

	leads := []model.Lead{}
	if err := q.Order("created_at DESC, id DESC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	return leads, nil
}

// UpdateStatus moves a lead through its pipeline. The first move to
// contacted stamps ContactedAt.
func (s *LeadService) UpdateStatus(ctx context.Context, tenantID, id uint, status model.LeadStatus) (*model.Lead, error) {
	if !status.Valid() {
		return nil, errs.Invalid("status", "must be one of new contacted qualified closed")
	}

	lead, err := s.lead(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if status == model.LeadStatusContacted && lead.ContactedAt == nil {
		now := s.now()
		updates["contacted_at"] = now
		lead.ContactedAt = &now
	}
	if err := s.db.WithContext(ctx).Model(lead).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("updating lead: %w", err)
	}
	lead.Status = status
	return lead, nil
}

func (s *LeadService) MarkRead(ctx context.Context, tenantID, id uint) (*model.Lead, error) {
	lead, err := s.lead(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(lead).Update("read_status", true).Error; err != nil {
		return nil, fmt.Errorf("marking lead read: %w", err)
	}
	lead.ReadStatus = true
	return lead, nil
}

func (s *LeadService) lead(ctx context.Context, tenantID, id uint) (*model.Lead, error) {
	var lead model.Lead
	err := s.db.WithContext(ctx).Where("id = ? AND company_id = ?", id, tenantID).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("lead")
	}
	if err != nil {
		return nil, fmt.Errorf("loading lead: %w", err)
	}
	return &lead, nil
}
