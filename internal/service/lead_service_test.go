package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inmuebles_backend/internal/model"
	"inmuebles_backend/internal/testutil"
	"inmuebles_backend/pkg/errs"
)

func contact(propertyID *uint) ContactInput {
	return ContactInput{
		FirstName:  "Luis",
		LastName:   "Rojas",
		DocumentID: "7845123 SC",
		Email:      "luis@correo.bo",
		Phone:      "+591 70000000",
		Message:    "Quisiera agendar una visita.",
		PropertyID: propertyID,
	}
}

func TestLeadCreateNotifiesAgent(t *testing.T) {
	db := testutil.NewDB(t)
	agent := model.User{CompanyID: 7, Name: "Carla", Email: "carla@inmuebles.bo", Password: "x", IsActive: true}
	require.NoError(t, db.Create(&agent).Error)
	p := testutil.CreateProperty(t, db, 90000, func(p *model.Property) {
		p.CompanyID = 7
		p.AgentID = &agent.ID
	})

	spy := &notifierSpy{}
	svc := NewLeadService(db, spy, "leads@inmuebles.bo")

	lead, err := svc.Create(context.Background(), contact(&p.ID))
	require.NoError(t, err)
	assert.Equal(t, uint(7), lead.CompanyID)
	assert.Equal(t, "web", lead.Source)
	assert.Equal(t, model.LeadStatusNew, lead.Status)

	require.Len(t, spy.to, 1)
	assert.Equal(t, "carla@inmuebles.bo", spy.to[0])
	assert.Equal(t, p.Name, spy.data[0].PropertyTitle)
	assert.Equal(t, "Luis Rojas", spy.data[0].LeadName)
}

func TestLeadWithoutPropertyGoesToInbox(t *testing.T) {
	db := testutil.NewDB(t)
	spy := &notifierSpy{err: errors.New("resend down")}
	svc := NewLeadService(db, spy, "leads@inmuebles.bo")

	lead, err := svc.Create(context.Background(), contact(nil))
	require.NoError(t, err, "notification failures are not surfaced")
	assert.Equal(t, uint(1), lead.CompanyID)
	assert.Nil(t, lead.PropertyID)
	assert.Equal(t, []string{"leads@inmuebles.bo"}, spy.to)
}

func TestLeadValidation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeadService(db, nil, "")
	ctx := context.Background()

	in := contact(nil)
	in.FirstName = " "
	in.Email = "no-es-correo"
	in.Message = strings.Repeat("a", 2001)
	_, err := svc.Create(ctx, in)
	v, ok := errs.AsValidation(err)
	require.True(t, ok)
	for _, field := range []string{"nombre", "email", "mensaje"} {
		assert.True(t, v.Has(field), field)
	}

	var count int64
	db.Model(&model.Lead{}).Count(&count)
	assert.Zero(t, count)
}

func TestLeadUnknownPropertyIsDropped(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeadService(db, nil, "")

	hidden := testutil.CreateProperty(t, db, 1000, func(p *model.Property) {
		p.IsPublic = false
		p.CompanyID = 5
	})
	lead, err := svc.Create(context.Background(), contact(&hidden.ID))
	require.NoError(t, err)
	assert.Nil(t, lead.PropertyID)
	assert.Equal(t, uint(1), lead.CompanyID)
}

func TestLeadStatusAndRead(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeadService(db, nil, "")
	ctx := context.Background()

	lead, err := svc.Create(ctx, contact(nil))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, 1, lead.ID, model.LeadStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusContacted, updated.Status)
	require.NotNil(t, updated.ContactedAt)

	_, err = svc.UpdateStatus(ctx, 1, lead.ID, "archived")
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)
	_, err = svc.UpdateStatus(ctx, 2, lead.ID, model.LeadStatusClosed)
	assert.True(t, errs.IsNotFound(err))

	read, err := svc.MarkRead(ctx, 1, lead.ID)
	require.NoError(t, err)
	assert.True(t, read.ReadStatus)

	unread := false
	leads, err := svc.List(ctx, 1, LeadFilter{Read: &unread})
	require.NoError(t, err)
	assert.Empty(t, leads)

	leads, err = svc.List(ctx, 1, LeadFilter{Status: string(model.LeadStatusContacted)})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}
