package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailServiceRequiresKey(t *testing.T) {
	_, err := NewEmailService("", "")
	assert.Error(t, err)
}

func TestSendLeadNotificationEmail(t *testing.T) {
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	s, err := NewEmailService("re_test", "Ventas <ventas@inmuebles.bo>")
	require.NoError(t, err)
	s.endpoint = srv.URL

	err = s.SendLeadNotificationEmail(context.Background(), "agente@inmuebles.bo", LeadNotificationData{
		PropertyTitle: "Casa en Calacoto",
		PropertyCode:  "INM-0001",
		LeadName:      "Ana Quispe",
		LeadEmail:     "ana@correo.bo",
		LeadPhone:     "70000000",
		LeadMessage:   "Quisiera visitarla",
		ReceivedAt:    time.Date(2025, 3, 2, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"agente@inmuebles.bo"}, got.To)
	assert.Equal(t, "Ventas <ventas@inmuebles.bo>", got.From)
	assert.Contains(t, got.Subject, "Casa en Calacoto")
	assert.Equal(t, "ana@correo.bo", got.ReplyTo)
	assert.Contains(t, got.HTML, "Ana Quispe")
	assert.Contains(t, got.HTML, "02/03/2025 10:30")
}

func TestSendReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid to"}`))
	}))
	defer srv.Close()

	s, err := NewEmailService("re_test", "")
	require.NoError(t, err)
	s.endpoint = srv.URL

	err = s.SendLeadNotificationEmail(context.Background(), "x", LeadNotificationData{LeadName: "A"})
	assert.ErrorContains(t, err, "invalid to")
}
