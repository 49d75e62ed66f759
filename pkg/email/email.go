// Package email sends transactional mail through the Resend API.
package email

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	resendEndpoint = "https://api.resend.com/emails"
	defaultFrom    = "Inmuebles <noreply@inmuebles.bo>"
)

//go:embed templates/*.html
var templateFS embed.FS

// LeadNotificationData fills lead_notification.html.
type LeadNotificationData struct {
	PropertyTitle string
	PropertyCode  string
	LeadName      string
	LeadEmail     string
	LeadPhone     string
	LeadDocument  string
	LeadMessage   string
	ReceivedAt    time.Time
}

// message is the body of a Resend send request.
type message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type EmailService struct {
	apiKey    string
	from      string
	endpoint  string
	client    *http.Client
	templates *template.Template
}

func NewEmailService(apiKey, from string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("loading email templates: %w", err)
	}
	if from == "" {
		from = defaultFrom
	}

	return &EmailService{
		apiKey:    apiKey,
		from:      from,
		endpoint:  resendEndpoint,
		client:    &http.Client{Timeout: 15 * time.Second},
		templates: templates,
	}, nil
}

// SendLeadNotificationEmail tells an agent about a new contact request.
// Replies go straight to the lead when an address was given.
func (s *EmailService) SendLeadNotificationEmail(ctx context.Context, to string, data LeadNotificationData) error {
	subject := "Nuevo contacto desde la web"
	if data.PropertyTitle != "" {
		subject = fmt.Sprintf("Nuevo contacto: %s", data.PropertyTitle)
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "lead_notification.html", data); err != nil {
		return fmt.Errorf("rendering lead notification: %w", err)
	}

	return s.send(ctx, message{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		HTML:    body.String(),
		ReplyTo: data.LeadEmail,
	})
}

func (s *EmailService) send(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("resend API error: status %d: %s", resp.StatusCode, detail)
	}

	log.Printf("Email %q sent to %v", msg.Subject, msg.To)
	return nil
}
