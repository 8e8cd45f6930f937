package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ---------------------------------------------------------------------------
// Sender
// ---------------------------------------------------------------------------

// EmailMessage is a single outbound e-mail.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// EmailSender delivers e-mail. Implementations can be swapped without
// changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SendGridConfig holds the SendGrid credentials and sender identity.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends e-mail through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    zerolog.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger zerolog.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Clinic Console"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send delivers msg as a single plain-text e-mail.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return errors.New("notification: sendgrid client not configured")
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notification: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error().Int("status", resp.StatusCode).Str("to", msg.To).Msg("sendgrid rejected message")
		return fmt.Errorf("notification: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// LogSender only logs messages; used when no provider is configured.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message and returns nil.
func (s *LogSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email delivery disabled, message logged")
	return nil
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailMessage
	ShouldFail bool
	FailError  string
}

// Send records the call and optionally returns an error.
func (m *MockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msg)
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded messages.
func (m *MockEmailSender) Calls() []EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailMessage, len(m.calls))
	copy(out, m.calls)
	return out
}

// ---------------------------------------------------------------------------
// Templates
// ---------------------------------------------------------------------------

// Template is a reusable e-mail template with {{key}} placeholders.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine renders registered templates.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// Template ids registered by default.
const (
	TemplateClinicRegistered = "clinic-registered"
	TemplateStaffInvited     = "staff-invited"
)

// NewTemplateEngine creates a TemplateEngine with the built-in templates.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	e.Register(Template{
		ID:      TemplateClinicRegistered,
		Subject: "{{clinic_name}} registration received",
		Body: "Dear {{contact_name}}, thank you for registering {{clinic_name}}. " +
			"Your reference is {{reference}}. Our team will review the application and get back to you.",
	})
	e.Register(Template{
		ID:      TemplateStaffInvited,
		Subject: "You have been added to {{clinic_name}}",
		Body:    "Hello {{staff_name}}, you were added to {{clinic_name}} as {{role}}.",
	})
	return e
}

// Register adds or replaces a template.
func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render replaces {{key}} placeholders with data. Unknown keys stay as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}
	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
