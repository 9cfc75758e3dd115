package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/pkg/circuitbreaker"
	"github.com/lettermill/lettermill/pkg/metrics"
)

// Sender abstracts the SMTP dialer so tests can capture messages.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	sender    Sender
	breaker   *circuitbreaker.CircuitBreaker
	templates *TemplateEngine
	from      string
	metrics   *metrics.Metrics
}

func NewSMTPService(cfg config.SMTPConfig, m *metrics.Metrics) Service {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewServiceWithSender(dialer, cfg.From, m)
}

// NewServiceWithSender is used by tests to inject a capturing sender.
func NewServiceWithSender(sender Sender, from string, m *metrics.Metrics) Service {
	return &smtpService{
		sender:    sender,
		breaker:   circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: "smtp"}),
		templates: NewTemplateEngine(),
		from:      from,
		metrics:   m,
	}
}

func (s *smtpService) SendConfirmation(ctx context.Context, to, language, confirmURL string) error {
	return s.send(ctx, templateConfirmation, to, language, map[string]interface{}{
		"confirm_url": confirmURL,
	})
}

func (s *smtpService) SendWelcome(ctx context.Context, to, language, unsubURL string) error {
	return s.send(ctx, templateWelcome, to, language, map[string]interface{}{
		"unsub_url": unsubURL,
	})
}

func (s *smtpService) SendGoodbye(ctx context.Context, to, language string) error {
	return s.send(ctx, templateGoodbye, to, language, nil)
}

func (s *smtpService) send(ctx context.Context, kind templateKind, to, language string, vars map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := s.templates.Render(kind, language, vars)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", kind, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	// A dead SMTP host fails fast instead of stalling every dispatch.
	err = s.breaker.Execute(func() error {
		return s.sender.DialAndSend(m)
	})
	if err != nil {
		s.metrics.EmailsFailed.WithLabelValues(string(kind)).Inc()
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	s.metrics.EmailsSent.WithLabelValues(string(kind)).Inc()
	return nil
}
