package service

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"scout/internal/model"
	"scout/pkg/logger"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// MailSender delivers built messages. *mail.Client satisfies it.
type MailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailService dispatches mail through SMTP, admitted by the email
// limiter.
type EmailService struct {
	limiter Admitter
	sender  MailSender
	from    string
}

func NewEmailService(limiter Admitter, cfg EmailConfig) (*EmailService, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("%w: smtp host and from address are required", ErrInvalid)
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("build smtp client: %w", err)
	}
	return &EmailService{limiter: limiter, sender: client, from: cfg.From}, nil
}

// NewEmailServiceWithSender wires a custom sender, for tests.
func NewEmailServiceWithSender(limiter Admitter, sender MailSender, from string) *EmailService {
	return &EmailService{limiter: limiter, sender: sender, from: from}
}

// Send validates and dispatches one message.
func (s *EmailService) Send(ctx context.Context, msg model.EmailMessage) error {
	if s.limiter != nil {
		if err := s.limiter.Check(ctx); err != nil {
			return err
		}
	}

	if len(msg.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalid)
	}
	if msg.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalid)
	}

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("%w: invalid from address", ErrInvalid)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("%w: invalid recipient", ErrInvalid)
	}
	m.Subject(msg.Subject)
	if msg.HTML {
		m.SetBodyString(mail.TypeTextHTML, msg.Body)
	} else {
		m.SetBodyString(mail.TypeTextPlain, msg.Body)
	}

	if err := s.sender.DialAndSendWithContext(ctx, m); err != nil {
		logger.Error("email dispatch failed", "recipients", len(msg.To), "error", err)
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	logger.Info("email dispatched", "recipients", len(msg.To))
	return nil
}
