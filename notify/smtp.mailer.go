package notify

import (
	"context"
	"time"

	mail "gopkg.in/mail.v2"
)

// Mailer hands a message to a mail relay.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig describes the outbound relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPMailer delivers messages through an SMTP relay using STARTTLS.
type SMTPMailer struct {
	dialer *mail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	// One dial per message. The dialer otherwise redials on EOF or timeout.
	d.RetryFailure = false
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return &SMTPMailer{dialer: d}
}

// Send dials the relay once per message. When ctx ends first Send returns
// ctx.Err(), and the dial in flight keeps running until the dialer's Timeout
// deadline closes it.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.dialer.DialAndSend(buildMessage(msg))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ID != "" {
		m.SetHeader("X-Message-Id", msg.ID)
	}
	m.SetBody("text/plain", msg.Body)
	return m
}
