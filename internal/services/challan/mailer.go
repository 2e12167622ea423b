package challan

import (
	gomail "gopkg.in/gomail.v2"

	"trafficwatch/internal/config"
)

// SMTPMailer delivers challan emails over SMTP.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer from configuration. Returns nil when SMTP is
// not configured, which turns challan delivery off.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	if !cfg.MailerConfigured() {
		return nil
	}

	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
	}
}

// Send delivers one plain-text email.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
