package config

import (
	"crypto/tls"

	mail "github.com/go-mail/mail/v2"
)

// NewMailDialer returns nil when SMTP is not configured; the mail sink then
// stays silent.
func NewMailDialer(cfg *Config) *mail.Dialer {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return nil
	}
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)

	// Force STARTTLS on 587 (Gmail/Office365 style relays).
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.SMTPSkipTLSVerify, // dev only
	}
	return d
}
