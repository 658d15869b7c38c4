package notify

import (
	"context"
	"fmt"
	"strings"

	mail "github.com/go-mail/mail/v2"
	"github.com/pkg/errors"
)

// Sender is satisfied by *mail.Dialer.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

// MailSink sends one HTML email per recipient with an address.
type MailSink struct {
	sender  Sender
	from    string
	baseURL string
}

func NewMailSink(sender Sender, from, baseURL string) *MailSink {
	return &MailSink{sender: sender, from: from, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *MailSink) Name() string { return "email" }

func (s *MailSink) Deliver(ctx context.Context, ev Event) error {
	if s.sender == nil || s.from == "" {
		return nil
	}
	link := ""
	if ev.ManuscriptID > 0 && s.baseURL != "" {
		link = fmt.Sprintf("%s/manuscripts/%d", s.baseURL, ev.ManuscriptID)
	}

	var messages []*mail.Message
	seen := make(map[string]bool, len(ev.Recipients))
	for _, r := range ev.Recipients {
		addr := strings.ToLower(strings.TrimSpace(r.Email))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true

		m := mail.NewMessage()
		m.SetHeader("From", s.from)
		m.SetHeader("To", addr)
		m.SetHeader("Subject", ev.Subject)
		m.SetBody("text/html", buildEmailHTML(ev.Subject, r.Name, ev.Message, link))
		messages = append(messages, m)
	}
	if len(messages) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sender.DialAndSend(messages...); err != nil {
		return errors.Wrapf(err, "send %d emails for %s", len(messages), ev.Key)
	}
	return nil
}
