package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// sendTimeout bounds a single Mailgun API call.
const sendTimeout = 10 * time.Second

// MailgunMailer sends account emails through the Mailgun API.
type MailgunMailer struct {
	domain string
	apiKey string
	sender string
}

// NewMailgunMailer creates a Mailgun-backed Mailer.
func NewMailgunMailer(domain, apiKey, sender string) *MailgunMailer {
	return &MailgunMailer{
		domain: domain,
		apiKey: apiKey,
		sender: sender,
	}
}

// SendWelcome implements Mailer.
func (m *MailgunMailer) SendWelcome(ctx context.Context, email, name string) error {
	return m.send(ctx, email, welcomeSubject, welcomeBody(name))
}

// SendCancellation implements Mailer.
func (m *MailgunMailer) SendCancellation(ctx context.Context, email, name string) error {
	return m.send(ctx, email, cancellationSubject, cancellationBody(name))
}

func (m *MailgunMailer) send(ctx context.Context, to, subject, body string) error {
	client := mg.NewMailgun(m.domain, m.apiKey)
	msg := client.NewMessage(m.sender, subject, body, to)

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, _, err := client.Send(sendCtx, msg); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", subject, to, err)
	}
	return nil
}
