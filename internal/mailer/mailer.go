// Package mailer sends the transactional account emails. The sender is an
// injected collaborator: handlers and services only see the Mailer interface,
// so tests substitute it and a missing API key degrades to a no-op.
package mailer

import (
	"context"
	"fmt"
)

// Mailer is the outbound email port. Sends are fire-and-forget from the
// caller's perspective; a failure is logged, never surfaced to the request.
type Mailer interface {
	// SendWelcome greets a freshly signed-up user.
	SendWelcome(ctx context.Context, email, name string) error

	// SendCancellation says goodbye after an account deletion.
	SendCancellation(ctx context.Context, email, name string) error
}

// Message templates for the two account emails.
const (
	welcomeSubject      = "Thanks for joining!"
	cancellationSubject = "We're sorry to see you go"
)

func welcomeBody(name string) string {
	return fmt.Sprintf("Welcome to the app, %s.", name)
}

func cancellationBody(name string) string {
	return fmt.Sprintf("Goodbye, %s. We would love to hear what we could have done better.", name)
}

// Noop is a Mailer that does nothing. Used in tests and when no mail provider
// is configured.
type Noop struct{}

// SendWelcome implements Mailer.
func (Noop) SendWelcome(context.Context, string, string) error { return nil }

// SendCancellation implements Mailer.
func (Noop) SendCancellation(context.Context, string, string) error { return nil }
