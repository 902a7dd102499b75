// Package mail delivers one-time passcodes to usuarios. Delivery is a
// side effect of the login protocol: a failure here never changes the
// protocol response.
package mail

import (
	"context"
	"log"
)

// Sender is any service that can deliver a login code to an email address.
type Sender interface {
	SendCode(ctx context.Context, to, nome, code string) error
}

// ConsoleSender writes codes to the server log instead of sending email.
// For local development only.
type ConsoleSender struct{}

func (ConsoleSender) SendCode(_ context.Context, to, nome, code string) error {
	log.Printf("[mail] código de acesso para %s <%s>: %s", nome, to, code)
	return nil
}
