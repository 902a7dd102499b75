package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	subject  = "[ILM2] Seu código de acesso"
	textBody = "Olá %s,\n\nSeu código de acesso ao ILM2 é: %s\n\nO código expira em poucos minutos. Se você não solicitou este código, ignore esta mensagem.\n"
	htmlBody = "<p>Olá %s,</p><p>Seu código de acesso ao ILM2 é: <strong>%s</strong></p><p>O código expira em poucos minutos. Se você não solicitou este código, ignore esta mensagem.</p>"
)

// SendGridSender delivers codes through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendGridSender creates a sender using the given API key and from address.
func NewSendGridSender(apiKey, fromEmail string) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail("ILM2", fromEmail),
	}
}

func (s *SendGridSender) SendCode(ctx context.Context, to, nome, code string) error {
	msg := sgmail.NewSingleEmail(
		s.from,
		subject,
		sgmail.NewEmail(nome, to),
		fmt.Sprintf(textBody, nome, code),
		fmt.Sprintf(htmlBody, nome, code),
	)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
