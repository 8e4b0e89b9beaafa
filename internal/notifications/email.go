package notifications

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailClientInterface sends transactional email
type EmailClientInterface interface {
	SendEmail(ctx context.Context, toName, toAddress, subject, plain, html string) error
}

// EmailClient sends email through SendGrid
type EmailClient struct {
	client      *sendgrid.Client
	fromName    string
	fromAddress string
}

// NewEmailClient creates a SendGrid backed email client
func NewEmailClient(apiKey, fromName, fromAddress string) *EmailClient {
	return &EmailClient{
		client:      sendgrid.NewSendClient(apiKey),
		fromName:    fromName,
		fromAddress: fromAddress,
	}
}

// SendEmail sends one message. Any status >= 400 is an error.
func (c *EmailClient) SendEmail(ctx context.Context, toName, toAddress, subject, plain, html string) error {
	from := mail.NewEmail(c.fromName, c.fromAddress)
	to := mail.NewEmail(toName, toAddress)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	resp, err := c.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
