package notify

import (
	"context"
	"fmt"
	"strings"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// mailSender is the part of *sendgrid.Client the email channel needs.
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type EmailChannel struct {
	client   mailSender
	fromName string
	fromAddr string
}

func NewEmailChannel(apiKey, fromAddr, fromName string) *EmailChannel {
	return newEmailChannel(sendgrid.NewSendClient(apiKey), fromAddr, fromName)
}

func newEmailChannel(client mailSender, fromAddr, fromName string) *EmailChannel {
	return &EmailChannel{client: client, fromAddr: fromAddr, fromName: fromName}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, note domain.Notification, customer *domain.Customer) error {
	if strings.TrimSpace(customer.Email) == "" {
		return ErrSkipped
	}

	from := mail.NewEmail(c.fromName, c.fromAddr)
	to := mail.NewEmail(customer.FullName, customer.Email)
	subject := fmt.Sprintf("Bike %d is ready for you", note.BikeID)
	html := fmt.Sprintf(`<p>Hi %s,</p><p>%s</p>`, customer.FullName, note.Message)
	message := mail.NewSingleEmail(from, subject, to, note.Message, html)

	logger.ExternalServiceCall("SendGrid", "Send", "notificationID", note.ID, "to", customer.Email)
	resp, err := c.client.SendWithContext(ctx, message)
	if err != nil {
		logger.ExternalServiceResult("SendGrid", "Send", err)
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
		logger.ExternalServiceResult("SendGrid", "Send", err)
		return err
	}
	logger.ExternalServiceResult("SendGrid", "Send", nil, "status", resp.StatusCode)
	return nil
}
