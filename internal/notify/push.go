package notify

import (
	"context"
	"fmt"
	"strconv"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type PushChannel struct {
	client messageSender
}

// NewPushChannel builds a Firebase Cloud Messaging client from a service
// account credentials file.
func NewPushChannel(ctx context.Context, credentialsFile string) (*PushChannel, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase messaging: %w", err)
	}
	return &PushChannel{client: client}, nil
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Deliver(ctx context.Context, note domain.Notification, customer *domain.Customer) error {
	if customer.DeviceToken == "" {
		return ErrSkipped
	}

	msg := &messaging.Message{
		Token: customer.DeviceToken,
		Notification: &messaging.Notification{
			Title: "Your bike is available",
			Body:  note.Message,
		},
		Data: map[string]string{
			"notification_id": strconv.FormatInt(note.ID, 10),
			"bike_id":         strconv.FormatInt(note.BikeID, 10),
		},
	}

	logger.ExternalServiceCall("FCM", "Send", "notificationID", note.ID, "customerID", customer.ID)
	id, err := c.client.Send(ctx, msg)
	logger.ExternalServiceResult("FCM", "Send", err, "messageID", id)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
