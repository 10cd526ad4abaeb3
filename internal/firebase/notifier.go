package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/messaging"
	"github.com/wemake-app/wemake-api/internal/services"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Notifier sends push notifications through Firebase Cloud Messaging.
type Notifier struct {
	client messageSender
}

func NewNotifier(client messageSender) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Send(ctx context.Context, deviceToken string, notification services.Notification) error {
	if deviceToken == "" {
		return fmt.Errorf("device token is empty")
	}

	_, err := n.client.Send(ctx, &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	return nil
}
