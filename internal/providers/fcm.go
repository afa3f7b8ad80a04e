package providers

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"dispatch-service/internal/models"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM sends push notifications through Firebase Cloud Messaging.
type FCM struct {
	client    messagingClient
	channelID string
}

// NewFCM builds a Firebase messaging client from a service-account file.
func NewFCM(ctx context.Context, credentialsFile, androidChannelID string) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &FCM{client: client, channelID: androidChannelID}, nil
}

// Send delivers msg to one registration token.
func (f *FCM) Send(ctx context.Context, token string, msg models.PushMessage) error {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: f.channelID,
			},
		},
	}
	if _, err := f.client.Send(ctx, message); err != nil {
		return fmt.Errorf("fcm send failed: %w", err)
	}
	return nil
}
