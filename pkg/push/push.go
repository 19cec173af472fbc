package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client sends notifications to single devices through Firebase Cloud Messaging.
type Client struct {
	messaging *messaging.Client
}

// New initialises a Firebase app from a service account file.
func New(ctx context.Context, credentialsFile string) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	mc, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase messaging: %w", err)
	}
	return &Client{messaging: mc}, nil
}

// Send pushes title/body to token and returns the FCM message id. Errors are
// returned unwrapped so the messaging.Is* helpers keep working on them.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) (string, error) {
	return c.messaging.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
}
