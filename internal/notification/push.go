// internal/notification/push.go

package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMPushService implements push notifications using Firebase Cloud Messaging
type FCMPushService struct {
	client *messaging.Client
}

// NewFCMPushService creates a new FCM push service
func NewFCMPushService(ctx context.Context) (PushService, error) {
	credentialsPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credentialsPath == "" {
		return nil, errors.New("FIREBASE_CREDENTIALS_PATH must be set")
	}

	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMPushService{client: client}, nil
}

// SendPush sends a push notification to all registered tokens
func (s *FCMPushService) SendPush(ctx context.Context, notification *PushNotification) error {
	if len(notification.Tokens) == 0 {
		return errors.New("no tokens provided")
	}

	baseMessage := &messaging.Notification{
		Title: notification.Title,
		Body:  notification.Body,
	}

	messages := make([]*messaging.Message, 0, len(notification.Tokens))
	for _, token := range notification.Tokens {
		messages = append(messages, &messaging.Message{
			Token:        token,
			Notification: baseMessage,
			Data:         notification.Data,
		})
	}

	batchResponse, err := s.client.SendAll(ctx, messages)
	if err != nil {
		log.Printf("Failed to send batch push notifications: %v", err)
		return err
	}

	if batchResponse.FailureCount > 0 {
		log.Printf("Failed to send %d out of %d push notifications",
			batchResponse.FailureCount, len(messages))
	}

	return nil
}

// MockPushService logs pushes instead of sending them (development mode)
type MockPushService struct{}

func NewMockPushService() PushService {
	return &MockPushService{}
}

func (s *MockPushService) SendPush(ctx context.Context, notification *PushNotification) error {
	log.Printf("[MOCK PUSH] %d token(s): %s - %s", len(notification.Tokens), notification.Title, notification.Body)
	return nil
}
