// internal/notification/email.go

package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridEmailService implements email notifications using SendGrid
type SendGridEmailService struct {
	client *sendgrid.Client
	from   string
}

// NewSendGridEmailService creates a new SendGrid email service
func NewSendGridEmailService(apiKey, from string) (EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SendGrid API key is required")
	}

	return &SendGridEmailService{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
	}, nil
}

// SendEmail sends a single email
func (s *SendGridEmailService) SendEmail(ctx context.Context, notification *EmailNotification) error {
	from := mail.NewEmail("FirstDate", s.from)
	to := mail.NewEmail("", notification.To)
	message := mail.NewSingleEmail(from, notification.Subject, to, notification.Body, notification.Body)

	resp, err := s.client.Send(message)
	if err != nil {
		log.Printf("Failed to send email to %s: %v", notification.To, err)
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	return nil
}

// MockEmailService logs emails instead of sending them (development mode)
type MockEmailService struct{}

func NewMockEmailService() EmailService {
	return &MockEmailService{}
}

func (s *MockEmailService) SendEmail(ctx context.Context, notification *EmailNotification) error {
	log.Printf("[MOCK EMAIL] to=%s subject=%q", notification.To, notification.Subject)
	return nil
}
