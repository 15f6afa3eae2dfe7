// internal/notification/service.go

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Publisher is the fan-out surface consumed by the pairing, scheduling and
// payment services. Delivery is best-effort and at-least-once: a dropped
// delivery never propagates back into the state change that triggered it.
type Publisher interface {
	Publish(ctx context.Context, userID int64, event Event)
	LogActivity(ctx context.Context, userID int64, message, kind string)
}

// PushService delivers push notifications to registered device tokens
type PushService interface {
	SendPush(ctx context.Context, notification *PushNotification) error
}

// EmailService delivers email notifications
type EmailService interface {
	SendEmail(ctx context.Context, notification *EmailNotification) error
}

// SMSService delivers SMS notifications
type SMSService interface {
	SendSMS(ctx context.Context, notification *SMSNotification) error
}

// UserContact resolves delivery addresses for the side channels
type UserContact interface {
	ContactInfo(ctx context.Context, userID int64) (email, phone string, err error)
}

type Service interface {
	Publisher

	GetUserNotifications(ctx context.Context, userID int64, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
	GetUserActivities(ctx context.Context, userID int64, limit int) ([]*Activity, error)
	RegisterDeviceToken(ctx context.Context, userID int64, token, platform string) error
}

type service struct {
	repo    Repository
	hub     *Hub
	push    PushService
	email   EmailService
	sms     SMSService
	contact UserContact
}

func NewService(repo Repository, hub *Hub, push PushService, email EmailService, sms SMSService, contact UserContact) Service {
	return &service{
		repo:    repo,
		hub:     hub,
		push:    push,
		email:   email,
		sms:     sms,
		contact: contact,
	}
}

// Publish persists the in-app copy and fans the event out over every
// configured channel. Errors are logged, never returned: the state change
// that produced the event has already committed.
func (s *service) Publish(ctx context.Context, userID int64, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		log.Printf("Failed to marshal %s event data for user %d: %v", event.Kind, userID, err)
		data = nil
	}

	n := &Notification{
		UserID:  userID,
		Kind:    string(event.Kind),
		Message: event.Message,
		Data:    data,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		log.Printf("Failed to persist %s notification for user %d: %v", event.Kind, userID, err)
	}

	s.hub.Send(userID, event)

	if s.push != nil {
		s.sendPush(ctx, userID, event)
	}
	if s.email != nil || s.sms != nil {
		s.sendSideChannels(ctx, userID, event)
	}
}

func (s *service) sendPush(ctx context.Context, userID int64, event Event) {
	tokens, err := s.repo.GetDeviceTokens(ctx, userID)
	if err != nil {
		log.Printf("Failed to load device tokens for user %d: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	err = s.push.SendPush(ctx, &PushNotification{
		Tokens: tokens,
		Title:  "FirstDate",
		Body:   event.Message,
		Data:   map[string]string{"type": string(event.Kind)},
	})
	if err != nil {
		log.Printf("Failed to push %s notification to user %d: %v", event.Kind, userID, err)
	}
}

func (s *service) sendSideChannels(ctx context.Context, userID int64, event Event) {
	email, phone, err := s.contact.ContactInfo(ctx, userID)
	if err != nil {
		log.Printf("Failed to resolve contact info for user %d: %v", userID, err)
		return
	}

	if s.email != nil && email != "" {
		err := s.email.SendEmail(ctx, &EmailNotification{
			To:      email,
			Subject: fmt.Sprintf("FirstDate: %s", event.Kind),
			Body:    event.Message,
		})
		if err != nil {
			log.Printf("Failed to email %s notification to user %d: %v", event.Kind, userID, err)
		}
	}

	if s.sms != nil && phone != "" {
		err := s.sms.SendSMS(ctx, &SMSNotification{To: phone, Message: event.Message})
		if err != nil {
			log.Printf("Failed to SMS %s notification to user %d: %v", event.Kind, userID, err)
		}
	}
}

func (s *service) LogActivity(ctx context.Context, userID int64, message, kind string) {
	a := &Activity{UserID: userID, Message: message, Kind: kind}
	if err := s.repo.CreateActivity(ctx, a); err != nil {
		log.Printf("Failed to log %s activity for user %d: %v", kind, userID, err)
	}
}

func (s *service) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.GetUserNotifications(ctx, userID, limit)
}

func (s *service) MarkRead(ctx context.Context, notificationID, userID int64) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

func (s *service) GetUserActivities(ctx context.Context, userID int64, limit int) ([]*Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.GetUserActivities(ctx, userID, limit)
}

func (s *service) RegisterDeviceToken(ctx context.Context, userID int64, token, platform string) error {
	return s.repo.SaveDeviceToken(ctx, &DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	})
}
