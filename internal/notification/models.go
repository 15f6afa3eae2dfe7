// internal/notification/models.go

package notification

import (
	"encoding/json"
	"time"
)

// EventKind tags a fan-out event. Consumers must tolerate kinds they do not
// recognize, so new kinds can ship without breaking old clients.
type EventKind string

const (
	KindMatch             EventKind = "MATCH"
	KindMatchStatusUpdate EventKind = "MATCH_STATUS_UPDATE"
	KindBookingProposed   EventKind = "BOOKING_PROPOSED"
	KindMatchingFailed    EventKind = "MATCHING_FAILED"
	KindBookingUpdate     EventKind = "BOOKING_UPDATE"
	KindBookingRequest    EventKind = "BOOKING_REQUEST"
	KindBookingResponse   EventKind = "BOOKING_RESPONSE"
	KindContactExchanged  EventKind = "CONTACT_EXCHANGED"
	KindBookingCancelled  EventKind = "SCHEDULING_CANCELED"
	KindPenaltyNotice     EventKind = "PENALTY_NOTICE"
)

// Event is the tagged payload delivered to each affected user
type Event struct {
	Kind    EventKind   `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// Notification is the persisted in-app copy of a delivered event
type Notification struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	Kind      string          `json:"kind" db:"kind"`
	Message   string          `json:"message" db:"message"`
	Data      json.RawMessage `json:"data,omitempty" db:"data"`
	IsRead    bool            `json:"is_read" db:"is_read"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Activity is a human-readable feed entry written alongside notifications
type Activity struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	Kind      string    `json:"kind" db:"kind"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DeviceToken maps a user to a registered push target
type DeviceToken struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PushNotification is the payload handed to the push channel
type PushNotification struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// EmailNotification is the payload handed to the email channel
type EmailNotification struct {
	To      string
	Subject string
	Body    string
}

// SMSNotification is the payload handed to the SMS channel
type SMSNotification struct {
	To      string
	Message string
}
