package scheduling

import "time"

// Availability is an open time window a user offers for scheduling. Windows
// are single-use: the matching engine deletes them after every attempt,
// successful or not.
type Availability struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BookingStatus covers both booking paths. Matched bookings move
// PROPOSED -> CONFIRMED through dual confirmation; manual invitations move
// PENDING -> ACCEPTED/REJECTED in a single step. CANCELLED and REJECTED
// are terminal.
type BookingStatus string

const (
	BookingProposed  BookingStatus = "PROPOSED"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingPending   BookingStatus = "PENDING"
	BookingAccepted  BookingStatus = "ACCEPTED"
	BookingRejected  BookingStatus = "REJECTED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// activeStatuses are the states that hold a user's calendar time. Bookings in
// these states count as commitments for overlap checks.
var activeStatuses = []BookingStatus{
	BookingProposed, BookingConfirmed, BookingPending, BookingAccepted,
}

// Booking is the appointment entity. ContactExchanged is derived: it is the
// AND of both sides' wants_contact feedback, recomputed on every feedback
// write, and never set from one side alone.
type Booking struct {
	ID          int64         `json:"id" db:"id"`
	RequesterID int64         `json:"requester_id" db:"requester_id"`
	RecipientID int64         `json:"recipient_id" db:"recipient_id"`
	MatchID     *int64        `json:"match_id,omitempty" db:"match_id"`
	StartTime   time.Time     `json:"start_time" db:"start_time"`
	EndTime     time.Time     `json:"end_time" db:"end_time"`
	Status      BookingStatus `json:"status" db:"status"`
	VenueID     *int64        `json:"venue_id,omitempty" db:"venue_id"`

	RequesterConfirmed bool `json:"requester_confirmed" db:"requester_confirmed"`
	RecipientConfirmed bool `json:"recipient_confirmed" db:"recipient_confirmed"`

	RequesterAttended     *bool `json:"requester_attended,omitempty" db:"requester_attended"`
	RecipientAttended     *bool `json:"recipient_attended,omitempty" db:"recipient_attended"`
	RequesterWantsContact *bool `json:"requester_wants_contact,omitempty" db:"requester_wants_contact"`
	RecipientWantsContact *bool `json:"recipient_wants_contact,omitempty" db:"recipient_wants_contact"`
	ContactExchanged      bool  `json:"contact_exchanged" db:"contact_exchanged"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Venue *Venue `json:"venue,omitempty" db:"-"`
}

// Involves reports whether the user is a party to the booking
func (b *Booking) Involves(userID int64) bool {
	return b.RequesterID == userID || b.RecipientID == userID
}

// OtherUser returns the counterpart of the given participant
func (b *Booking) OtherUser(userID int64) int64 {
	if b.RequesterID == userID {
		return b.RecipientID
	}
	return b.RequesterID
}

// Venue is a curated first-date location
type Venue struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Address   string  `json:"address" db:"address"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Active    bool    `json:"active" db:"active"`
}

// Slot is a schedulable intersection of two users' availability windows
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SubmitResult is the text outcome of an availability submission
type SubmitResult string

const (
	// SubmitPending: stored, waiting for the counterpart to submit
	SubmitPending SubmitResult = "PENDING"
	// SubmitSuccess: both sides submitted and a common slot was booked
	SubmitSuccess SubmitResult = "SUCCESS"
	// SubmitFail: both sides submitted but no common slot exists
	SubmitFail SubmitResult = "FAIL"
)
