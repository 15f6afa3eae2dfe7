package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoangnv/firstdate-backend/internal/pairing"
)

func (e *testEnv) proposedBooking(t *testing.T, matchID *int64, venueID *int64) *Booking {
	t.Helper()
	booking := &Booking{
		RequesterID: 1, RecipientID: 2, MatchID: matchID,
		StartTime: e.at(1, 11, 0), EndTime: e.at(1, 13, 0),
		Status: BookingProposed, VenueID: venueID,
	}
	if err := e.repo.CreateBooking(context.Background(), booking); err != nil {
		t.Fatal(err)
	}
	return booking
}

func (e *testEnv) venueID(t *testing.T) *int64 {
	t.Helper()
	v := &Venue{Name: "Cafe", Active: true}
	if err := e.repo.CreateVenue(context.Background(), v); err != nil {
		t.Fatal(err)
	}
	return &v.ID
}

func TestConfirmBookingDualConfirmation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	match := env.repo.addMatch(1, 2, pairing.StatusProposed)
	booking := env.proposedBooking(t, &match.ID, env.venueID(t))

	first, err := env.svc.ConfirmBooking(ctx, booking.ID, 1)
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if first.Status != BookingProposed || !first.RequesterConfirmed || first.RecipientConfirmed {
		t.Errorf("after one confirm: status=%s requester=%v recipient=%v",
			first.Status, first.RequesterConfirmed, first.RecipientConfirmed)
	}
	if match.Status != pairing.StatusProposed {
		t.Errorf("match must not advance on a single confirmation, got %s", match.Status)
	}
	if len(env.publisher.events[1]) != 1 || len(env.publisher.events[2]) != 1 {
		t.Errorf("both participants should hear about a single-side confirmation, got %d/%d events",
			len(env.publisher.events[1]), len(env.publisher.events[2]))
	}

	second, err := env.svc.ConfirmBooking(ctx, booking.ID, 2)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if second.Status != BookingConfirmed {
		t.Errorf("status = %s, want %s", second.Status, BookingConfirmed)
	}
	if match.Status != pairing.StatusScheduled {
		t.Errorf("match status = %s, want %s", match.Status, pairing.StatusScheduled)
	}
}

func TestConfirmBookingRequiresVenue(t *testing.T) {
	env := newTestEnv()
	booking := env.proposedBooking(t, nil, nil)

	if _, err := env.svc.ConfirmBooking(context.Background(), booking.ID, 1); !errors.Is(err, ErrVenueMissing) {
		t.Errorf("err = %v, want ErrVenueMissing", err)
	}
}

func TestConfirmBookingAuthorization(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	booking := env.proposedBooking(t, nil, env.venueID(t))

	if _, err := env.svc.ConfirmBooking(ctx, booking.ID, 3); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("outsider confirm: err = %v, want ErrNotParticipant", err)
	}

	// A booking past PROPOSED can no longer be confirmed
	stored, _ := env.repo.GetBooking(ctx, booking.ID)
	stored.Status = BookingCancelled
	env.repo.UpdateBooking(ctx, stored)
	if _, err := env.svc.ConfirmBooking(ctx, booking.ID, 1); !errors.Is(err, ErrWrongState) {
		t.Errorf("confirm after cancel: err = %v, want ErrWrongState", err)
	}
}

func TestCancelConfirmedBookingPenalizes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	booking := env.proposedBooking(t, nil, env.venueID(t))
	stored, _ := env.repo.GetBooking(ctx, booking.ID)
	stored.Status = BookingConfirmed
	env.repo.UpdateBooking(ctx, stored)

	if err := env.svc.CancelBooking(ctx, booking.ID, 2); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	canceller := env.users.users[2]
	if canceller.PenalizedUntil == nil {
		t.Fatal("cancelling a confirmed booking must penalize")
	}
	if !canceller.PenalizedUntil.After(env.now) {
		t.Errorf("penalizedUntil = %s, must be in the future", canceller.PenalizedUntil)
	}
	if want := env.now.Add(24 * time.Hour); !canceller.PenalizedUntil.Equal(want) {
		t.Errorf("penalizedUntil = %s, want %s", canceller.PenalizedUntil, want)
	}

	if env.users.users[1].PenalizedUntil != nil {
		t.Error("the other side must not be penalized")
	}
}

func TestCancelPenaltyFailureAbortsCancellation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	booking := confirmedBooking(t, env)

	env.repo.penaltyErr = errors.New("users table unavailable")
	if err := env.svc.CancelBooking(ctx, booking.ID, 2); err == nil {
		t.Fatal("cancel must fail when the penalty cannot be recorded")
	}

	stored, _ := env.repo.GetBooking(ctx, booking.ID)
	if stored.Status != BookingConfirmed {
		t.Errorf("booking status = %s, the cancellation must not land without its penalty", stored.Status)
	}
	if env.users.users[2].PenalizedUntil != nil {
		t.Error("no penalty should be recorded on a failed cancel")
	}
}

func TestCancelProposedBookingIsFree(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	match := env.repo.addMatch(1, 2, pairing.StatusProposed)
	booking := env.proposedBooking(t, &match.ID, env.venueID(t))

	if err := env.svc.CancelBooking(ctx, booking.ID, 1); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	if env.users.users[1].PenalizedUntil != nil {
		t.Error("cancelling before confirmation must not penalize")
	}
	if match.Status != pairing.StatusWaitingForSchedule {
		t.Errorf("match status = %s, the pair should be able to reschedule", match.Status)
	}

	if err := env.svc.CancelBooking(ctx, booking.ID, 1); !errors.Is(err, ErrWrongState) {
		t.Errorf("double cancel: err = %v, want ErrWrongState", err)
	}
}

func confirmedBooking(t *testing.T, env *testEnv) *Booking {
	t.Helper()
	booking := env.proposedBooking(t, nil, env.venueID(t))
	stored, _ := env.repo.GetBooking(context.Background(), booking.ID)
	stored.Status = BookingConfirmed
	env.repo.UpdateBooking(context.Background(), stored)
	return stored
}

func TestContactExchangeRequiresBothSides(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	booking := confirmedBooking(t, env)

	after, err := env.svc.SubmitFeedback(ctx, booking.ID, 1, true, true)
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if after.ContactExchanged {
		t.Fatal("one-sided consent must not exchange contacts")
	}

	after, err = env.svc.SubmitFeedback(ctx, booking.ID, 2, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ContactExchanged {
		t.Fatal("mutual consent should exchange contacts")
	}
	if len(env.publisher.events[1]) != 1 || len(env.publisher.events[2]) != 1 {
		t.Error("both users should be told contacts were exchanged")
	}
}

func TestContactExchangeWithdrawal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	booking := confirmedBooking(t, env)

	env.svc.SubmitFeedback(ctx, booking.ID, 1, true, true)
	env.svc.SubmitFeedback(ctx, booking.ID, 2, true, true)

	after, err := env.svc.SubmitFeedback(ctx, booking.ID, 2, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if after.ContactExchanged {
		t.Error("withdrawing consent must close the exchange")
	}
}

func TestContactExchangeRequiresAttendance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	booking := confirmedBooking(t, env)

	// Wanting contact without having shown up does not count
	env.svc.SubmitFeedback(ctx, booking.ID, 1, false, true)
	after, err := env.svc.SubmitFeedback(ctx, booking.ID, 2, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if after.ContactExchanged {
		t.Error("a no-show's consent must not open the exchange")
	}
	if after.RequesterWantsContact == nil || *after.RequesterWantsContact {
		t.Error("no-show feedback should store wants_contact as false")
	}
}

func TestCreateRequestConflict(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.svc.CreateRequest(ctx, 1, 2, env.at(1, 11, 0), env.at(1, 13, 0)); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	// The recipient's new commitment blocks an overlapping invitation from
	// a third user
	if _, err := env.svc.CreateRequest(ctx, 3, 2, env.at(1, 12, 0), env.at(1, 14, 0)); !errors.Is(err, ErrWindowConflict) {
		t.Errorf("err = %v, want ErrWindowConflict", err)
	}

	// A disjoint time is fine
	if _, err := env.svc.CreateRequest(ctx, 3, 2, env.at(2, 12, 0), env.at(2, 14, 0)); err != nil {
		t.Errorf("non-overlapping request rejected: %v", err)
	}
}

func TestUpdateStatusManualInvitation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	booking, err := env.svc.CreateRequest(ctx, 1, 2, env.at(1, 11, 0), env.at(1, 13, 0))
	if err != nil {
		t.Fatal(err)
	}

	// Only the recipient resolves a pending invitation
	if _, err := env.svc.UpdateBookingStatus(ctx, booking.ID, 1, BookingAccepted); !errors.Is(err, ErrWrongState) {
		t.Errorf("requester accept: err = %v, want ErrWrongState", err)
	}

	accepted, err := env.svc.UpdateBookingStatus(ctx, booking.ID, 2, BookingAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != BookingAccepted {
		t.Errorf("status = %s, want %s", accepted.Status, BookingAccepted)
	}

	// ACCEPTED is past the point of accept/decline
	if _, err := env.svc.UpdateBookingStatus(ctx, booking.ID, 2, BookingRejected); !errors.Is(err, ErrWrongState) {
		t.Errorf("decline after accept: err = %v, want ErrWrongState", err)
	}
}

func TestDeclineProposedBookingReopensMatch(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	match := env.repo.addMatch(1, 2, pairing.StatusProposed)
	booking := env.proposedBooking(t, &match.ID, env.venueID(t))

	declined, err := env.svc.UpdateBookingStatus(ctx, booking.ID, 1, BookingRejected)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != BookingRejected {
		t.Errorf("status = %s, want %s", declined.Status, BookingRejected)
	}
	if match.Status != pairing.StatusWaitingForSchedule {
		t.Errorf("match status = %s, want %s", match.Status, pairing.StatusWaitingForSchedule)
	}
}

func TestCanChatWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	booking := confirmedBooking(t, env)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"long before", env.at(1, 5, 0), false},
		{"window opens", env.at(1, 7, 0), true},
		{"during the date", env.at(1, 12, 0), true},
		{"shortly after start", env.at(1, 12, 59), true},
		{"window closed", env.at(1, 13, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env.now = tc.now
			got, err := env.svc.CanChat(ctx, booking.ID, 1)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("CanChat at %s = %v, want %v", tc.now, got, tc.want)
			}
		})
	}

	env.now = env.at(1, 12, 0)
	if _, err := env.svc.CanChat(ctx, booking.ID, 3); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("outsider: err = %v, want ErrNotParticipant", err)
	}
}
