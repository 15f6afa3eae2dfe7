package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/hoangnv/firstdate-backend/internal/notification"
	"github.com/hoangnv/firstdate-backend/internal/pairing"
)

// ConfirmBooking flips the calling side's confirmation flag on a PROPOSED
// booking. Once both sides have confirmed, the booking transitions to
// CONFIRMED, the venue locks, and the match advances to SCHEDULED. The flag
// read and the status write run under a row lock so simultaneous
// confirmations from both sides serialize.
func (s *service) ConfirmBooking(ctx context.Context, bookingID, userID int64) (*Booking, error) {
	var (
		booking       *Booking
		bothConfirmed bool
	)

	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		var err error
		booking, err = tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !booking.Involves(userID) {
			return ErrNotParticipant
		}
		if booking.Status != BookingProposed {
			return ErrWrongState
		}
		if booking.VenueID == nil {
			return ErrVenueMissing
		}

		if booking.RequesterID == userID {
			booking.RequesterConfirmed = true
		} else {
			booking.RecipientConfirmed = true
		}

		if booking.RequesterConfirmed && booking.RecipientConfirmed {
			booking.Status = BookingConfirmed
			bothConfirmed = true
			if booking.MatchID != nil {
				if err := tx.SetMatchStatus(ctx, *booking.MatchID, pairing.StatusScheduled); err != nil {
					return err
				}
			}
		}

		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	if bothConfirmed {
		bookingsConfirmed.Inc()
		event := notification.Event{
			Kind: notification.KindBookingUpdate,
			Data: map[string]interface{}{"booking_id": booking.ID, "status": booking.Status},
			Message: fmt.Sprintf("Your date on %s is confirmed. See you there!",
				booking.StartTime.Format("Mon Jan 2, 15:04")),
		}
		s.notifier.Publish(ctx, booking.RequesterID, event)
		s.notifier.Publish(ctx, booking.RecipientID, event)
	} else {
		data := map[string]interface{}{"booking_id": booking.ID, "status": booking.Status}
		s.notifier.Publish(ctx, booking.OtherUser(userID), notification.Event{
			Kind:    notification.KindBookingUpdate,
			Data:    data,
			Message: "Your match confirmed the proposed date. Confirm yours to lock it in.",
		})
		s.notifier.Publish(ctx, userID, notification.Event{
			Kind:    notification.KindBookingUpdate,
			Data:    data,
			Message: "Confirmation received. Waiting on your match to confirm.",
		})
	}

	return booking, nil
}

// CancelBooking cancels an active booking. Cancelling a CONFIRMED booking is
// late flaking and earns the cancelling user a penalty window; cancelling
// anything earlier is free. A cancelled match-made booking that never reached
// SCHEDULED releases its match back to scheduling.
func (s *service) CancelBooking(ctx context.Context, bookingID, userID int64) error {
	var (
		booking      *Booking
		wasConfirmed bool
		penaltyUntil time.Time
	)

	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		var err error
		booking, err = tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !booking.Involves(userID) {
			return ErrNotParticipant
		}
		switch booking.Status {
		case BookingCancelled, BookingRejected:
			return ErrWrongState
		}

		wasConfirmed = booking.Status == BookingConfirmed
		booking.Status = BookingCancelled

		// The penalty commits with the cancellation or not at all.
		if wasConfirmed {
			penaltyUntil = s.now().Add(s.penaltyDuration)
			if err := tx.ApplyUserPenalty(ctx, userID, penaltyUntil); err != nil {
				return err
			}
		}

		if booking.MatchID != nil {
			// No-op for a SCHEDULED match; earlier stages reopen.
			if err := tx.SetMatchStatus(ctx, *booking.MatchID, pairing.StatusWaitingForSchedule); err != nil {
				return err
			}
		}

		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		return err
	}

	bookingsCancelled.Inc()

	if wasConfirmed {
		s.notifier.Publish(ctx, userID, notification.Event{
			Kind: notification.KindPenaltyNotice,
			Data: map[string]interface{}{"penalized_until": penaltyUntil},
			Message: fmt.Sprintf("You cancelled a confirmed date. Scheduling is paused for you until %s.",
				penaltyUntil.Format("Mon Jan 2, 15:04")),
		})
	}

	s.notifier.Publish(ctx, booking.OtherUser(userID), notification.Event{
		Kind:    notification.KindBookingCancelled,
		Data:    map[string]interface{}{"booking_id": booking.ID},
		Message: "Your date has been cancelled by your match.",
	})
	return nil
}

// SubmitFeedback records one side's post-date attendance and contact intent.
// A side's contact intent only counts if they actually attended. Contact
// exchange is the AND of both sides' current intents, recomputed on every
// write: it never opens from one side alone, and it closes again if either
// side withdraws.
func (s *service) SubmitFeedback(ctx context.Context, bookingID, userID int64, attended, wantsContact bool) (*Booking, error) {
	var (
		booking       *Booking
		justExchanged bool
	)

	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		var err error
		booking, err = tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !booking.Involves(userID) {
			return ErrNotParticipant
		}
		if booking.Status != BookingConfirmed {
			return ErrWrongState
		}

		wants := attended && wantsContact
		if booking.RequesterID == userID {
			booking.RequesterAttended = &attended
			booking.RequesterWantsContact = &wants
		} else {
			booking.RecipientAttended = &attended
			booking.RecipientWantsContact = &wants
		}

		wasExchanged := booking.ContactExchanged
		booking.ContactExchanged = booking.RequesterWantsContact != nil && *booking.RequesterWantsContact &&
			booking.RecipientWantsContact != nil && *booking.RecipientWantsContact
		justExchanged = booking.ContactExchanged && !wasExchanged

		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	if justExchanged {
		event := notification.Event{
			Kind:    notification.KindContactExchanged,
			Data:    map[string]interface{}{"booking_id": booking.ID},
			Message: "You both want to stay in touch! Contact details are now shared.",
		}
		s.notifier.Publish(ctx, booking.RequesterID, event)
		s.notifier.Publish(ctx, booking.RecipientID, event)
	}

	return booking, nil
}

// CreateRequest is the manual invitation path: one user directly proposes a
// date to another without going through the matching engine. The invitation
// still respects both calendars.
func (s *service) CreateRequest(ctx context.Context, requesterID, recipientID int64, start, end time.Time) (*Booking, error) {
	if requesterID == recipientID {
		return nil, ErrNotParticipant
	}
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}
	if start.Before(s.now()) {
		return nil, ErrWindowInPast
	}

	requester, err := s.users.FindUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindUser(ctx, recipientID); err != nil {
		return nil, err
	}
	if requester.IsPenalized(s.now()) {
		return nil, ErrPenalized
	}

	busy, err := s.repo.FindOverlappingBookings(ctx, []int64{requesterID, recipientID}, start, end)
	if err != nil {
		return nil, err
	}
	if len(busy) > 0 {
		return nil, ErrWindowConflict
	}

	booking := &Booking{
		RequesterID: requesterID,
		RecipientID: recipientID,
		StartTime:   start,
		EndTime:     end,
		Status:      BookingPending,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, recipientID, notification.Event{
		Kind: notification.KindBookingRequest,
		Data: map[string]interface{}{"booking_id": booking.ID},
		Message: fmt.Sprintf("%s invited you on a date on %s.",
			requester.Name, start.Format("Mon Jan 2, 15:04")),
	})
	return booking, nil
}

// UpdateBookingStatus handles accept/decline. A PENDING manual invitation is
// resolved by its recipient in a single step; a PROPOSED booking may be
// declined by either side.
func (s *service) UpdateBookingStatus(ctx context.Context, bookingID, userID int64, status BookingStatus) (*Booking, error) {
	var booking *Booking

	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		var err error
		booking, err = tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !booking.Involves(userID) {
			return ErrNotParticipant
		}

		switch status {
		case BookingAccepted:
			if booking.Status != BookingPending || booking.RecipientID != userID {
				return ErrWrongState
			}
		case BookingRejected:
			if booking.Status == BookingPending && booking.RecipientID != userID {
				return ErrWrongState
			}
			if booking.Status != BookingPending && booking.Status != BookingProposed {
				return ErrWrongState
			}
			if booking.MatchID != nil {
				if err := tx.SetMatchStatus(ctx, *booking.MatchID, pairing.StatusWaitingForSchedule); err != nil {
					return err
				}
			}
		default:
			return ErrWrongState
		}

		booking.Status = status
		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	message := "Your date invitation was declined."
	if status == BookingAccepted {
		message = "Your date invitation was accepted!"
	}
	s.notifier.Publish(ctx, booking.OtherUser(userID), notification.Event{
		Kind:    notification.KindBookingResponse,
		Data:    map[string]interface{}{"booking_id": booking.ID, "status": status},
		Message: message,
	})
	return booking, nil
}

func (s *service) GetBooking(ctx context.Context, bookingID, userID int64) (*Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Involves(userID) {
		return nil, ErrNotParticipant
	}

	if booking.VenueID != nil {
		venue, err := s.repo.GetVenue(ctx, *booking.VenueID)
		if err == nil {
			booking.Venue = venue
		}
	}
	return booking, nil
}

func (s *service) GetMyBookings(ctx context.Context, userID int64) ([]Booking, error) {
	return s.repo.GetUserBookings(ctx, userID)
}

// chat window around a confirmed date
const (
	chatOpensBefore = 4 * time.Hour
	chatClosesAfter = 2 * time.Hour
)

// CanChat reports whether the in-app chat for a confirmed date is open: from
// shortly before the start time until shortly after, so matches can
// coordinate arrival without unlocking indefinite messaging.
func (s *service) CanChat(ctx context.Context, bookingID, userID int64) (bool, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if !booking.Involves(userID) {
		return false, ErrNotParticipant
	}
	if booking.Status != BookingConfirmed {
		return false, nil
	}

	now := s.now()
	opens := booking.StartTime.Add(-chatOpensBefore)
	closes := booking.StartTime.Add(chatClosesAfter)
	return !now.Before(opens) && !now.After(closes), nil
}
