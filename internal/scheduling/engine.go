package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/hoangnv/firstdate-backend/internal/notification"
	"github.com/hoangnv/firstdate-backend/internal/pairing"
)

// findFirstCommonSlot intersects every pair of windows from the two users,
// drops intersections shorter than minDuration or colliding with an existing
// commitment, and returns the surviving candidate with the earliest start.
// Only window pairs starting on the same calendar day are considered: a
// window spilling past midnight never books into the next day's windows.
// Window counts per user are small, so the cross product is fine.
func findFirstCommonSlot(windowsA, windowsB []Availability, busy []Booking, minDuration time.Duration) *Slot {
	var best *Slot
	for _, wa := range windowsA {
		for _, wb := range windowsB {
			if !sameDay(wa.StartTime, wb.StartTime) {
				continue
			}

			start := wa.StartTime
			if wb.StartTime.After(start) {
				start = wb.StartTime
			}
			end := wa.EndTime
			if wb.EndTime.Before(end) {
				end = wb.EndTime
			}

			if end.Sub(start) < minDuration {
				continue
			}
			if conflictsWith(busy, start, end) {
				continue
			}
			if best == nil || start.Before(best.Start) {
				best = &Slot{Start: start, End: end}
			}
		}
	}
	return best
}

func sameDay(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}

func conflictsWith(busy []Booking, start, end time.Time) bool {
	for _, b := range busy {
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			return true
		}
	}
	return false
}

// executeMatching runs one matching attempt for a match whose both sides have
// submitted availability. The booking creation, match status change and
// window deletion commit together; notifications go out only after commit.
func (s *service) executeMatching(ctx context.Context, matchID int64) (SubmitResult, *Booking, error) {
	var (
		outcome SubmitResult
		booking *Booking
		match   *pairing.Match
	)

	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		var err error
		match, err = tx.GetMatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}

		windows1, err := tx.GetUserAvailabilities(ctx, match.User1ID)
		if err != nil {
			return err
		}
		windows2, err := tx.GetUserAvailabilities(ctx, match.User2ID)
		if err != nil {
			return err
		}

		slot, err := s.findSlot(ctx, tx, match, windows1, windows2)
		if err != nil {
			return err
		}

		// Windows are single-use. Whatever the outcome of this attempt,
		// they must not linger and silently match a future counterpart.
		if err := tx.DeleteUserAvailabilities(ctx, match.User1ID); err != nil {
			return err
		}
		if err := tx.DeleteUserAvailabilities(ctx, match.User2ID); err != nil {
			return err
		}

		if slot == nil {
			outcome = SubmitFail
			return tx.SetMatchStatus(ctx, matchID, pairing.StatusWaitingForSchedule)
		}

		venueID := s.suggestVenue(ctx, tx, match.User1ID, match.User2ID)
		booking = &Booking{
			RequesterID: match.User1ID,
			RecipientID: match.User2ID,
			MatchID:     &match.ID,
			StartTime:   slot.Start,
			EndTime:     slot.End,
			Status:      BookingProposed,
			VenueID:     venueID,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return err
		}
		if err := tx.SetMatchStatus(ctx, matchID, pairing.StatusProposed); err != nil {
			return err
		}

		outcome = SubmitSuccess
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	s.notifyMatchingOutcome(ctx, match, outcome, booking)
	if outcome == SubmitSuccess {
		matchingAttempts.WithLabelValues("success").Inc()
	} else {
		matchingAttempts.WithLabelValues("fail").Inc()
	}
	return outcome, booking, nil
}

// findSlot runs the pure intersection against both users' windows after
// loading their existing commitments. A failed conflict lookup aborts the
// attempt so the transaction rolls back with the windows intact.
func (s *service) findSlot(ctx context.Context, tx Repository, match *pairing.Match, windows1, windows2 []Availability) (*Slot, error) {
	if len(windows1) == 0 || len(windows2) == 0 {
		return nil, nil
	}

	span := spanOf(append(append([]Availability{}, windows1...), windows2...))
	busy, err := tx.FindOverlappingBookings(ctx, []int64{match.User1ID, match.User2ID}, span.Start, span.End)
	if err != nil {
		return nil, err
	}

	return findFirstCommonSlot(windows1, windows2, busy, s.minSlotDuration), nil
}

func spanOf(windows []Availability) Slot {
	span := Slot{Start: windows[0].StartTime, End: windows[0].EndTime}
	for _, w := range windows[1:] {
		if w.StartTime.Before(span.Start) {
			span.Start = w.StartTime
		}
		if w.EndTime.After(span.End) {
			span.End = w.EndTime
		}
	}
	return span
}

func (s *service) notifyMatchingOutcome(ctx context.Context, match *pairing.Match, outcome SubmitResult, booking *Booking) {
	var event notification.Event
	if outcome == SubmitSuccess {
		event = notification.Event{
			Kind: notification.KindBookingProposed,
			Data: map[string]interface{}{
				"match_id":   match.ID,
				"booking_id": booking.ID,
				"start_time": booking.StartTime,
				"end_time":   booking.EndTime,
			},
			Message: fmt.Sprintf("A first date has been proposed for %s. Confirm to lock it in!",
				booking.StartTime.Format("Mon Jan 2, 15:04")),
		}
	} else {
		event = notification.Event{
			Kind:    notification.KindMatchingFailed,
			Data:    map[string]interface{}{"match_id": match.ID},
			Message: "No common time slot was found. Please submit new availability.",
		}
	}

	s.notifier.Publish(ctx, match.User1ID, event)
	s.notifier.Publish(ctx, match.User2ID, event)
}
