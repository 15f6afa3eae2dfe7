package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/hoangnv/firstdate-backend/internal/notification"
	"github.com/hoangnv/firstdate-backend/internal/pairing"
	"github.com/hoangnv/firstdate-backend/internal/users"
)

var (
	ErrInvalidWindow     = errors.New("window end must be after start")
	ErrWindowInPast      = errors.New("window must be in the future")
	ErrWindowConflict    = errors.New("window overlaps an existing commitment")
	ErrTooFewWindows     = errors.New("not enough availability windows submitted")
	ErrNotParticipant    = errors.New("user is not a participant")
	ErrWrongState        = errors.New("booking is not in a state that allows this transition")
	ErrVenueMissing      = errors.New("booking has no venue assigned")
	ErrPenalized         = errors.New("user is temporarily blocked from scheduling")
	ErrAlreadyScheduling = errors.New("match already has an active booking")
)

type Service interface {
	AddAvailability(ctx context.Context, userID int64, start, end time.Time) (*Availability, error)
	ListAvailability(ctx context.Context, userID int64) ([]Availability, error)
	DeleteAvailability(ctx context.Context, userID, availabilityID int64) error
	SubmitAvailability(ctx context.Context, userID, targetUserID int64) (SubmitResult, *Booking, error)

	ConfirmBooking(ctx context.Context, bookingID, userID int64) (*Booking, error)
	CancelBooking(ctx context.Context, bookingID, userID int64) error
	SubmitFeedback(ctx context.Context, bookingID, userID int64, attended, wantsContact bool) (*Booking, error)
	CreateRequest(ctx context.Context, requesterID, recipientID int64, start, end time.Time) (*Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID, userID int64, status BookingStatus) (*Booking, error)
	GetBooking(ctx context.Context, bookingID, userID int64) (*Booking, error)
	GetMyBookings(ctx context.Context, userID int64) ([]Booking, error)
	CanChat(ctx context.Context, bookingID, userID int64) (bool, error)

	ListVenues(ctx context.Context) ([]Venue, error)
	SeedVenues(ctx context.Context) error
}

type service struct {
	repo     Repository
	users    users.Service
	matches  pairing.Service
	notifier notification.Publisher

	minSlotDuration  time.Duration
	penaltyDuration  time.Duration
	minWindowsPerSub int
	now              func() time.Time
}

func NewService(repo Repository, userSvc users.Service, matchSvc pairing.Service, notifier notification.Publisher,
	minSlotDuration, penaltyDuration time.Duration, minWindowsPerSub int) Service {
	return &service{
		repo:             repo,
		users:            userSvc,
		matches:          matchSvc,
		notifier:         notifier,
		minSlotDuration:  minSlotDuration,
		penaltyDuration:  penaltyDuration,
		minWindowsPerSub: minWindowsPerSub,
		now:              time.Now,
	}
}

// AddAvailability stores one open window for the user. Windows shorter than
// the minimum slot duration can never produce a bookable intersection, and
// windows colliding with an active commitment are rejected up front.
func (s *service) AddAvailability(ctx context.Context, userID int64, start, end time.Time) (*Availability, error) {
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}
	if start.Before(s.now()) {
		return nil, ErrWindowInPast
	}
	if end.Sub(start) < s.minSlotDuration {
		return nil, ErrInvalidWindow
	}

	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsPenalized(s.now()) {
		return nil, ErrPenalized
	}

	busy, err := s.repo.FindOverlappingBookings(ctx, []int64{userID}, start, end)
	if err != nil {
		return nil, err
	}
	if len(busy) > 0 {
		return nil, ErrWindowConflict
	}

	window := &Availability{UserID: userID, StartTime: start, EndTime: end}
	if err := s.repo.CreateAvailability(ctx, window); err != nil {
		return nil, err
	}
	return window, nil
}

func (s *service) ListAvailability(ctx context.Context, userID int64) ([]Availability, error) {
	return s.repo.GetUserAvailabilities(ctx, userID)
}

func (s *service) DeleteAvailability(ctx context.Context, userID, availabilityID int64) error {
	return s.repo.DeleteAvailability(ctx, availabilityID, userID)
}

// SubmitAvailability offers the user's stored windows against a specific
// match. The first submitter parks the match in a pending state; the second
// submitter triggers the matching engine and gets the attempt's outcome.
func (s *service) SubmitAvailability(ctx context.Context, userID, targetUserID int64) (SubmitResult, *Booking, error) {
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if user.IsPenalized(s.now()) {
		return "", nil, ErrPenalized
	}

	match, err := s.matches.GetMatchBetween(ctx, userID, targetUserID)
	if err != nil {
		return "", nil, err
	}

	windows, err := s.repo.GetUserAvailabilities(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if len(windows) < s.minWindowsPerSub {
		return "", nil, ErrTooFewWindows
	}

	// Decide first-versus-second submitter under the match row lock. Two
	// simultaneous submitters would otherwise both read a stale status, both
	// park the match as pending and wait on each other forever.
	var otherSubmitted bool
	err = s.repo.RunInTx(ctx, func(tx Repository) error {
		locked, err := tx.GetMatchForUpdate(ctx, match.ID)
		if err != nil {
			return err
		}

		switch locked.Status {
		case pairing.StatusProposed, pairing.StatusScheduled:
			return ErrAlreadyScheduling
		}

		otherSubmitted = (locked.User1ID == userID && locked.Status == pairing.StatusPendingUser2Avail) ||
			(locked.User2ID == userID && locked.Status == pairing.StatusPendingUser1Avail)
		if otherSubmitted {
			return nil
		}

		pendingStatus := pairing.StatusPendingUser1Avail
		if locked.User2ID == userID {
			pendingStatus = pairing.StatusPendingUser2Avail
		}
		return tx.SetMatchStatus(ctx, match.ID, pendingStatus)
	})
	if err != nil {
		return "", nil, err
	}

	if !otherSubmitted {
		s.notifier.Publish(ctx, match.OtherUser(userID), notification.Event{
			Kind:    notification.KindMatchStatusUpdate,
			Data:    map[string]interface{}{"match_id": match.ID},
			Message: "Your match has submitted their availability. Submit yours to schedule a date!",
		})
		return SubmitPending, nil, nil
	}

	return s.executeMatching(ctx, match.ID)
}

func (s *service) ListVenues(ctx context.Context) ([]Venue, error) {
	return s.repo.GetActiveVenues(ctx)
}
