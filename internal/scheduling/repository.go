package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnv/firstdate-backend/internal/pairing"
	"github.com/hoangnv/firstdate-backend/internal/users"
)

var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrVenueNotFound        = errors.New("no venue available")
)

type Repository interface {
	// RunInTx executes fn against a transaction-bound view of the repository.
	// The matching engine and the booking state machine run their
	// read-modify-write sequences inside this scope.
	RunInTx(ctx context.Context, fn func(Repository) error) error

	CreateAvailability(ctx context.Context, a *Availability) error
	GetUserAvailabilities(ctx context.Context, userID int64) ([]Availability, error)
	DeleteAvailability(ctx context.Context, id, userID int64) error
	DeleteUserAvailabilities(ctx context.Context, userID int64) error

	CreateBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	GetBookingForUpdate(ctx context.Context, id int64) (*Booking, error)
	UpdateBooking(ctx context.Context, b *Booking) error
	GetUserBookings(ctx context.Context, userID int64) ([]Booking, error)
	FindOverlappingBookings(ctx context.Context, userIDs []int64, start, end time.Time) ([]Booking, error)

	GetMatchForUpdate(ctx context.Context, matchID int64) (*pairing.Match, error)
	SetMatchStatus(ctx context.Context, matchID int64, status pairing.MatchStatus) error

	// ApplyUserPenalty writes the scheduling lockout alongside the booking
	// mutation that earned it, so both commit or neither does.
	ApplyUserPenalty(ctx context.Context, userID int64, until time.Time) error

	GetActiveVenues(ctx context.Context) ([]Venue, error)
	GetVenue(ctx context.Context, id int64) (*Venue, error)
	CountVenues(ctx context.Context) (int, error)
	CreateVenue(ctx context.Context, v *Venue) error
}

type postgresRepository struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db, ext: db}
}

func (r *postgresRepository) RunInTx(ctx context.Context, fn func(Repository) error) error {
	if _, inTx := r.ext.(*sqlx.Tx); inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepo := &postgresRepository{db: r.db, ext: tx}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

func (r *postgresRepository) CreateAvailability(ctx context.Context, a *Availability) error {
	err := sqlx.GetContext(ctx, r.ext, a, `
		INSERT INTO availabilities (user_id, start_time, end_time, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, start_time, end_time, created_at`,
		a.UserID, a.StartTime, a.EndTime)
	if err != nil {
		return fmt.Errorf("failed to create availability: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetUserAvailabilities(ctx context.Context, userID int64) ([]Availability, error) {
	var windows []Availability
	err := sqlx.SelectContext(ctx, r.ext, &windows, `
		SELECT id, user_id, start_time, end_time, created_at
		FROM availabilities
		WHERE user_id = $1
		ORDER BY start_time ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get availabilities: %w", err)
	}
	return windows, nil
}

func (r *postgresRepository) DeleteAvailability(ctx context.Context, id, userID int64) error {
	result, err := r.ext.ExecContext(ctx, `
		DELETE FROM availabilities WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check availability delete: %w", err)
	}
	if rows == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteUserAvailabilities(ctx context.Context, userID int64) error {
	_, err := r.ext.ExecContext(ctx, `DELETE FROM availabilities WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear availabilities: %w", err)
	}
	return nil
}

func (r *postgresRepository) CreateBooking(ctx context.Context, b *Booking) error {
	err := sqlx.GetContext(ctx, r.ext, b, `
		INSERT INTO date_bookings
			(requester_id, recipient_id, match_id, start_time, end_time, status, venue_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+bookingColumns,
		b.RequesterID, b.RecipientID, b.MatchID, b.StartTime, b.EndTime, b.Status, b.VenueID)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

const bookingColumns = `id, requester_id, recipient_id, match_id, start_time, end_time, status, venue_id,
	requester_confirmed, recipient_confirmed,
	requester_attended, recipient_attended, requester_wants_contact, recipient_wants_contact,
	contact_exchanged, created_at, updated_at`

func (r *postgresRepository) GetBooking(ctx context.Context, id int64) (*Booking, error) {
	return r.getBooking(ctx, id, false)
}

// GetBookingForUpdate loads the booking under a row lock so concurrent
// confirmations, cancellations and feedback writes serialize per booking.
// Only meaningful inside RunInTx.
func (r *postgresRepository) GetBookingForUpdate(ctx context.Context, id int64) (*Booking, error) {
	return r.getBooking(ctx, id, true)
}

func (r *postgresRepository) getBooking(ctx context.Context, id int64, forUpdate bool) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM date_bookings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var booking Booking
	err := sqlx.GetContext(ctx, r.ext, &booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *postgresRepository) UpdateBooking(ctx context.Context, b *Booking) error {
	result, err := r.ext.ExecContext(ctx, `
		UPDATE date_bookings SET
			status = $2, venue_id = $3,
			requester_confirmed = $4, recipient_confirmed = $5,
			requester_attended = $6, recipient_attended = $7,
			requester_wants_contact = $8, recipient_wants_contact = $9,
			contact_exchanged = $10, updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.Status, b.VenueID,
		b.RequesterConfirmed, b.RecipientConfirmed,
		b.RequesterAttended, b.RecipientAttended,
		b.RequesterWantsContact, b.RecipientWantsContact,
		b.ContactExchanged)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check booking update: %w", err)
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *postgresRepository) GetUserBookings(ctx context.Context, userID int64) ([]Booking, error) {
	var bookings []Booking
	err := sqlx.SelectContext(ctx, r.ext, &bookings, `
		SELECT `+bookingColumns+`
		FROM date_bookings
		WHERE requester_id = $1 OR recipient_id = $1
		ORDER BY start_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	return bookings, nil
}

// FindOverlappingBookings returns active commitments of any of the given
// users that intersect [start, end). Terminal bookings do not hold time.
func (r *postgresRepository) FindOverlappingBookings(ctx context.Context, userIDs []int64, start, end time.Time) ([]Booking, error) {
	query, args, err := sqlx.In(`
		SELECT `+bookingColumns+`
		FROM date_bookings
		WHERE (requester_id IN (?) OR recipient_id IN (?))
		  AND status IN (?)
		  AND start_time < ? AND end_time > ?`,
		userIDs, userIDs, activeStatuses, end, start)
	if err != nil {
		return nil, fmt.Errorf("failed to build overlap query: %w", err)
	}

	var bookings []Booking
	err = sqlx.SelectContext(ctx, r.ext, &bookings, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping bookings: %w", err)
	}
	return bookings, nil
}

// GetMatchForUpdate locks the match row for the duration of a matching or
// booking transaction
func (r *postgresRepository) GetMatchForUpdate(ctx context.Context, matchID int64) (*pairing.Match, error) {
	var match pairing.Match
	err := sqlx.GetContext(ctx, r.ext, &match, `
		SELECT id, user1_id, user2_id, status, created_at
		FROM matches
		WHERE id = $1
		FOR UPDATE`, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pairing.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	return &match, nil
}

func (r *postgresRepository) SetMatchStatus(ctx context.Context, matchID int64, status pairing.MatchStatus) error {
	_, err := r.ext.ExecContext(ctx, `
		UPDATE matches SET status = $1
		WHERE id = $2 AND status <> $3`,
		status, matchID, pairing.StatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to set match status: %w", err)
	}
	return nil
}

func (r *postgresRepository) ApplyUserPenalty(ctx context.Context, userID int64, until time.Time) error {
	result, err := r.ext.ExecContext(ctx, `
		UPDATE users SET penalized_until = $1, updated_at = NOW()
		WHERE id = $2`, until, userID)
	if err != nil {
		return fmt.Errorf("failed to apply penalty: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check penalty update: %w", err)
	}
	if rows == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *postgresRepository) GetActiveVenues(ctx context.Context) ([]Venue, error) {
	var venues []Venue
	err := sqlx.SelectContext(ctx, r.ext, &venues, `
		SELECT id, name, address, latitude, longitude, active
		FROM venues
		WHERE active = true`)
	if err != nil {
		return nil, fmt.Errorf("failed to get venues: %w", err)
	}
	return venues, nil
}

func (r *postgresRepository) GetVenue(ctx context.Context, id int64) (*Venue, error) {
	var venue Venue
	err := sqlx.GetContext(ctx, r.ext, &venue, `
		SELECT id, name, address, latitude, longitude, active
		FROM venues
		WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return &venue, nil
}

func (r *postgresRepository) CountVenues(ctx context.Context) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.ext, &count, `SELECT COUNT(*) FROM venues`)
	if err != nil {
		return 0, fmt.Errorf("failed to count venues: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) CreateVenue(ctx context.Context, v *Venue) error {
	err := sqlx.GetContext(ctx, r.ext, v, `
		INSERT INTO venues (name, address, latitude, longitude, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, address, latitude, longitude, active`,
		v.Name, v.Address, v.Latitude, v.Longitude, v.Active)
	if err != nil {
		return fmt.Errorf("failed to create venue: %w", err)
	}
	return nil
}
