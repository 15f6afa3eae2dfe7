package pairing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrMatchNotFound = errors.New("match not found")

type Repository interface {
	CreateSignal(ctx context.Context, fromUserID, toUserID int64, kind SignalKind) (bool, error)
	HasLike(ctx context.Context, fromUserID, toUserID int64) (bool, error)
	CountSignalsSince(ctx context.Context, fromUserID int64, since time.Time) (int, error)

	CreateMatch(ctx context.Context, user1ID, user2ID int64) (*Match, error)
	GetMatchBetween(ctx context.Context, userA, userB int64) (*Match, error)
	GetMatchByID(ctx context.Context, matchID int64) (*Match, error)
	GetUserMatches(ctx context.Context, userID int64) ([]Match, error)
	GetWaitingMatches(ctx context.Context, userID int64) ([]Match, error)
	UpdateMatchStatus(ctx context.Context, matchID int64, status MatchStatus) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// CreateSignal records a like or skip. The first signal for an ordered
// (from, to) pair wins; a repeat insert is a no-op and returns false.
func (r *postgresRepository) CreateSignal(ctx context.Context, fromUserID, toUserID int64, kind SignalKind) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO interest_signals (from_user_id, to_user_id, kind, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (from_user_id, to_user_id) DO NOTHING`,
		fromUserID, toUserID, kind)
	if err != nil {
		return false, fmt.Errorf("failed to create signal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check signal insert: %w", err)
	}
	return rows > 0, nil
}

func (r *postgresRepository) HasLike(ctx context.Context, fromUserID, toUserID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM interest_signals
			WHERE from_user_id = $1 AND to_user_id = $2 AND kind = $3
		)`, fromUserID, toUserID, SignalLike)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) CountSignalsSince(ctx context.Context, fromUserID int64, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM interest_signals
		WHERE from_user_id = $1 AND created_at >= $2`,
		fromUserID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}

// CreateMatch inserts the match for a pair, normalizing the ID order so
// concurrent mutual likes collapse onto one row. Whichever insert loses the
// race falls through to the re-select, so both callers see the same match.
func (r *postgresRepository) CreateMatch(ctx context.Context, user1ID, user2ID int64) (*Match, error) {
	u1, u2 := NormalizePair(user1ID, user2ID)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO matches (user1_id, user2_id, status, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user1_id, user2_id) DO NOTHING`,
		u1, u2, StatusWaitingForSchedule)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	return r.GetMatchBetween(ctx, u1, u2)
}

func (r *postgresRepository) GetMatchBetween(ctx context.Context, userA, userB int64) (*Match, error) {
	u1, u2 := NormalizePair(userA, userB)

	var match Match
	err := r.db.GetContext(ctx, &match, `
		SELECT id, user1_id, user2_id, status, created_at
		FROM matches
		WHERE user1_id = $1 AND user2_id = $2`, u1, u2)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &match, nil
}

func (r *postgresRepository) GetMatchByID(ctx context.Context, matchID int64) (*Match, error) {
	var match Match
	err := r.db.GetContext(ctx, &match, `
		SELECT id, user1_id, user2_id, status, created_at
		FROM matches
		WHERE id = $1`, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &match, nil
}

func (r *postgresRepository) GetUserMatches(ctx context.Context, userID int64) ([]Match, error) {
	var matches []Match
	err := r.db.SelectContext(ctx, &matches, `
		SELECT id, user1_id, user2_id, status, created_at
		FROM matches
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	return matches, nil
}

// GetWaitingMatches returns the user's matches still waiting on their own
// availability: nothing submitted yet, or only the other side has submitted.
func (r *postgresRepository) GetWaitingMatches(ctx context.Context, userID int64) ([]Match, error) {
	var matches []Match
	err := r.db.SelectContext(ctx, &matches, `
		SELECT id, user1_id, user2_id, status, created_at
		FROM matches
		WHERE (user1_id = $1 OR user2_id = $1)
		  AND (status = $2
		       OR (status = $3 AND user2_id = $1)
		       OR (status = $4 AND user1_id = $1))
		ORDER BY created_at DESC`,
		userID, StatusWaitingForSchedule, StatusPendingUser1Avail, StatusPendingUser2Avail)
	if err != nil {
		return nil, fmt.Errorf("failed to get waiting matches: %w", err)
	}
	return matches, nil
}

// UpdateMatchStatus advances the coordination state. A SCHEDULED match is
// terminal: the WHERE clause makes regression attempts a silent no-op.
func (r *postgresRepository) UpdateMatchStatus(ctx context.Context, matchID int64, status MatchStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE matches SET status = $1
		WHERE id = $2 AND status <> $3`,
		status, matchID, StatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	return nil
}
