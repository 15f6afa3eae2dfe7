package pairing

import (
	"time"

	"github.com/hoangnv/firstdate-backend/internal/users"
)

// SignalKind distinguishes the two interest signals a user can record
type SignalKind string

const (
	SignalLike SignalKind = "LIKE"
	SignalSkip SignalKind = "SKIP"
)

// InterestSignal is a one-directional like/skip. The first signal recorded
// for an ordered (from, to) pair wins; later writes are ignored.
type InterestSignal struct {
	ID         int64      `json:"id" db:"id"`
	FromUserID int64      `json:"from_user_id" db:"from_user_id"`
	ToUserID   int64      `json:"to_user_id" db:"to_user_id"`
	Kind       SignalKind `json:"kind" db:"kind"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// MatchStatus tracks coordination progress from mutual like to confirmed date:
//   - WAITING_FOR_SCHEDULE: no one has submitted availability yet
//   - PENDING_USERX_AVAIL: one side submitted, waiting for the other
//   - PROPOSED: the engine found a slot, waiting for venue confirmation
//   - SCHEDULED: date confirmed; the status never regresses past this point
type MatchStatus string

const (
	StatusWaitingForSchedule MatchStatus = "WAITING_FOR_SCHEDULE"
	StatusPendingUser1Avail  MatchStatus = "PENDING_USER1_AVAIL"
	StatusPendingUser2Avail  MatchStatus = "PENDING_USER2_AVAIL"
	StatusProposed           MatchStatus = "PROPOSED"
	StatusScheduled          MatchStatus = "SCHEDULED"
)

// Match is a mutual connection between two users. User1 always holds the
// smaller ID so lookups for (A,B) and (B,A) resolve to the same row.
type Match struct {
	ID        int64       `json:"id" db:"id"`
	User1ID   int64       `json:"user1_id" db:"user1_id"`
	User2ID   int64       `json:"user2_id" db:"user2_id"`
	Status    MatchStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`

	// Joined field: the counterpart as seen by the querying user
	MatchedUser *users.PublicInfo `json:"matched_user,omitempty"`
}

// NormalizePair returns the two IDs in canonical (smaller, larger) order
func NormalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Involves reports whether the given user is one of the match's two sides
func (m *Match) Involves(userID int64) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OtherUser returns the counterpart of the given user within the match
func (m *Match) OtherUser(userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}
