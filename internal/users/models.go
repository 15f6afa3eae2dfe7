package users

import "time"

// User is a dating profile. Identity and media management live in their own
// services; this API only reads profiles and maintains the penalty timestamp.
type User struct {
	ID        int64   `json:"id" db:"id"`
	Email     string  `json:"email" db:"email"`
	Phone     *string `json:"phone,omitempty" db:"phone"`
	Name      string  `json:"name" db:"name"`
	Age       *int    `json:"age,omitempty" db:"age"`
	Gender    *string `json:"gender,omitempty" db:"gender"`
	Bio       *string `json:"bio,omitempty" db:"bio"`
	AvatarURL *string `json:"avatar_url,omitempty" db:"avatar_url"`
	Interests *string `json:"interests,omitempty" db:"interests"`

	// Last known coordinates, used for venue suggestions
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	// Anti-flaker protection: the user is blocked from discovery and
	// scheduling actions until this timestamp.
	PenalizedUntil *time.Time `json:"penalized_until,omitempty" db:"penalized_until"`
}

// IsPenalized reports whether the user is locked out at the given instant
func (u *User) IsPenalized(now time.Time) bool {
	return u.PenalizedUntil != nil && u.PenalizedUntil.After(now)
}

// PublicInfo is the subset of a profile safe to embed in other payloads
type PublicInfo struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	AvatarURL *string `json:"avatar_url,omitempty" db:"avatar_url"`
}

// Public projects the profile down to its embeddable subset
func (u *User) Public() *PublicInfo {
	return &PublicInfo{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}
