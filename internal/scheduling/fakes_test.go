package scheduling

import (
	"context"
	"time"

	"github.com/hoangnv/firstdate-backend/internal/notification"
	"github.com/hoangnv/firstdate-backend/internal/pairing"
	"github.com/hoangnv/firstdate-backend/internal/users"
)

type fakeRepo struct {
	availabilities map[int64]*Availability
	bookings       map[int64]*Booking
	matches        map[int64]*pairing.Match
	venues         []Venue
	users          map[int64]*users.User
	nextID         int64

	overlapErr error
	penaltyErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		availabilities: make(map[int64]*Availability),
		bookings:       make(map[int64]*Booking),
		matches:        make(map[int64]*pairing.Match),
		nextID:         1,
	}
}

func (r *fakeRepo) id() int64 {
	id := r.nextID
	r.nextID++
	return id
}

func (r *fakeRepo) RunInTx(_ context.Context, fn func(Repository) error) error {
	return fn(r)
}

func (r *fakeRepo) CreateAvailability(_ context.Context, a *Availability) error {
	a.ID = r.id()
	stored := *a
	r.availabilities[a.ID] = &stored
	return nil
}

func (r *fakeRepo) GetUserAvailabilities(_ context.Context, userID int64) ([]Availability, error) {
	var out []Availability
	for _, a := range r.availabilities {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteAvailability(_ context.Context, id, userID int64) error {
	a, ok := r.availabilities[id]
	if !ok || a.UserID != userID {
		return ErrAvailabilityNotFound
	}
	delete(r.availabilities, id)
	return nil
}

func (r *fakeRepo) DeleteUserAvailabilities(_ context.Context, userID int64) error {
	for id, a := range r.availabilities {
		if a.UserID == userID {
			delete(r.availabilities, id)
		}
	}
	return nil
}

func (r *fakeRepo) CreateBooking(_ context.Context, b *Booking) error {
	b.ID = r.id()
	stored := *b
	r.bookings[b.ID] = &stored
	return nil
}

func (r *fakeRepo) GetBooking(_ context.Context, id int64) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copy := *b
	return &copy, nil
}

func (r *fakeRepo) GetBookingForUpdate(ctx context.Context, id int64) (*Booking, error) {
	return r.GetBooking(ctx, id)
}

func (r *fakeRepo) UpdateBooking(_ context.Context, b *Booking) error {
	if _, ok := r.bookings[b.ID]; !ok {
		return ErrBookingNotFound
	}
	stored := *b
	r.bookings[b.ID] = &stored
	return nil
}

func (r *fakeRepo) GetUserBookings(_ context.Context, userID int64) ([]Booking, error) {
	var out []Booking
	for _, b := range r.bookings {
		if b.Involves(userID) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindOverlappingBookings(_ context.Context, userIDs []int64, start, end time.Time) ([]Booking, error) {
	if r.overlapErr != nil {
		return nil, r.overlapErr
	}
	active := map[BookingStatus]bool{
		BookingProposed: true, BookingConfirmed: true, BookingPending: true, BookingAccepted: true,
	}
	var out []Booking
	for _, b := range r.bookings {
		if !active[b.Status] || !b.StartTime.Before(end) || !b.EndTime.After(start) {
			continue
		}
		for _, uid := range userIDs {
			if b.Involves(uid) {
				out = append(out, *b)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) addMatch(user1, user2 int64, status pairing.MatchStatus) *pairing.Match {
	m := &pairing.Match{ID: r.id(), User1ID: user1, User2ID: user2, Status: status}
	r.matches[m.ID] = m
	return m
}

func (r *fakeRepo) GetMatchForUpdate(_ context.Context, matchID int64) (*pairing.Match, error) {
	m, ok := r.matches[matchID]
	if !ok {
		return nil, pairing.ErrMatchNotFound
	}
	return m, nil
}

func (r *fakeRepo) SetMatchStatus(_ context.Context, matchID int64, status pairing.MatchStatus) error {
	m, ok := r.matches[matchID]
	if !ok {
		return pairing.ErrMatchNotFound
	}
	if m.Status == pairing.StatusScheduled {
		return nil
	}
	m.Status = status
	return nil
}

func (r *fakeRepo) ApplyUserPenalty(_ context.Context, userID int64, until time.Time) error {
	if r.penaltyErr != nil {
		return r.penaltyErr
	}
	u, ok := r.users[userID]
	if !ok {
		return users.ErrUserNotFound
	}
	u.PenalizedUntil = &until
	return nil
}

func (r *fakeRepo) GetActiveVenues(context.Context) ([]Venue, error) {
	var out []Venue
	for _, v := range r.venues {
		if v.Active {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetVenue(_ context.Context, id int64) (*Venue, error) {
	for _, v := range r.venues {
		if v.ID == id {
			venue := v
			return &venue, nil
		}
	}
	return nil, ErrVenueNotFound
}

func (r *fakeRepo) CountVenues(context.Context) (int, error) {
	return len(r.venues), nil
}

func (r *fakeRepo) CreateVenue(_ context.Context, v *Venue) error {
	v.ID = r.id()
	r.venues = append(r.venues, *v)
	return nil
}

type fakeUserService struct {
	users map[int64]*users.User
}

func (f *fakeUserService) FindUser(_ context.Context, id int64) (*users.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, users.ErrUserNotFound
}

func (f *fakeUserService) ApplyPenalty(_ context.Context, userID int64, until time.Time) error {
	f.users[userID].PenalizedUntil = &until
	return nil
}

func (f *fakeUserService) IsPenalized(_ context.Context, userID int64) (bool, error) {
	return f.users[userID].IsPenalized(time.Now()), nil
}

func (f *fakeUserService) ContactInfo(context.Context, int64) (string, string, error) {
	return "", "", nil
}

// fakeMatchService serves match lookups straight from the repo's match table.
// When stale is set, GetMatchBetween returns that snapshot instead, standing
// in for a read that raced a concurrent status change.
type fakeMatchService struct {
	repo  *fakeRepo
	stale *pairing.Match
}

func (f *fakeMatchService) RecordLike(context.Context, int64, int64) (*pairing.LikeResult, error) {
	return nil, nil
}

func (f *fakeMatchService) RecordSkip(context.Context, int64, int64) error { return nil }

func (f *fakeMatchService) GetMatches(context.Context, int64) ([]pairing.Match, error) {
	return nil, nil
}

func (f *fakeMatchService) GetWaitingMatches(context.Context, int64) ([]pairing.Match, error) {
	return nil, nil
}

func (f *fakeMatchService) GetMatchBetween(_ context.Context, a, b int64) (*pairing.Match, error) {
	if f.stale != nil {
		return f.stale, nil
	}
	u1, u2 := pairing.NormalizePair(a, b)
	for _, m := range f.repo.matches {
		if m.User1ID == u1 && m.User2ID == u2 {
			return m, nil
		}
	}
	return nil, pairing.ErrMatchNotFound
}

func (f *fakeMatchService) GetMatchByID(_ context.Context, id int64) (*pairing.Match, error) {
	return f.repo.GetMatchForUpdate(context.Background(), id)
}

func (f *fakeMatchService) UpdateMatchStatus(_ context.Context, id int64, status pairing.MatchStatus) error {
	return f.repo.SetMatchStatus(context.Background(), id, status)
}

type fakePublisher struct {
	events map[int64][]notification.Event
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(map[int64][]notification.Event)}
}

func (f *fakePublisher) Publish(_ context.Context, userID int64, event notification.Event) {
	f.events[userID] = append(f.events[userID], event)
}

func (f *fakePublisher) LogActivity(context.Context, int64, string, string) {}

func (f *fakePublisher) total() int {
	n := 0
	for _, events := range f.events {
		n += len(events)
	}
	return n
}

type testEnv struct {
	svc       *service
	repo      *fakeRepo
	users     *fakeUserService
	matches   *fakeMatchService
	publisher *fakePublisher
	now       time.Time
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	userSvc := &fakeUserService{users: map[int64]*users.User{
		1: {ID: 1, Name: "An"},
		2: {ID: 2, Name: "Binh"},
		3: {ID: 3, Name: "Chi"},
	}}
	repo.users = userSvc.users
	matchSvc := &fakeMatchService{repo: repo}
	publisher := newFakePublisher()

	svc := NewService(repo, userSvc, matchSvc, publisher,
		90*time.Minute, 24*time.Hour, 3).(*service)

	env := &testEnv{
		svc:       svc,
		repo:      repo,
		users:     userSvc,
		matches:   matchSvc,
		publisher: publisher,
		now:       time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return env.now }
	return env
}

// at builds a timestamp on a given day offset from the env's base date
func (e *testEnv) at(day, hour, minute int) time.Time {
	return time.Date(2025, 6, 1+day, hour, minute, 0, 0, time.UTC)
}

func (e *testEnv) addWindows(userID int64, windows ...[2]time.Time) {
	for _, w := range windows {
		e.repo.CreateAvailability(context.Background(), &Availability{
			UserID: userID, StartTime: w[0], EndTime: w[1],
		})
	}
}
