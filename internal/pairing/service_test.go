package pairing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoangnv/firstdate-backend/internal/notification"
	"github.com/hoangnv/firstdate-backend/internal/users"
)

type signalKey struct {
	from, to int64
}

type fakeRepository struct {
	signals map[signalKey]SignalKind
	matches map[int64]*Match
	nextID  int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		signals: make(map[signalKey]SignalKind),
		matches: make(map[int64]*Match),
		nextID:  1,
	}
}

func (r *fakeRepository) CreateSignal(_ context.Context, from, to int64, kind SignalKind) (bool, error) {
	key := signalKey{from, to}
	if _, ok := r.signals[key]; ok {
		return false, nil
	}
	r.signals[key] = kind
	return true, nil
}

func (r *fakeRepository) HasLike(_ context.Context, from, to int64) (bool, error) {
	return r.signals[signalKey{from, to}] == SignalLike, nil
}

func (r *fakeRepository) CountSignalsSince(_ context.Context, from int64, _ time.Time) (int, error) {
	count := 0
	for key := range r.signals {
		if key.from == from {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepository) CreateMatch(ctx context.Context, user1, user2 int64) (*Match, error) {
	u1, u2 := NormalizePair(user1, user2)
	for _, m := range r.matches {
		if m.User1ID == u1 && m.User2ID == u2 {
			return m, nil
		}
	}
	match := &Match{ID: r.nextID, User1ID: u1, User2ID: u2, Status: StatusWaitingForSchedule}
	r.nextID++
	r.matches[match.ID] = match
	return match, nil
}

func (r *fakeRepository) GetMatchBetween(_ context.Context, a, b int64) (*Match, error) {
	u1, u2 := NormalizePair(a, b)
	for _, m := range r.matches {
		if m.User1ID == u1 && m.User2ID == u2 {
			return m, nil
		}
	}
	return nil, ErrMatchNotFound
}

func (r *fakeRepository) GetMatchByID(_ context.Context, id int64) (*Match, error) {
	if m, ok := r.matches[id]; ok {
		return m, nil
	}
	return nil, ErrMatchNotFound
}

func (r *fakeRepository) GetUserMatches(_ context.Context, userID int64) ([]Match, error) {
	var out []Match
	for _, m := range r.matches {
		if m.Involves(userID) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeRepository) GetWaitingMatches(_ context.Context, userID int64) ([]Match, error) {
	var out []Match
	for _, m := range r.matches {
		if !m.Involves(userID) {
			continue
		}
		waitingOnUser := m.Status == StatusWaitingForSchedule ||
			(m.Status == StatusPendingUser1Avail && m.User2ID == userID) ||
			(m.Status == StatusPendingUser2Avail && m.User1ID == userID)
		if waitingOnUser {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeRepository) UpdateMatchStatus(_ context.Context, id int64, status MatchStatus) error {
	m, ok := r.matches[id]
	if !ok {
		return ErrMatchNotFound
	}
	if m.Status == StatusScheduled {
		return nil
	}
	m.Status = status
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

func newTestService(quota int) (*service, *fakeRepository, *fakeUserService, *fakePublisher) {
	repo := newFakeRepository()
	userSvc := &fakeUserService{users: map[int64]*users.User{
		1: {ID: 1, Name: "An"},
		2: {ID: 2, Name: "Binh"},
		3: {ID: 3, Name: "Chi"},
	}}
	publisher := newFakePublisher()
	svc := NewService(repo, userSvc, publisher, nil, quota).(*service)
	return svc, repo, userSvc, publisher
}

func TestRecordLikeOneDirectional(t *testing.T) {
	svc, repo, _, publisher := newTestService(0)

	result, err := svc.RecordLike(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("RecordLike: %v", err)
	}
	if result.Mutual {
		t.Error("one-directional like should not be mutual")
	}
	if len(repo.matches) != 0 {
		t.Errorf("expected no match, got %d", len(repo.matches))
	}
	if len(publisher.events) != 0 {
		t.Errorf("expected no notifications, got %d", len(publisher.events))
	}
}

func TestRecordLikeMutualCreatesMatch(t *testing.T) {
	svc, _, _, publisher := newTestService(0)

	if _, err := svc.RecordLike(context.Background(), 2, 1); err != nil {
		t.Fatalf("first like: %v", err)
	}
	result, err := svc.RecordLike(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("second like: %v", err)
	}

	if !result.Mutual {
		t.Fatal("expected mutual result")
	}
	if result.Match.User1ID != 1 || result.Match.User2ID != 2 {
		t.Errorf("match pair not normalized: got (%d, %d)", result.Match.User1ID, result.Match.User2ID)
	}
	if result.Match.Status != StatusWaitingForSchedule {
		t.Errorf("new match status = %s, want %s", result.Match.Status, StatusWaitingForSchedule)
	}
	if len(publisher.events[1]) != 1 || len(publisher.events[2]) != 1 {
		t.Errorf("both sides should get one match notification, got %d and %d",
			len(publisher.events[1]), len(publisher.events[2]))
	}
}

func TestRecordLikeIdempotent(t *testing.T) {
	svc, repo, _, publisher := newTestService(0)

	ctx := context.Background()
	if _, err := svc.RecordLike(ctx, 2, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordLike(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	result, err := svc.RecordLike(ctx, 1, 2)
	if err != nil {
		t.Fatalf("repeated like: %v", err)
	}

	if !result.Mutual {
		t.Error("repeated like should still report the existing match")
	}
	if len(repo.matches) != 1 {
		t.Errorf("expected exactly one match, got %d", len(repo.matches))
	}
	if len(publisher.events[1]) != 1 {
		t.Errorf("repeated like should not re-notify, got %d events", len(publisher.events[1]))
	}
}

func TestSkipIsSticky(t *testing.T) {
	svc, repo, _, _ := newTestService(0)

	ctx := context.Background()
	if err := svc.RecordSkip(ctx, 1, 2); err != nil {
		t.Fatalf("RecordSkip: %v", err)
	}

	// A later like from the same side cannot replace the skip
	result, err := svc.RecordLike(ctx, 1, 2)
	if err != nil {
		t.Fatalf("like after skip: %v", err)
	}
	if repo.signals[signalKey{1, 2}] != SignalSkip {
		t.Errorf("stored signal = %s, want %s", repo.signals[signalKey{1, 2}], SignalSkip)
	}

	// The reverse like still only sees a skip, so no match forms
	if _, err := svc.RecordLike(ctx, 2, 1); err != nil {
		t.Fatal(err)
	}
	if result.Mutual || len(repo.matches) != 0 {
		t.Error("a skipped pair must never match")
	}
}

func TestRecordLikeSelf(t *testing.T) {
	svc, _, _, _ := newTestService(0)

	if _, err := svc.RecordLike(context.Background(), 1, 1); !errors.Is(err, ErrSelfSignal) {
		t.Errorf("err = %v, want ErrSelfSignal", err)
	}
}

func TestRecordLikeUnknownUser(t *testing.T) {
	svc, _, _, _ := newTestService(0)

	if _, err := svc.RecordLike(context.Background(), 1, 99); !errors.Is(err, users.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestRecordLikePenalized(t *testing.T) {
	svc, _, userSvc, _ := newTestService(0)

	until := time.Now().Add(time.Hour)
	userSvc.users[1].PenalizedUntil = &until

	if _, err := svc.RecordLike(context.Background(), 1, 2); !errors.Is(err, ErrPenalized) {
		t.Errorf("err = %v, want ErrPenalized", err)
	}
}

func TestRecordLikeExpiredPenalty(t *testing.T) {
	svc, _, userSvc, _ := newTestService(0)

	until := time.Now().Add(-time.Hour)
	userSvc.users[1].PenalizedUntil = &until

	if _, err := svc.RecordLike(context.Background(), 1, 2); err != nil {
		t.Errorf("an expired penalty should not block, got %v", err)
	}
}

func TestDailyQuota(t *testing.T) {
	svc, _, _, _ := newTestService(2)

	ctx := context.Background()
	if _, err := svc.RecordLike(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordSkip(ctx, 1, 3); err != nil {
		t.Fatal(err)
	}

	userSvc := svc.users.(*fakeUserService)
	userSvc.users[4] = &users.User{ID: 4, Name: "Dung"}
	if _, err := svc.RecordLike(ctx, 1, 4); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}

	// Repeating an already-stored signal is rejected by the quota as well,
	// since the budget counts attempts against distinct counterparts.
	if _, err := svc.RecordLike(ctx, 1, 2); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestMatchStatusNeverRegressesFromScheduled(t *testing.T) {
	svc, repo, _, _ := newTestService(0)

	ctx := context.Background()
	match, err := repo.CreateMatch(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateMatchStatus(ctx, match.ID, StatusScheduled); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateMatchStatus(ctx, match.ID, StatusWaitingForSchedule); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.GetMatchByID(ctx, match.ID)
	if got.Status != StatusScheduled {
		t.Errorf("status = %s, a scheduled match must stay scheduled", got.Status)
	}
}
