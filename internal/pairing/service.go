package pairing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hoangnv/firstdate-backend/internal/notification"
	"github.com/hoangnv/firstdate-backend/internal/users"
)

var (
	ErrSelfSignal    = errors.New("cannot like or skip yourself")
	ErrPenalized     = errors.New("user is temporarily blocked from discovery")
	ErrQuotaExceeded = errors.New("daily interaction quota exceeded")
)

// LikeResult tells the caller whether their like completed a mutual pair
type LikeResult struct {
	Mutual bool   `json:"mutual"`
	Match  *Match `json:"match,omitempty"`
}

type Service interface {
	RecordLike(ctx context.Context, fromUserID, toUserID int64) (*LikeResult, error)
	RecordSkip(ctx context.Context, fromUserID, toUserID int64) error
	GetMatches(ctx context.Context, userID int64) ([]Match, error)
	GetWaitingMatches(ctx context.Context, userID int64) ([]Match, error)
	GetMatchBetween(ctx context.Context, userA, userB int64) (*Match, error)
	GetMatchByID(ctx context.Context, matchID int64) (*Match, error)
	UpdateMatchStatus(ctx context.Context, matchID int64, status MatchStatus) error
}

type service struct {
	repo       Repository
	users      users.Service
	notifier   notification.Publisher
	redis      *redis.Client
	dailyQuota int
	now        func() time.Time
}

func NewService(repo Repository, userSvc users.Service, notifier notification.Publisher, redisClient *redis.Client, dailyQuota int) Service {
	return &service{
		repo:       repo,
		users:      userSvc,
		notifier:   notifier,
		redis:      redisClient,
		dailyQuota: dailyQuota,
		now:        time.Now,
	}
}

// RecordLike stores a one-directional like and, when the reverse like already
// exists, creates the match for the pair and notifies both users. Repeated
// likes between the same ordered pair are absorbed without a second signal.
func (s *service) RecordLike(ctx context.Context, fromUserID, toUserID int64) (*LikeResult, error) {
	if fromUserID == toUserID {
		return nil, ErrSelfSignal
	}

	from, err := s.users.FindUser(ctx, fromUserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindUser(ctx, toUserID); err != nil {
		return nil, err
	}

	now := s.now()
	if from.IsPenalized(now) {
		return nil, ErrPenalized
	}

	if err := s.checkQuota(ctx, fromUserID, now); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateSignal(ctx, fromUserID, toUserID, SignalLike)
	if err != nil {
		return nil, err
	}
	if created {
		s.bumpQuota(ctx, fromUserID, now)
	}

	mutual, err := s.repo.HasLike(ctx, toUserID, fromUserID)
	if err != nil {
		return nil, err
	}
	if !mutual {
		return &LikeResult{Mutual: false}, nil
	}

	match, err := s.repo.CreateMatch(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, err
	}

	// Only announce a freshly created signal's match, otherwise a repeated
	// like would spam both users with duplicate match notifications.
	if created {
		s.notifyMatch(ctx, match)
	}

	return &LikeResult{Mutual: true, Match: match}, nil
}

// RecordSkip stores a one-directional skip. A skip never expires and never
// produces a match, and like any signal it cannot be overwritten later.
func (s *service) RecordSkip(ctx context.Context, fromUserID, toUserID int64) error {
	if fromUserID == toUserID {
		return ErrSelfSignal
	}

	from, err := s.users.FindUser(ctx, fromUserID)
	if err != nil {
		return err
	}
	if _, err := s.users.FindUser(ctx, toUserID); err != nil {
		return err
	}

	now := s.now()
	if from.IsPenalized(now) {
		return ErrPenalized
	}

	if err := s.checkQuota(ctx, fromUserID, now); err != nil {
		return err
	}

	created, err := s.repo.CreateSignal(ctx, fromUserID, toUserID, SignalSkip)
	if err != nil {
		return err
	}
	if created {
		s.bumpQuota(ctx, fromUserID, now)
	}
	return nil
}

func (s *service) GetMatches(ctx context.Context, userID int64) ([]Match, error) {
	matches, err := s.repo.GetUserMatches(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range matches {
		other, err := s.users.FindUser(ctx, matches[i].OtherUser(userID))
		if err != nil {
			log.Printf("pairing: failed to load matched user %d: %v", matches[i].OtherUser(userID), err)
			continue
		}
		matches[i].MatchedUser = other.Public()
	}
	return matches, nil
}

func (s *service) GetWaitingMatches(ctx context.Context, userID int64) ([]Match, error) {
	matches, err := s.repo.GetWaitingMatches(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range matches {
		other, err := s.users.FindUser(ctx, matches[i].OtherUser(userID))
		if err != nil {
			log.Printf("pairing: failed to load matched user %d: %v", matches[i].OtherUser(userID), err)
			continue
		}
		matches[i].MatchedUser = other.Public()
	}
	return matches, nil
}

func (s *service) GetMatchBetween(ctx context.Context, userA, userB int64) (*Match, error) {
	return s.repo.GetMatchBetween(ctx, userA, userB)
}

func (s *service) GetMatchByID(ctx context.Context, matchID int64) (*Match, error) {
	return s.repo.GetMatchByID(ctx, matchID)
}

func (s *service) UpdateMatchStatus(ctx context.Context, matchID int64, status MatchStatus) error {
	return s.repo.UpdateMatchStatus(ctx, matchID, status)
}

// checkQuota enforces the daily interaction budget. Redis holds a per-day
// counter for the fast path; when Redis is unavailable the signal table is
// counted directly so the budget still holds.
func (s *service) checkQuota(ctx context.Context, userID int64, now time.Time) error {
	if s.dailyQuota <= 0 {
		return nil
	}

	if s.redis != nil {
		count, err := s.redis.Get(ctx, s.quotaKey(userID, now)).Int()
		if err != nil && err != redis.Nil {
			log.Printf("pairing: redis quota read failed for user %d: %v", userID, err)
		} else if err == nil && count >= s.dailyQuota {
			return ErrQuotaExceeded
		}
		if err == nil || err == redis.Nil {
			return nil
		}
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.repo.CountSignalsSince(ctx, userID, startOfDay)
	if err != nil {
		return err
	}
	if count >= s.dailyQuota {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *service) bumpQuota(ctx context.Context, userID int64, now time.Time) {
	if s.redis == nil || s.dailyQuota <= 0 {
		return
	}

	key := s.quotaKey(userID, now)
	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("pairing: redis quota bump failed for user %d: %v", userID, err)
	}
}

func (s *service) quotaKey(userID int64, now time.Time) string {
	return fmt.Sprintf("quota:interactions:%d:%s", userID, now.Format("2006-01-02"))
}

func (s *service) notifyMatch(ctx context.Context, match *Match) {
	event := notification.Event{
		Kind:    notification.KindMatch,
		Data:    map[string]interface{}{"match_id": match.ID},
		Message: "You have a new match! Submit your availability to schedule a first date.",
	}
	s.notifier.Publish(ctx, match.User1ID, event)
	s.notifier.Publish(ctx, match.User2ID, event)
	s.notifier.LogActivity(ctx, match.User1ID, "New match created", string(notification.KindMatch))
	s.notifier.LogActivity(ctx, match.User2ID, "New match created", string(notification.KindMatch))
}
