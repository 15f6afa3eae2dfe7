package users

import (
	"context"
	"time"
)

type Service interface {
	FindUser(ctx context.Context, id int64) (*User, error)
	ApplyPenalty(ctx context.Context, userID int64, until time.Time) error
	IsPenalized(ctx context.Context, userID int64) (bool, error)
	// ContactInfo is the lookup surface the notification side channels use
	ContactInfo(ctx context.Context, userID int64) (email, phone string, err error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) FindUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ApplyPenalty(ctx context.Context, userID int64, until time.Time) error {
	return s.repo.UpdatePenalizedUntil(ctx, userID, &until)
}

func (s *service) IsPenalized(ctx context.Context, userID int64) (bool, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsPenalized(time.Now()), nil
}

func (s *service) ContactInfo(ctx context.Context, userID int64) (string, string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	phone := ""
	if user.Phone != nil {
		phone = *user.Phone
	}
	return user.Email, phone, nil
}
