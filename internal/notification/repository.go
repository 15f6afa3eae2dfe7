package notification

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	GetUserNotifications(ctx context.Context, userID int64, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error

	CreateActivity(ctx context.Context, a *Activity) error
	GetUserActivities(ctx context.Context, userID int64, limit int) ([]*Activity, error)

	SaveDeviceToken(ctx context.Context, t *DeviceToken) error
	GetDeviceTokens(ctx context.Context, userID int64) ([]string, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateNotification(ctx context.Context, n *Notification) error {
	if n.Data == nil {
		n.Data = json.RawMessage("null")
	}

	query := `
        INSERT INTO notifications (user_id, kind, message, data)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `

	return r.db.QueryRowxContext(ctx, query, n.UserID, n.Kind, n.Message, n.Data).
		Scan(&n.ID, &n.CreatedAt)
}

func (r *postgresRepository) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]*Notification, error) {
	var notifications []*Notification
	query := `
        SELECT id, user_id, kind, message, data, is_read, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	err := r.db.SelectContext(ctx, &notifications, query, userID, limit)
	return notifications, err
}

func (r *postgresRepository) MarkRead(ctx context.Context, notificationID, userID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, notificationID, userID)
	return err
}

func (r *postgresRepository) CreateActivity(ctx context.Context, a *Activity) error {
	query := `
        INSERT INTO activities (user_id, message, kind)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `

	return r.db.QueryRowxContext(ctx, query, a.UserID, a.Message, a.Kind).
		Scan(&a.ID, &a.CreatedAt)
}

func (r *postgresRepository) GetUserActivities(ctx context.Context, userID int64, limit int) ([]*Activity, error) {
	var activities []*Activity
	query := `
        SELECT id, user_id, message, kind, created_at
        FROM activities
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	err := r.db.SelectContext(ctx, &activities, query, userID, limit)
	return activities, err
}

func (r *postgresRepository) SaveDeviceToken(ctx context.Context, t *DeviceToken) error {
	query := `
        INSERT INTO device_tokens (user_id, token, platform)
        VALUES ($1, $2, $3)
        ON CONFLICT (token) DO UPDATE SET user_id = $1, platform = $3
        RETURNING id, created_at
    `

	return r.db.QueryRowxContext(ctx, query, t.UserID, t.Token, t.Platform).
		Scan(&t.ID, &t.CreatedAt)
}

func (r *postgresRepository) GetDeviceTokens(ctx context.Context, userID int64) ([]string, error) {
	var tokens []string
	query := `SELECT token FROM device_tokens WHERE user_id = $1`

	err := r.db.SelectContext(ctx, &tokens, query, userID)
	return tokens, err
}
