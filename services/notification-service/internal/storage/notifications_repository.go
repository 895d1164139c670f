package storage

import (
	"context"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/libs/db"
)

type Notification struct {
	ID            string
	UserID        string
	AppointmentID string
	BusinessID    string
	Type          string
	Title         string
	Message       string
	Read          bool
	CreatedAt     time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (user_id, appointment_id, business_id, type, title, message)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.UserID, n.AppointmentID, n.BusinessID, n.Type, n.Title, n.Message)
	return err
}

func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, user_id, appointment_id, business_id, type, title, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.AppointmentID, &n.BusinessID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flips one notification. Scoped by user_id so a caller can only
// touch their own rows.
func (r *Repository) MarkRead(ctx context.Context, notificationID, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE user_id = $1 AND NOT read
	`, userID)
	return err
}
