package mysql

import (
	"context"
	"database/sql"

	"shiftmarket/internal/domain"
)

type MySQLNotificationRepository struct {
	db *sql.DB
}

func NewMySQLNotificationRepository(db *sql.DB) *MySQLNotificationRepository {
	return &MySQLNotificationRepository{db: db}
}

func (r *MySQLNotificationRepository) CreateNotification(ctx context.Context, notification *domain.Notification) error {
	query := `
        INSERT INTO notifications (id, user_id, title, body, is_read, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		notification.ID, notification.UserID, notification.Title,
		notification.Body, notification.Read, notification.CreatedAt)
	return err
}

func (r *MySQLNotificationRepository) GetNotificationsForUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT id, user_id, title, body, is_read, created_at
        FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
    `

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID, &notification.UserID, &notification.Title,
			&notification.Body, &notification.Read, &notification.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, &notification)
	}

	return notifications, rows.Err()
}

func (r *MySQLNotificationRepository) MarkRead(ctx context.Context, notificationID string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, notificationID)
	return err
}
