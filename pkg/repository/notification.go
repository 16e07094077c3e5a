package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) RecordNotification(ctx context.Context, n *models.Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (id, type, title, message, status, error, created_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.Type, n.Title, n.Message, string(n.Status), nullable(n.Error), n.CreatedAt, n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, title, message, status, error, created_at, sent_at
		FROM notifications ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var (
			n        models.Notification
			status   string
			errorMsg *string
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &status, &errorMsg, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Status = models.NotificationStatus(status)
		n.Error = deref(errorMsg)
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return out, nil
}
