package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationFilter captures feed parameters.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationRepository persists per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, filter NotificationFilter) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
	// MarkRead stamps read_at when it is still null. It returns
	// pgx.ErrNoRows when the notification does not belong to recipientID.
	MarkRead(ctx context.Context, recipientID, id int64, at time.Time) error
	// MarkAllRead stamps every unread notification of recipientID and
	// returns how many changed.
	MarkAllRead(ctx context.Context, recipientID int64, at time.Time) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository constructs repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, kind, title, message, subject_id, action_url)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		n.RecipientID,
		n.Message.Kind,
		n.Message.Title,
		n.Message.Body,
		nullableID(n.Message.SubjectID),
		nullableText(n.Message.ActionURL),
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID int64, filter NotificationFilter) ([]domain.Notification, error) {
	query := `
        SELECT id, recipient_id, kind, title, message, COALESCE(subject_id, 0), COALESCE(action_url, ''), read_at, created_at
        FROM notifications WHERE recipient_id=$1`
	if filter.UnreadOnly {
		query += " AND read_at IS NULL"
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.Message.Kind,
			&n.Message.Title,
			&n.Message.Body,
			&n.Message.SubjectID,
			&n.Message.ActionURL,
			&n.ReadAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND read_at IS NULL`,
		recipientID,
	).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id int64, at time.Time) error {
	// COALESCE keeps the first read time, so an already read row is matched
	// (and left untouched) instead of reported missing.
	const query = `
        UPDATE notifications SET read_at=COALESCE(read_at, $3)
        WHERE id=$1 AND recipient_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, recipientID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID int64, at time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at=$2 WHERE recipient_id=$1 AND read_at IS NULL`,
		recipientID, at,
	)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
