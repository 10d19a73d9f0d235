package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// NotificationRepository persists per-recipient notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int, unreadOnly bool) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	// MarkRead flags one notification owned by recipientID; ErrNotFound when no such row exists.
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
	DeleteAllForRecipient(ctx context.Context, recipientID string) (int, error)
}

const notificationTable = "notifications"

var notificationColumns = []string{"id", "recipient_id", "title", "message", "category", "is_read", "created_at"}

type notificationRepository struct {
	q Querier
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query, args, err := psql().Insert(notificationTable).
		Columns(notificationColumns...).
		Values(n.ID, n.RecipientID, n.Title, n.Message, n.Category, n.IsRead, n.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build notification insert: %w", err)
	}
	_, err = r.q.Exec(ctx, query, args...)
	return err
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int, unreadOnly bool) ([]domain.Notification, error) {
	builder := psql().Select(notificationColumns...).From(notificationTable).
		Where(sq.Eq{"recipient_id": recipientID}).
		OrderBy("created_at DESC", "id")
	if unreadOnly {
		builder = builder.Where(sq.Eq{"is_read": false})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build notification list: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	query, args, err := psql().Select("COUNT(*)").From(notificationTable).
		Where(sq.Eq{"recipient_id": recipientID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build notification count: %w", err)
	}
	var count int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	query, args, err := psql().Update(notificationTable).
		Set("is_read", true).
		Where(sq.Eq{"id": id, "recipient_id": recipientID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build notification update: %w", err)
	}
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	query, args, err := psql().Update(notificationTable).
		Set("is_read", true).
		Where(sq.Eq{"recipient_id": recipientID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build notification update: %w", err)
	}
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *notificationRepository) DeleteAllForRecipient(ctx context.Context, recipientID string) (int, error) {
	query, args, err := psql().Delete(notificationTable).
		Where(sq.Eq{"recipient_id": recipientID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build notification delete: %w", err)
	}
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}
