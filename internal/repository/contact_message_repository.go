package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// ContactMessageRepository stores contact form submissions.
type ContactMessageRepository interface {
	Create(ctx context.Context, msg *domain.ContactMessage) error
	// List returns messages newest first.
	List(ctx context.Context, unreadOnly bool) ([]domain.ContactMessage, error)
	MarkRead(ctx context.Context, id string) error
}

const contactMessageTable = "contact_messages"

var contactMessageColumns = []string{"id", "name", "email", "subject", "body", "is_read", "created_at"}

type contactMessageRepository struct {
	q Querier
}

func (r *contactMessageRepository) Create(ctx context.Context, msg *domain.ContactMessage) error {
	query, args, err := psql().Insert(contactMessageTable).
		Columns(contactMessageColumns...).
		Values(msg.ID, msg.Name, msg.Email, msg.Subject, msg.Body, msg.IsRead, msg.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build contact message insert: %w", err)
	}
	_, err = r.q.Exec(ctx, query, args...)
	return err
}

func (r *contactMessageRepository) List(ctx context.Context, unreadOnly bool) ([]domain.ContactMessage, error) {
	builder := psql().Select(contactMessageColumns...).From(contactMessageTable).OrderBy("created_at DESC", "id")
	if unreadOnly {
		builder = builder.Where(sq.Eq{"is_read": false})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact message list: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ContactMessage
	for rows.Next() {
		msg, err := scanContactMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *msg)
	}
	return result, rows.Err()
}

func (r *contactMessageRepository) MarkRead(ctx context.Context, id string) error {
	query, args, err := psql().Update(contactMessageTable).
		Set("is_read", true).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build contact message update: %w", err)
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

func scanContactMessage(row pgx.Row) (*domain.ContactMessage, error) {
	var m domain.ContactMessage
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
