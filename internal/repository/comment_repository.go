package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// CommentRepository persists ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Comment, error)
}

const commentTable = "comments"

var commentColumns = []string{"id", "ticket_id", "author_id", "text", "parent_id", "is_system", "created_at"}

type commentRepository struct {
	q Querier
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query, args, err := psql().Insert(commentTable).
		Columns(commentColumns...).
		Values(comment.ID, comment.TicketID, comment.AuthorID, comment.Text, comment.ParentID, comment.IsSystem, comment.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build comment insert: %w", err)
	}
	_, err = r.q.Exec(ctx, query, args...)
	return err
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	query, args, err := psql().Select(commentColumns...).From(commentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build comment select: %w", err)
	}
	return scanComment(r.q.QueryRow(ctx, query, args...))
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	return r.list(ctx, sq.Eq{"ticket_id": ticketID})
}

func (r *commentRepository) ListByAuthor(ctx context.Context, authorID string) ([]domain.Comment, error) {
	return r.list(ctx, sq.Eq{"author_id": authorID, "is_system": false})
}

func (r *commentRepository) list(ctx context.Context, where sq.Sqlizer) ([]domain.Comment, error) {
	query, args, err := psql().Select(commentColumns...).From(commentTable).
		Where(where).
		OrderBy("created_at ASC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build comment list: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Text, &c.ParentID, &c.IsSystem, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
