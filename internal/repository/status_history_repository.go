package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// StatusHistoryRepository stores the append-only transition trail. Entries are never updated.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *domain.StatusHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistoryEntry, error)
}

const historyTable = "ticket_status_history"

type statusHistoryRepository struct {
	q Querier
}

func (r *statusHistoryRepository) Append(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	query, args, err := psql().Insert(historyTable).
		Columns("id", "ticket_id", "old_status", "new_status", "changed_by_id", "changed_at").
		Values(entry.ID, entry.TicketID, entry.OldStatus, entry.NewStatus, entry.ChangedByID, entry.ChangedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build history insert: %w", err)
	}
	_, err = r.q.Exec(ctx, query, args...)
	return err
}

func (r *statusHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistoryEntry, error) {
	query, args, err := psql().
		Select("id", "ticket_id", "old_status", "new_status", "changed_by_id", "changed_at").
		From(historyTable).
		Where(sq.Eq{"ticket_id": ticketID}).
		OrderBy("changed_at ASC", "seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history list: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedByID,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
