package repository

import (
	"context"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// SLAConfigRepository stores per-priority budgets keyed by priority.
type SLAConfigRepository interface {
	GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error)
	List(ctx context.Context) ([]domain.SLAConfig, error)
	Upsert(ctx context.Context, cfg *domain.SLAConfig) error
}

type slaConfigRepository struct {
	q Querier
}

func (r *slaConfigRepository) GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error) {
	const query = `
        SELECT priority, response_time_hours, resolution_time_hours, created_at, updated_at
        FROM sla_configs WHERE priority=$1`
	var cfg domain.SLAConfig
	if err := r.q.QueryRow(ctx, query, priority).Scan(
		&cfg.Priority,
		&cfg.ResponseTimeHours,
		&cfg.ResolutionTimeHours,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *slaConfigRepository) List(ctx context.Context) ([]domain.SLAConfig, error) {
	const query = `
        SELECT priority, response_time_hours, resolution_time_hours, created_at, updated_at
        FROM sla_configs ORDER BY resolution_time_hours ASC, priority`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAConfig
	for rows.Next() {
		var cfg domain.SLAConfig
		if err := rows.Scan(&cfg.Priority, &cfg.ResponseTimeHours, &cfg.ResolutionTimeHours, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

func (r *slaConfigRepository) Upsert(ctx context.Context, cfg *domain.SLAConfig) error {
	const query = `
        INSERT INTO sla_configs (priority, response_time_hours, resolution_time_hours, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (priority) DO UPDATE
            SET response_time_hours=EXCLUDED.response_time_hours,
                resolution_time_hours=EXCLUDED.resolution_time_hours,
                updated_at=EXCLUDED.updated_at
        RETURNING created_at`
	return r.q.QueryRow(ctx, query,
		cfg.Priority,
		cfg.ResponseTimeHours,
		cfg.ResolutionTimeHours,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	).Scan(&cfg.CreatedAt)
}
