package repository

import (
	"context"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// TeamRepository manages persistence for teams.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	GetByName(ctx context.Context, name string) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
}

type teamRepository struct {
	q Querier
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (id, name, description, created_at)
        VALUES ($1,$2,$3,$4)`
	_, err := r.q.Exec(ctx, query, team.ID, team.Name, team.Description, team.CreatedAt)
	return err
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `SELECT id, name, description, created_at FROM teams WHERE id=$1`
	var team domain.Team
	if err := r.q.QueryRow(ctx, query, id).Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	const query = `SELECT id, name, description, created_at FROM teams WHERE name=$1`
	var team domain.Team
	if err := r.q.QueryRow(ctx, query, name).Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]domain.Team, error) {
	const query = `SELECT id, name, description, created_at FROM teams ORDER BY name`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}
