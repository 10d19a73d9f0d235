package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// ProjectRepository persists projects together with their member lists. Create and Update write
// more than one row and belong inside Store.WithinTx.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
}

const (
	projectTable       = "projects"
	projectMemberTable = "project_members"
)

var projectColumns = []string{
	"id", "name", "description", "status", "priority", "start_date", "deadline", "progress",
	"created_by_id", "created_at", "updated_at",
}

const projectMembersColumn = `COALESCE((SELECT array_agg(pm.user_id::text ORDER BY pm.position)
    FROM project_members pm WHERE pm.project_id = projects.id), '{}') AS member_ids`

type projectRepository struct {
	q Querier
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	query, args, err := psql().Insert(projectTable).
		Columns(projectColumns...).
		Values(
			project.ID,
			project.Name,
			project.Description,
			project.Status,
			project.Priority,
			project.StartDate,
			project.Deadline,
			project.Progress,
			project.CreatedByID,
			project.CreatedAt,
			project.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build project insert: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return err
	}
	return r.insertMembers(ctx, project)
}

func (r *projectRepository) Update(ctx context.Context, project *domain.Project) error {
	query, args, err := psql().Update(projectTable).
		SetMap(map[string]any{
			"name":        project.Name,
			"description": project.Description,
			"status":      project.Status,
			"priority":    project.Priority,
			"start_date":  project.StartDate,
			"deadline":    project.Deadline,
			"progress":    project.Progress,
			"updated_at":  project.UpdatedAt,
		}).
		Where(sq.Eq{"id": project.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build project update: %w", err)
	}
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	query, args, err = psql().Delete(projectMemberTable).Where(sq.Eq{"project_id": project.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build project member delete: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return err
	}
	return r.insertMembers(ctx, project)
}

func (r *projectRepository) insertMembers(ctx context.Context, project *domain.Project) error {
	if len(project.MemberIDs) == 0 {
		return nil
	}
	builder := psql().Insert(projectMemberTable).Columns("project_id", "user_id", "position")
	for i, userID := range project.MemberIDs {
		builder = builder.Values(project.ID, userID, i)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build project member insert: %w", err)
	}
	_, err = r.q.Exec(ctx, query, args...)
	return err
}

func (r *projectRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql().Delete(projectTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build project delete: %w", err)
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

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query, args, err := projectSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build project select: %w", err)
	}
	return scanProject(r.q.QueryRow(ctx, query, args...))
}

func (r *projectRepository) List(ctx context.Context) ([]domain.Project, error) {
	query, args, err := projectSelect().OrderBy("created_at DESC", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build project list: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *project)
	}
	return result, rows.Err()
}

func projectSelect() sq.SelectBuilder {
	return psql().Select(append(append([]string(nil), projectColumns...), projectMembersColumn)...).From(projectTable)
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Status,
		&p.Priority,
		&p.StartDate,
		&p.Deadline,
		&p.Progress,
		&p.CreatedByID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.MemberIDs,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
