package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// UserFilter narrows user scans. Zero values do not filter.
type UserFilter struct {
	Role       *domain.UserRole
	TeamID     *string
	ActiveOnly bool
}

// Matches evaluates the filter against a user in memory.
func (f UserFilter) Matches(u *domain.User) bool {
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.TeamID != nil && (u.TeamID == nil || *u.TeamID != *f.TeamID) {
		return false
	}
	if f.ActiveOnly && !u.IsActive {
		return false
	}
	return true
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
}

const userTable = "users"

var userColumns = []string{
	"id", "full_name", "email", "password_hash", "role", "team_id", "department", "preferences",
	"is_active", "created_at", "updated_at",
}

type userRepository struct {
	q Querier
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query, args, err := psql().Insert(userTable).
		Columns(userColumns...).
		Values(
			user.ID,
			user.FullName,
			user.Email,
			user.PasswordHash,
			user.Role,
			user.TeamID,
			user.Department,
			preferencesValue(user.Preferences),
			user.IsActive,
			user.CreatedAt,
			user.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build user insert: %w", err)
	}
	_, err = r.q.Exec(ctx, query, args...)
	return err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET full_name=$1, email=$2, password_hash=$3, role=$4, team_id=$5, department=$6,
            preferences=$7, is_active=$8, updated_at=$9
        WHERE id=$10`

	cmd, err := r.q.Exec(ctx, query,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TeamID,
		user.Department,
		preferencesValue(user.Preferences),
		user.IsActive,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, sq.Expr("LOWER(email) = LOWER(?)", email))
}

func (r *userRepository) findOne(ctx context.Context, where sq.Sqlizer) (*domain.User, error) {
	query, args, err := psql().Select(userColumns...).From(userTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user select: %w", err)
	}
	return scanUser(r.q.QueryRow(ctx, query, args...))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	builder := psql().Select(userColumns...).From(userTable).OrderBy("created_at ASC", "id")
	if filter.Role != nil {
		builder = builder.Where(sq.Eq{"role": *filter.Role})
	}
	if filter.TeamID != nil {
		builder = builder.Where(sq.Eq{"team_id": *filter.TeamID})
	}
	if filter.ActiveOnly {
		builder = builder.Where(sq.Eq{"is_active": true})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user list: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.TeamID,
		&user.Department,
		&user.Preferences,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// preferencesValue stores an absent preference set as an empty JSON object.
func preferencesValue(prefs map[string]any) map[string]any {
	if prefs == nil {
		return map[string]any{}
	}
	return prefs
}
