package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// TicketFilter captures ticket scan parameters. Zero values do not filter.
type TicketFilter struct {
	CreatedByID  *string
	AssignedToID *string
	TeamID       *string
	// TeamOrAssignee matches tickets routed to TeamID or assigned to AssignedToID
	// instead of requiring both.
	TeamOrAssignee bool
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	Category       *string
	TitleContains  *string
	SearchTerm     *string
	// ActiveSince keeps tickets created or updated at or after the instant.
	ActiveSince   *time.Time
	UpdatedBefore *time.Time
	Limit         int
	Offset        int
}

// Matches evaluates the filter against a ticket in memory.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.CreatedByID != nil && t.CreatedByID != *f.CreatedByID {
		return false
	}
	if f.TeamOrAssignee {
		inTeam := f.TeamID != nil && t.InTeam(*f.TeamID)
		assigned := f.AssignedToID != nil && t.IsAssignedTo(*f.AssignedToID)
		if !inTeam && !assigned {
			return false
		}
	} else {
		if f.TeamID != nil && !t.InTeam(*f.TeamID) {
			return false
		}
		if f.AssignedToID != nil && !t.IsAssignedTo(*f.AssignedToID) {
			return false
		}
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.TitleContains != nil {
		if !strings.Contains(strings.ToLower(t.Title), strings.ToLower(strings.TrimSpace(*f.TitleContains))) {
			return false
		}
	}
	if f.SearchTerm != nil && strings.TrimSpace(*f.SearchTerm) != "" {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		if !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
	}
	if f.ActiveSince != nil && t.CreatedAt.Before(*f.ActiveSince) && t.UpdatedAt.Before(*f.ActiveSince) {
		return false
	}
	if f.UpdatedBefore != nil && !t.UpdatedAt.Before(*f.UpdatedBefore) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate reads the ticket and holds a row lock until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	// LockAssignee serializes workload checks for one assignee until the transaction ends.
	LockAssignee(ctx context.Context, assigneeID string) error
	CountByAssigneeAndStatus(ctx context.Context, assigneeID string, status domain.TicketStatus) (int, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

const ticketTable = "tickets"

var ticketColumns = []string{
	"id", "title", "description", "category", "status", "priority",
	"created_by_id", "assigned_to_id", "team_id", "created_at", "updated_at",
}

type ticketRepository struct {
	q Querier
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query, args, err := psql().Insert(ticketTable).
		Columns(ticketColumns...).
		Values(
			ticket.ID,
			ticket.Title,
			ticket.Description,
			ticket.Category,
			ticket.Status,
			ticket.Priority,
			ticket.CreatedByID,
			ticket.AssignedToID,
			ticket.TeamID,
			ticket.CreatedAt,
			ticket.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build ticket insert: %w", err)
	}
	_, err = r.q.Exec(ctx, query, args...)
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	query, args, err := psql().Update(ticketTable).
		SetMap(map[string]any{
			"title":          ticket.Title,
			"description":    ticket.Description,
			"category":       ticket.Category,
			"status":         ticket.Status,
			"priority":       ticket.Priority,
			"assigned_to_id": ticket.AssignedToID,
			"team_id":        ticket.TeamID,
			"updated_at":     ticket.UpdatedAt,
		}).
		Where(sq.Eq{"id": ticket.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build ticket update: %w", err)
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

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query, args, err := psql().Select(ticketColumns...).From(ticketTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ticket select: %w", err)
	}
	return scanTicket(r.q.QueryRow(ctx, query, args...))
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query, args, err := psql().Select(ticketColumns...).From(ticketTable).Where(sq.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ticket select: %w", err)
	}
	return scanTicket(r.q.QueryRow(ctx, query, args...))
}

func (r *ticketRepository) LockAssignee(ctx context.Context, assigneeID string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, assigneeID)
	return err
}

func (r *ticketRepository) CountByAssigneeAndStatus(ctx context.Context, assigneeID string, status domain.TicketStatus) (int, error) {
	query, args, err := psql().Select("COUNT(*)").From(ticketTable).
		Where(sq.Eq{"assigned_to_id": assigneeID, "status": status}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build ticket count: %w", err)
	}
	var count int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args, err := ticketListQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ticket list: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ticketListQuery translates filter into the SELECT that List runs.
func ticketListQuery(filter TicketFilter) sq.SelectBuilder {
	builder := psql().Select(ticketColumns...).From(ticketTable)

	if filter.CreatedByID != nil {
		builder = builder.Where(sq.Eq{"created_by_id": *filter.CreatedByID})
	}
	if filter.TeamOrAssignee {
		or := sq.Or{}
		if filter.TeamID != nil {
			or = append(or, sq.Eq{"team_id": *filter.TeamID})
		}
		if filter.AssignedToID != nil {
			or = append(or, sq.Eq{"assigned_to_id": *filter.AssignedToID})
		}
		if len(or) == 0 {
			or = append(or, sq.Expr("FALSE"))
		}
		builder = builder.Where(or)
	} else {
		if filter.TeamID != nil {
			builder = builder.Where(sq.Eq{"team_id": *filter.TeamID})
		}
		if filter.AssignedToID != nil {
			builder = builder.Where(sq.Eq{"assigned_to_id": *filter.AssignedToID})
		}
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if len(filter.Priorities) > 0 {
		builder = builder.Where(sq.Eq{"priority": filter.Priorities})
	}
	if filter.Category != nil {
		builder = builder.Where(sq.Eq{"category": *filter.Category})
	}
	if filter.TitleContains != nil {
		builder = builder.Where(sq.ILike{"title": "%" + strings.TrimSpace(*filter.TitleContains) + "%"})
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.TrimSpace(*filter.SearchTerm) + "%"
		builder = builder.Where(sq.Or{sq.ILike{"title": search}, sq.ILike{"description": search}})
	}
	if filter.ActiveSince != nil {
		builder = builder.Where(sq.Or{
			sq.GtOrEq{"created_at": *filter.ActiveSince},
			sq.GtOrEq{"updated_at": *filter.ActiveSince},
		})
	}
	if filter.UpdatedBefore != nil {
		builder = builder.Where(sq.Lt{"updated_at": *filter.UpdatedBefore})
	}

	builder = builder.OrderBy("created_at DESC", "id")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	return builder
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedByID,
		&ticket.AssignedToID,
		&ticket.TeamID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
