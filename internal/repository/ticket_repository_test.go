package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
)

var errNoDatabase = errors.New("no database")

type recordedCall struct {
	sql  string
	args []any
}

// recordingQuerier captures statements instead of running them.
type recordingQuerier struct {
	calls []recordedCall
}

func (q *recordingQuerier) record(sql string, args []any) {
	q.calls = append(q.calls, recordedCall{sql: sql, args: args})
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.record(sql, args)
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (q *recordingQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.record(sql, args)
	return nil, errNoDatabase
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.record(sql, args)
	return emptyRow{}
}

type emptyRow struct{}

func (emptyRow) Scan(...any) error { return pgx.ErrNoRows }

func (q *recordingQuerier) last(t *testing.T) recordedCall {
	t.Helper()
	require.NotEmpty(t, q.calls)
	return q.calls[len(q.calls)-1]
}

func TestTicketListQueryScopesToTeamOrAssignee(t *testing.T) {
	team, staff := "team-1", "staff-1"
	query, args, err := ticketListQuery(TicketFilter{
		TeamID:         &team,
		AssignedToID:   &staff,
		TeamOrAssignee: true,
		Statuses:       []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		Limit:          10,
		Offset:         20,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM tickets WHERE (team_id = $1 OR assigned_to_id = $2) AND status IN ($3,$4)")
	assert.Contains(t, query, "ORDER BY created_at DESC, id LIMIT 10 OFFSET 20")
	assert.Equal(t, []any{team, staff, domain.TicketStatusOpen, domain.TicketStatusInProgress}, args)
}

func TestTicketListQueryWithoutTeamOrAssigneeMatchesNothing(t *testing.T) {
	query, args, err := ticketListQuery(TicketFilter{TeamOrAssignee: true}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE (FALSE)")
	assert.Empty(t, args)
}

func TestTicketListQueryRequiresBothWhenNotScoped(t *testing.T) {
	team, staff := "team-1", "staff-1"
	query, _, err := ticketListQuery(TicketFilter{TeamID: &team, AssignedToID: &staff}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE team_id = $1 AND assigned_to_id = $2")
	assert.NotContains(t, query, " OR ")
}

func TestTicketListQueryActiveSinceMatchesCreatedOrUpdated(t *testing.T) {
	creator := "emp-1"
	since := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	before := since.Add(48 * time.Hour)
	query, args, err := ticketListQuery(TicketFilter{
		CreatedByID:   &creator,
		ActiveSince:   &since,
		UpdatedBefore: &before,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "WHERE created_by_id = $1 AND (created_at >= $2 OR updated_at >= $3) AND updated_at < $4")
	assert.Equal(t, []any{creator, since, since, before}, args)
	assert.NotContains(t, query, "LIMIT")
}

func TestTicketListQuerySearchesTitleAndDescription(t *testing.T) {
	term := "  printer "
	query, args, err := ticketListQuery(TicketFilter{SearchTerm: &term}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE (title ILIKE $1 OR description ILIKE $2)")
	assert.Equal(t, []any{"%printer%", "%printer%"}, args)
}

func TestTicketRepositoryStatements(t *testing.T) {
	ctx := context.Background()

	t.Run("get for update locks the row", func(t *testing.T) {
		q := &recordingQuerier{}
		repo := &ticketRepository{q: q}
		_, err := repo.GetByIDForUpdate(ctx, "ticket-1")
		assert.True(t, IsNotFound(err))

		call := q.last(t)
		assert.Contains(t, call.sql, "FROM tickets WHERE id = $1 FOR UPDATE")
		assert.Equal(t, []any{"ticket-1"}, call.args)
	})

	t.Run("plain get does not lock", func(t *testing.T) {
		q := &recordingQuerier{}
		_, err := (&ticketRepository{q: q}).GetByID(ctx, "ticket-1")
		assert.True(t, IsNotFound(err))
		assert.NotContains(t, q.last(t).sql, "FOR UPDATE")
	})

	t.Run("assignee lock is transaction scoped", func(t *testing.T) {
		q := &recordingQuerier{}
		require.NoError(t, (&ticketRepository{q: q}).LockAssignee(ctx, "staff-1"))
		call := q.last(t)
		assert.Equal(t, "SELECT pg_advisory_xact_lock(hashtext($1))", call.sql)
		assert.Equal(t, []any{"staff-1"}, call.args)
	})

	t.Run("workload count filters assignee and status", func(t *testing.T) {
		q := &recordingQuerier{}
		_, err := (&ticketRepository{q: q}).CountByAssigneeAndStatus(ctx, "staff-1", domain.TicketStatusInProgress)
		assert.True(t, IsNotFound(err))
		call := q.last(t)
		assert.Equal(t, "SELECT COUNT(*) FROM tickets WHERE assigned_to_id = $1 AND status = $2", call.sql)
		assert.Equal(t, []any{"staff-1", domain.TicketStatusInProgress}, call.args)
	})

	t.Run("update of a missing row reports not found", func(t *testing.T) {
		q := &recordingQuerier{}
		err := (&ticketRepository{q: q}).Update(ctx, &domain.Ticket{ID: "ticket-1", Status: domain.TicketStatusOpen})
		assert.True(t, IsNotFound(err))
		assert.Contains(t, q.last(t).sql, "UPDATE tickets SET ")
	})

	t.Run("list surfaces query errors", func(t *testing.T) {
		q := &recordingQuerier{}
		_, err := (&ticketRepository{q: q}).List(ctx, TicketFilter{})
		assert.ErrorIs(t, err, errNoDatabase)
		assert.Contains(t, q.last(t).sql, "ORDER BY created_at DESC, id")
	})
}
