package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
)

func TestProjectSelectAggregatesMembersInOrder(t *testing.T) {
	query, args, err := projectSelect().Where("id = ?", "p-1").ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "array_agg(pm.user_id::text ORDER BY pm.position)")
	assert.Contains(t, query, "AS member_ids FROM projects WHERE id = $1")
	assert.Equal(t, []any{"p-1"}, args)
}

func TestProjectRepositoryStatements(t *testing.T) {
	ctx := context.Background()

	t.Run("create writes members with their positions", func(t *testing.T) {
		q := &recordingQuerier{}
		err := (&projectRepository{q: q}).Create(ctx, &domain.Project{ID: "p-1", MemberIDs: []string{"u-2", "u-1"}})
		require.NoError(t, err)
		require.Len(t, q.calls, 2)
		assert.Contains(t, q.calls[0].sql, "INSERT INTO projects (id,name,description,status,priority,start_date,deadline,progress,created_by_id,created_at,updated_at)")
		assert.Equal(t, "INSERT INTO project_members (project_id,user_id,position) VALUES ($1,$2,$3),($4,$5,$6)", q.calls[1].sql)
		assert.Equal(t, []any{"p-1", "u-2", 0, "p-1", "u-1", 1}, q.calls[1].args)
	})

	t.Run("create without members skips the member insert", func(t *testing.T) {
		q := &recordingQuerier{}
		require.NoError(t, (&projectRepository{q: q}).Create(ctx, &domain.Project{ID: "p-1"}))
		assert.Len(t, q.calls, 1)
	})

	t.Run("update of a missing project stops before touching members", func(t *testing.T) {
		q := &recordingQuerier{}
		err := (&projectRepository{q: q}).Update(ctx, &domain.Project{ID: "p-1", MemberIDs: []string{"u-1"}})
		assert.True(t, IsNotFound(err))
		require.Len(t, q.calls, 1)
		assert.Contains(t, q.calls[0].sql, "UPDATE projects SET ")
	})

	t.Run("delete of a missing project reports not found", func(t *testing.T) {
		q := &recordingQuerier{}
		assert.True(t, IsNotFound((&projectRepository{q: q}).Delete(ctx, "p-1")))
		assert.Equal(t, "DELETE FROM projects WHERE id = $1", q.last(t).sql)
	})

	t.Run("get maps a missing row to not found", func(t *testing.T) {
		q := &recordingQuerier{}
		_, err := (&projectRepository{q: q}).GetByID(ctx, "p-1")
		assert.True(t, IsNotFound(err))
	})
}

func TestContactMessageRepositoryStatements(t *testing.T) {
	ctx := context.Background()

	t.Run("unread listing filters on is_read", func(t *testing.T) {
		q := &recordingQuerier{}
		_, err := (&contactMessageRepository{q: q}).List(ctx, true)
		assert.ErrorIs(t, err, errNoDatabase)
		call := q.last(t)
		assert.Contains(t, call.sql, "FROM contact_messages WHERE is_read = $1 ORDER BY created_at DESC")
		assert.Equal(t, []any{false}, call.args)
	})

	t.Run("full listing has no filter", func(t *testing.T) {
		q := &recordingQuerier{}
		_, err := (&contactMessageRepository{q: q}).List(ctx, false)
		assert.ErrorIs(t, err, errNoDatabase)
		assert.NotContains(t, q.last(t).sql, "WHERE")
	})

	t.Run("mark read of a missing message reports not found", func(t *testing.T) {
		q := &recordingQuerier{}
		assert.True(t, IsNotFound((&contactMessageRepository{q: q}).MarkRead(ctx, "m-1")))
		assert.Contains(t, q.last(t).sql, "UPDATE contact_messages SET is_read = $1 WHERE id = $2")
	})
}
