package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

func TestContactSubmitForwardsToInbox(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{}
	svc := NewContactService(ContactDependencies{Store: env.store, Mailer: mailer, Inbox: " admin@example.com ", Clock: env.clock.Now})

	msg, err := svc.Submit(env.ctx, ContactInput{
		Name: " Visitor ", Email: "Visitor@Example.com", Subject: "Pricing", Message: "Do you offer a trial?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Visitor", msg.Name)
	assert.Equal(t, "visitor@example.com", msg.Email)
	assert.False(t, msg.IsRead)
	assert.Equal(t, baseTime, msg.CreatedAt)

	forwarded := mailer.bySubjectPrefix("Contact Form: Pricing")
	require.Len(t, forwarded, 1)
	assert.Equal(t, "admin@example.com", forwarded[0].To)
	assert.Contains(t, forwarded[0].Body, "Do you offer a trial?")
	assert.Contains(t, forwarded[0].Body, "visitor@example.com")
}

func TestContactSubmitSurvivesMailerFailure(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc := NewContactService(ContactDependencies{Store: env.store, Mailer: mailer, Inbox: "admin@example.com"})

	_, err := svc.Submit(env.ctx, ContactInput{Name: "Visitor", Email: "visitor@example.com", Message: "Hello"})
	require.NoError(t, err)

	stored, err := env.repos().Messages.List(env.ctx, false)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestContactSubmitWithoutInboxSkipsForward(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{}
	svc := NewContactService(ContactDependencies{Store: env.store, Mailer: mailer})

	_, err := svc.Submit(env.ctx, ContactInput{Name: "Visitor", Email: "visitor@example.com", Message: "Hello"})
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestContactSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewContactService(ContactDependencies{Store: env.store})

	cases := map[string]ContactInput{
		"missing name":    {Email: "visitor@example.com", Message: "Hello"},
		"missing message": {Name: "Visitor", Email: "visitor@example.com", Message: "   "},
		"bad email":       {Name: "Visitor", Email: "not-an-address", Message: "Hello"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(env.ctx, input)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestContactInboxIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := NewContactService(ContactDependencies{Store: env.store, Clock: env.clock.Now})
	admin := env.user("admin", domain.UserRoleAdmin, nil)
	staff := env.user("sam", domain.UserRoleITStaff, nil)

	first, err := svc.Submit(env.ctx, ContactInput{Name: "A", Email: "a@example.com", Message: "first"})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = svc.Submit(env.ctx, ContactInput{Name: "B", Email: "b@example.com", Message: "second"})
	require.NoError(t, err)

	_, err = svc.ListMessages(env.ctx, staff, false)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.ErrorIs(t, svc.MarkRead(env.ctx, staff, first.ID), apperrors.ErrForbidden)

	messages, err := svc.ListMessages(env.ctx, admin, false)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", messages[0].Body)

	require.NoError(t, svc.MarkRead(env.ctx, admin, first.ID))
	unread, err := svc.ListMessages(env.ctx, admin, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "second", unread[0].Body)

	assert.ErrorIs(t, svc.MarkRead(env.ctx, admin, "missing"), apperrors.ErrNotFound)
}
