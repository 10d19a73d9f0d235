package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

func newProjectService(env *testEnv, mailer *recordingMailer) *ProjectService {
	return NewProjectService(ProjectDependencies{Store: env.store, Mailer: mailer, Clock: env.clock.Now})
}

func projectDay(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
	return &t
}

func TestProjectWritesAreAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := newProjectService(env, &recordingMailer{})
	employee := env.user("dana", domain.UserRoleEmployee, nil)
	staff := env.user("sam", domain.UserRoleITStaff, nil)

	for _, actor := range []*domain.User{employee, staff} {
		_, err := svc.CreateProject(env.ctx, actor, ProjectInput{Name: "Laptop refresh"})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	}

	admin := env.user("admin", domain.UserRoleAdmin, nil)
	project, err := svc.CreateProject(env.ctx, admin, ProjectInput{Name: "Laptop refresh"})
	require.NoError(t, err)

	_, err = svc.UpdateProject(env.ctx, employee, project.ID, ProjectPatch{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteProject(env.ctx, staff, project.ID), apperrors.ErrForbidden)

	listed, err := svc.ListProjects(env.ctx, employee)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	got, err := svc.GetProject(env.ctx, staff, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop refresh", got.Name)
}

func TestCreateProjectDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newProjectService(env, &recordingMailer{})
	admin := env.user("admin", domain.UserRoleAdmin, nil)

	project, err := svc.CreateProject(env.ctx, admin, ProjectInput{
		Name:      "  Office move ",
		StartDate: projectDay(2024, time.April, 1),
		Deadline:  projectDay(2024, time.May, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Office move", project.Name)
	assert.Equal(t, domain.ProjectStatusPlanning, project.Status)
	assert.Equal(t, domain.TicketPriorityMedium, project.Priority)
	assert.Equal(t, admin.ID, project.CreatedByID)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), *project.StartDate)
	assert.Empty(t, project.MemberIDs)

	cases := map[string]ProjectInput{
		"missing name":       {Name: "   "},
		"name too long":      {Name: strings.Repeat("x", maxProjectNameLength+1)},
		"unknown status":     {Name: "x", Status: "ARCHIVED"},
		"unknown priority":   {Name: "x", Priority: "URGENT"},
		"progress too large": {Name: "x", Progress: 101},
		"negative progress":  {Name: "x", Progress: -1},
		"deadline precedes start": {
			Name: "x", StartDate: projectDay(2024, time.May, 2), Deadline: projectDay(2024, time.May, 1),
		},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProject(env.ctx, admin, input)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	listed, err := svc.ListProjects(env.ctx, admin)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestProjectMembersResolveByIDEmailOrName(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{}
	svc := newProjectService(env, mailer)
	admin := env.user("admin", domain.UserRoleAdmin, nil)
	dana := env.user("dana", domain.UserRoleEmployee, nil)
	sam := env.user("sam", domain.UserRoleITStaff, nil)
	lee := env.user("lee", domain.UserRoleEmployee, nil)

	project, err := svc.CreateProject(env.ctx, admin, ProjectInput{
		Name:    "Office move",
		Members: []string{dana.ID, "SAM@example.com", "Lee", "dana@example.com", admin.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{dana.ID, sam.ID, lee.ID, admin.ID}, project.MemberIDs)

	created := mailer.bySubjectPrefix("Project Created - Office move")
	require.Len(t, created, 1)
	assert.Equal(t, admin.Email, created[0].To)
	assigned := mailer.bySubjectPrefix("New Project Assignment - Office move")
	assert.Len(t, assigned, 3, "the creating admin is not announced as a member")

	_, err = svc.CreateProject(env.ctx, admin, ProjectInput{
		Name:    "Ghost team",
		Members: []string{dana.ID, "nobody@example.com", "Nobody"},
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, []string{"nobody@example.com", "Nobody"}, domainErr.Details["members"])

	listed, err := svc.ListProjects(env.ctx, admin)
	require.NoError(t, err)
	assert.Len(t, listed, 1, "a failed member lookup stores nothing")
}

func TestUpdateProjectAnnouncesOnlyNewMembers(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{}
	svc := newProjectService(env, mailer)
	admin := env.user("admin", domain.UserRoleAdmin, nil)
	dana := env.user("dana", domain.UserRoleEmployee, nil)
	sam := env.user("sam", domain.UserRoleITStaff, nil)

	project, err := svc.CreateProject(env.ctx, admin, ProjectInput{Name: "Office move", Members: []string{dana.ID}})
	require.NoError(t, err)
	require.Len(t, mailer.bySubjectPrefix("New Project Assignment"), 1)

	env.clock.Advance(time.Hour)
	progress := 40
	name := "HQ move"
	updated, err := svc.UpdateProject(env.ctx, admin, project.ID, ProjectPatch{
		Name:     &name,
		Progress: &progress,
		Members:  []string{dana.ID, sam.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "HQ move", updated.Name)
	assert.Equal(t, 40, updated.Progress)
	assert.Equal(t, []string{dana.ID, sam.ID}, updated.MemberIDs)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	assigned := mailer.bySubjectPrefix("New Project Assignment - HQ move")
	require.Len(t, assigned, 1)
	assert.Equal(t, sam.Email, assigned[0].To)

	updated, err = svc.UpdateProject(env.ctx, admin, project.ID, ProjectPatch{Members: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.MemberIDs)
}

func TestUpdateProjectDates(t *testing.T) {
	env := newTestEnv(t)
	svc := newProjectService(env, &recordingMailer{})
	admin := env.user("admin", domain.UserRoleAdmin, nil)
	project, err := svc.CreateProject(env.ctx, admin, ProjectInput{
		Name: "Office move", StartDate: projectDay(2024, time.April, 1), Deadline: projectDay(2024, time.May, 1),
	})
	require.NoError(t, err)

	_, err = svc.UpdateProject(env.ctx, admin, project.ID, ProjectPatch{Deadline: projectDay(2024, time.March, 1)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	updated, err := svc.UpdateProject(env.ctx, admin, project.ID, ProjectPatch{ClearStartDate: true, Deadline: projectDay(2024, time.March, 1)})
	require.NoError(t, err)
	assert.Nil(t, updated.StartDate)
	assert.Equal(t, "2024-03-01", formatProjectDate(updated.Deadline))

	updated, err = svc.UpdateProject(env.ctx, admin, project.ID, ProjectPatch{ClearDeadline: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Deadline)
	assert.Equal(t, "N/A", formatProjectDate(updated.Deadline))
}

func TestCompletedProjectIsFrozen(t *testing.T) {
	env := newTestEnv(t)
	svc := newProjectService(env, &recordingMailer{})
	admin := env.user("admin", domain.UserRoleAdmin, nil)
	project, err := svc.CreateProject(env.ctx, admin, ProjectInput{Name: "Office move"})
	require.NoError(t, err)

	completed := domain.ProjectStatusCompleted
	_, err = svc.UpdateProject(env.ctx, admin, project.ID, ProjectPatch{Status: &completed})
	require.NoError(t, err)

	reopened := domain.ProjectStatusActive
	_, err = svc.UpdateProject(env.ctx, admin, project.ID, ProjectPatch{Status: &reopened})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	name := "Renamed"
	_, err = svc.UpdateProject(env.ctx, admin, project.ID, ProjectPatch{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	got, err := svc.GetProject(env.ctx, admin, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusCompleted, got.Status)
	assert.Equal(t, "Office move", got.Name)

	require.NoError(t, svc.DeleteProject(env.ctx, admin, project.ID))
}

func TestMissingProjectIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := newProjectService(env, &recordingMailer{})
	admin := env.user("admin", domain.UserRoleAdmin, nil)

	_, err := svc.GetProject(env.ctx, admin, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.UpdateProject(env.ctx, admin, "missing", ProjectPatch{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProject(env.ctx, admin, "missing"), apperrors.ErrNotFound)
}
