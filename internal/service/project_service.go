package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/notify"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

const maxProjectNameLength = 100

// ProjectDateLayout is the wire and display format of project dates.
const ProjectDateLayout = "2006-01-02"

// ProjectService manages projects. Any signed-in user may read them; only admins write.
type ProjectService struct {
	store  repository.Store
	mailer notify.Mailer
	logger *zap.Logger
	now    Clock
}

// ProjectDependencies bundles collaborators for the project service.
type ProjectDependencies struct {
	Store  repository.Store
	Mailer notify.Mailer
	Logger *zap.Logger
	Clock  Clock
}

// ProjectInput describes a new project. Members are user ids, emails or full names.
type ProjectInput struct {
	Name        string
	Description string
	Status      domain.ProjectStatus
	Priority    domain.TicketPriority
	StartDate   *time.Time
	Deadline    *time.Time
	Progress    int
	Members     []string
}

// ProjectPatch is a partial project update. Nil fields are left unchanged; a non-nil Members
// replaces the whole member list.
type ProjectPatch struct {
	Name           *string
	Description    *string
	Status         *domain.ProjectStatus
	Priority       *domain.TicketPriority
	StartDate      *time.Time
	ClearStartDate bool
	Deadline       *time.Time
	ClearDeadline  bool
	Progress       *int
	Members        []string
}

// NewProjectService constructs the service.
func NewProjectService(deps ProjectDependencies) *ProjectService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &ProjectService{store: deps.Store, mailer: deps.Mailer, logger: logger, now: now}
}

// ListProjects returns every project, newest first.
func (s *ProjectService) ListProjects(ctx context.Context, actor *domain.User) ([]domain.Project, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	projects, err := s.store.Repositories().Projects.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return projects, nil
}

// GetProject returns one project.
func (s *ProjectService) GetProject(ctx context.Context, actor *domain.User, projectID string) (*domain.Project, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	project, err := s.store.Repositories().Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, storeError(err, "project", projectID)
	}
	return project, nil
}

// CreateProject stores a project and emails the creator and every member.
func (s *ProjectService) CreateProject(ctx context.Context, actor *domain.User, input ProjectInput) (*domain.Project, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	project := &domain.Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		StartDate:   dateOnly(input.StartDate),
		Deadline:    dateOnly(input.Deadline),
		Progress:    input.Progress,
		CreatedByID: actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if project.Status == "" {
		project.Status = domain.ProjectStatusPlanning
	}
	if project.Priority == "" {
		project.Priority = domain.TicketPriorityMedium
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	var members []domain.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		members, err = resolveMembers(ctx, repos, input.Members)
		if err != nil {
			return err
		}
		project.MemberIDs = memberIDs(members)
		return repos.Projects.Create(ctx, project)
	})
	if err != nil {
		return nil, storeError(err, "project", project.ID)
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("user_id", actor.ID),
		zap.Int("members", len(members)))
	s.sendEmail(ctx, project, actor, fmt.Sprintf("Project Created - %s", project.Name),
		fmt.Sprintf("Hello %s,\n\nThe project \"%s\" has been created.\nStart date: %s\nDeadline: %s\n",
			displayName(actor), project.Name, formatProjectDate(project.StartDate), formatProjectDate(project.Deadline)))
	s.announceMembers(ctx, project, actor, members)
	return project, nil
}

// UpdateProject applies patch. Completed projects are frozen: every edit, including a status
// change, fails with InvalidState. Only members added by the patch are emailed.
func (s *ProjectService) UpdateProject(ctx context.Context, actor *domain.User, projectID string, patch ProjectPatch) (*domain.Project, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var (
		project *domain.Project
		added   []domain.User
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		project, err = repos.Projects.GetByID(ctx, projectID)
		if err != nil {
			return storeError(err, "project", projectID)
		}
		if project.Frozen() {
			return apperrors.NewInvalidState("cannot edit a completed project",
				map[string]any{"project_id": projectID, "status": project.Status})
		}

		if patch.Name != nil {
			project.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			project.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Status != nil {
			project.Status = *patch.Status
		}
		if patch.Priority != nil {
			project.Priority = *patch.Priority
		}
		if patch.ClearStartDate {
			project.StartDate = nil
		} else if patch.StartDate != nil {
			project.StartDate = dateOnly(patch.StartDate)
		}
		if patch.ClearDeadline {
			project.Deadline = nil
		} else if patch.Deadline != nil {
			project.Deadline = dateOnly(patch.Deadline)
		}
		if patch.Progress != nil {
			project.Progress = *patch.Progress
		}
		if err := validateProject(project); err != nil {
			return err
		}

		if patch.Members != nil {
			members, err := resolveMembers(ctx, repos, patch.Members)
			if err != nil {
				return err
			}
			for _, member := range members {
				if !project.HasMember(member.ID) {
					added = append(added, member)
				}
			}
			project.MemberIDs = memberIDs(members)
		}

		project.UpdatedAt = s.now().UTC()
		return repos.Projects.Update(ctx, project)
	})
	if err != nil {
		return nil, storeError(err, "project", projectID)
	}

	s.announceMembers(ctx, project, actor, added)
	return project, nil
}

// DeleteProject removes a project and its member list.
func (s *ProjectService) DeleteProject(ctx context.Context, actor *domain.User, projectID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		return repos.Projects.Delete(ctx, projectID)
	})
	if err != nil {
		return storeError(err, "project", projectID)
	}
	s.logger.Info("project deleted", zap.String("project_id", projectID), zap.String("user_id", actor.ID))
	return nil
}

func validateProject(p *domain.Project) error {
	if p.Name == "" {
		return apperrors.NewValidationError("project name is required", nil)
	}
	if len(p.Name) > maxProjectNameLength {
		return apperrors.NewValidationError("project name is too long",
			map[string]any{"max_length": maxProjectNameLength})
	}
	if !p.Status.Valid() {
		return apperrors.NewValidationError("unknown project status", map[string]any{"status": p.Status})
	}
	if !p.Priority.Valid() {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": p.Priority})
	}
	if p.Progress < 0 || p.Progress > domain.MaxProjectProgress {
		return apperrors.NewValidationError("progress must be between 0 and 100",
			map[string]any{"progress": p.Progress})
	}
	if p.StartDate != nil && p.Deadline != nil && p.Deadline.Before(*p.StartDate) {
		return apperrors.NewValidationError("deadline precedes the start date", map[string]any{
			"start_date": formatProjectDate(p.StartDate),
			"deadline":   formatProjectDate(p.Deadline),
		})
	}
	return nil
}

// resolveMembers looks each identifier up as a user id, then an email, then a full name.
// Duplicates collapse to one member; any identifier matching no account fails the call.
func resolveMembers(ctx context.Context, repos repository.Repositories, identifiers []string) ([]domain.User, error) {
	var (
		members    []domain.User
		unresolved []string
		everyone   []domain.User
		loaded     bool
	)
	seen := map[string]bool{}
	for _, raw := range identifiers {
		identifier := strings.TrimSpace(raw)
		if identifier == "" {
			continue
		}
		user, err := lookupMember(ctx, repos, identifier)
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
		if user == nil {
			if !loaded {
				if everyone, err = repos.Users.List(ctx, repository.UserFilter{}); err != nil {
					return nil, err
				}
				loaded = true
			}
			for i := range everyone {
				if strings.EqualFold(everyone[i].FullName, identifier) {
					user = &everyone[i]
					break
				}
			}
		}
		if user == nil {
			unresolved = append(unresolved, identifier)
			continue
		}
		if !seen[user.ID] {
			seen[user.ID] = true
			members = append(members, *user)
		}
	}
	if len(unresolved) > 0 {
		return nil, apperrors.NewValidationError("unknown project members",
			map[string]any{"members": unresolved})
	}
	return members, nil
}

func lookupMember(ctx context.Context, repos repository.Repositories, identifier string) (*domain.User, error) {
	if _, err := uuid.Parse(identifier); err == nil {
		return repos.Users.GetByID(ctx, identifier)
	}
	if strings.Contains(identifier, "@") {
		return repos.Users.GetByEmail(ctx, normalizeEmail(identifier))
	}
	return nil, nil
}

func memberIDs(members []domain.User) []string {
	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
	}
	return ids
}

func (s *ProjectService) announceMembers(ctx context.Context, project *domain.Project, actor *domain.User, members []domain.User) {
	for i := range members {
		member := &members[i]
		if member.ID == actor.ID {
			continue
		}
		s.sendEmail(ctx, project, member, fmt.Sprintf("New Project Assignment - %s", project.Name),
			fmt.Sprintf("Hello %s,\n\nYou have been added to the project \"%s\" as a team member.\n"+
				"Start date: %s\nDeadline: %s\n",
				displayName(member), project.Name, formatProjectDate(project.StartDate), formatProjectDate(project.Deadline)))
	}
}

func (s *ProjectService) sendEmail(ctx context.Context, project *domain.Project, recipient *domain.User, subject, body string) {
	if s.mailer == nil || strings.TrimSpace(recipient.Email) == "" {
		return
	}
	if err := s.mailer.Send(ctx, notify.Email{To: recipient.Email, Subject: subject, Body: body}); err != nil {
		s.logger.Warn("project email failed",
			zap.String("project_id", project.ID),
			zap.String("user_id", recipient.ID),
			zap.String("subject", subject),
			zap.Error(err))
	}
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	out := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &out
}

func formatProjectDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(ProjectDateLayout)
}
