package memory

import (
	"context"
	"sort"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/repository"
)

type projectRepository struct {
	do access
}

func (r *projectRepository) Create(_ context.Context, project *domain.Project) error {
	return r.do(func(st *state) error {
		if _, exists := st.projects[project.ID]; exists {
			return ErrDuplicate
		}
		st.projects[project.ID] = cloneProject(*project)
		return nil
	})
}

func (r *projectRepository) Update(_ context.Context, project *domain.Project) error {
	return r.do(func(st *state) error {
		existing, ok := st.projects[project.ID]
		if !ok {
			return repository.ErrNotFound
		}
		updated := cloneProject(*project)
		updated.CreatedByID = existing.CreatedByID
		updated.CreatedAt = existing.CreatedAt
		st.projects[project.ID] = updated
		return nil
	})
}

func (r *projectRepository) Delete(_ context.Context, id string) error {
	return r.do(func(st *state) error {
		if _, ok := st.projects[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.projects, id)
		return nil
	})
}

func (r *projectRepository) GetByID(_ context.Context, id string) (*domain.Project, error) {
	var out *domain.Project
	err := r.do(func(st *state) error {
		project, ok := st.projects[id]
		if !ok {
			return repository.ErrNotFound
		}
		copied := cloneProject(project)
		out = &copied
		return nil
	})
	return out, err
}

func (r *projectRepository) List(context.Context) ([]domain.Project, error) {
	var result []domain.Project
	err := r.do(func(st *state) error {
		for _, project := range st.projects {
			result = append(result, cloneProject(project))
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, err
}

type contactMessageRepository struct {
	do access
}

func (r *contactMessageRepository) Create(_ context.Context, msg *domain.ContactMessage) error {
	return r.do(func(st *state) error {
		for _, existing := range st.messages {
			if existing.ID == msg.ID {
				return ErrDuplicate
			}
		}
		st.messages = append(st.messages, *msg)
		return nil
	})
}

func (r *contactMessageRepository) List(_ context.Context, unreadOnly bool) ([]domain.ContactMessage, error) {
	var result []domain.ContactMessage
	err := r.do(func(st *state) error {
		for _, msg := range st.messages {
			if unreadOnly && msg.IsRead {
				continue
			}
			result = append(result, msg)
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, err
}

func (r *contactMessageRepository) MarkRead(_ context.Context, id string) error {
	return r.do(func(st *state) error {
		for i := range st.messages {
			if st.messages[i].ID == id {
				st.messages[i].IsRead = true
				return nil
			}
		}
		return repository.ErrNotFound
	})
}
