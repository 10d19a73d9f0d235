package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/repository"
)

type historyRepository struct {
	do access
}

func (r *historyRepository) Append(_ context.Context, entry *domain.StatusHistoryEntry) error {
	return r.do(func(st *state) error {
		if entry.IsCreation() {
			for _, existing := range st.history {
				if existing.TicketID == entry.TicketID && existing.IsCreation() {
					return ErrDuplicate
				}
			}
		}
		st.history = append(st.history, *entry)
		return nil
	})
}

func (r *historyRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusHistoryEntry, error) {
	var result []domain.StatusHistoryEntry
	err := r.do(func(st *state) error {
		for _, entry := range st.history {
			if entry.TicketID == ticketID {
				result = append(result, entry)
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ChangedAt.Before(result[j].ChangedAt)
	})
	return result, err
}

type commentRepository struct {
	do access
}

func (r *commentRepository) Create(_ context.Context, comment *domain.Comment) error {
	return r.do(func(st *state) error {
		for _, existing := range st.comments {
			if existing.ID == comment.ID {
				return ErrDuplicate
			}
		}
		c := *comment
		c.ParentID = cloneString(comment.ParentID)
		st.comments = append(st.comments, c)
		return nil
	})
}

func (r *commentRepository) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	var out *domain.Comment
	err := r.do(func(st *state) error {
		for _, existing := range st.comments {
			if existing.ID == id {
				c := existing
				c.ParentID = cloneString(existing.ParentID)
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *commentRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	var result []domain.Comment
	err := r.do(func(st *state) error {
		for _, c := range st.comments {
			if c.TicketID == ticketID {
				c.ParentID = cloneString(c.ParentID)
				result = append(result, c)
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

func (r *commentRepository) ListByAuthor(_ context.Context, authorID string) ([]domain.Comment, error) {
	var result []domain.Comment
	err := r.do(func(st *state) error {
		for _, c := range st.comments {
			if c.AuthorID == authorID && !c.IsSystem {
				c.ParentID = cloneString(c.ParentID)
				result = append(result, c)
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

type notificationRepository struct {
	do access
}

func (r *notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	return r.do(func(st *state) error {
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func (r *notificationRepository) ListByRecipient(_ context.Context, recipientID string, limit int, unreadOnly bool) ([]domain.Notification, error) {
	var result []domain.Notification
	err := r.do(func(st *state) error {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			n := st.notifications[i]
			if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
				continue
			}
			result = append(result, n)
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, err
}

func (r *notificationRepository) CountUnread(_ context.Context, recipientID string) (int, error) {
	count := 0
	err := r.do(func(st *state) error {
		for _, n := range st.notifications {
			if n.RecipientID == recipientID && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *notificationRepository) MarkRead(_ context.Context, id, recipientID string) error {
	return r.do(func(st *state) error {
		for i := range st.notifications {
			if st.notifications[i].ID == id && st.notifications[i].RecipientID == recipientID {
				st.notifications[i].IsRead = true
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *notificationRepository) MarkAllRead(_ context.Context, recipientID string) (int, error) {
	updated := 0
	err := r.do(func(st *state) error {
		for i := range st.notifications {
			if st.notifications[i].RecipientID == recipientID && !st.notifications[i].IsRead {
				st.notifications[i].IsRead = true
				updated++
			}
		}
		return nil
	})
	return updated, err
}

func (r *notificationRepository) DeleteAllForRecipient(_ context.Context, recipientID string) (int, error) {
	deleted := 0
	err := r.do(func(st *state) error {
		kept := st.notifications[:0:0]
		for _, n := range st.notifications {
			if n.RecipientID == recipientID {
				deleted++
				continue
			}
			kept = append(kept, n)
		}
		st.notifications = kept
		return nil
	})
	return deleted, err
}

type slaConfigRepository struct {
	do access
}

func (r *slaConfigRepository) GetByPriority(_ context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error) {
	var out *domain.SLAConfig
	err := r.do(func(st *state) error {
		cfg, ok := st.slaConfigs[priority]
		if !ok {
			return repository.ErrNotFound
		}
		out = &cfg
		return nil
	})
	return out, err
}

func (r *slaConfigRepository) List(context.Context) ([]domain.SLAConfig, error) {
	var result []domain.SLAConfig
	err := r.do(func(st *state) error {
		for _, cfg := range st.slaConfigs {
			result = append(result, cfg)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].ResolutionTimeHours != result[j].ResolutionTimeHours {
			return result[i].ResolutionTimeHours < result[j].ResolutionTimeHours
		}
		return result[i].Priority < result[j].Priority
	})
	return result, err
}

func (r *slaConfigRepository) Upsert(_ context.Context, cfg *domain.SLAConfig) error {
	return r.do(func(st *state) error {
		if existing, ok := st.slaConfigs[cfg.Priority]; ok {
			cfg.CreatedAt = existing.CreatedAt
		}
		st.slaConfigs[cfg.Priority] = *cfg
		return nil
	})
}

type userRepository struct {
	do access
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	return r.do(func(st *state) error {
		if _, exists := st.users[user.ID]; exists {
			return ErrDuplicate
		}
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return ErrDuplicate
			}
		}
		st.users[user.ID] = cloneUser(*user)
		return nil
	})
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	return r.do(func(st *state) error {
		if _, ok := st.users[user.ID]; !ok {
			return repository.ErrNotFound
		}
		st.users[user.ID] = cloneUser(*user)
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		copied := cloneUser(u)
		out = &copied
		return nil
	})
	return out, err
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.do(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				copied := cloneUser(u)
				out = &copied
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var result []domain.User
	err := r.do(func(st *state) error {
		for _, u := range st.users {
			u := u
			if filter.Matches(&u) {
				result = append(result, cloneUser(u))
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, err
}

func (r *userRepository) Count(context.Context) (int, error) {
	count := 0
	err := r.do(func(st *state) error {
		count = len(st.users)
		return nil
	})
	return count, err
}

type teamRepository struct {
	do access
}

func (r *teamRepository) Create(_ context.Context, team *domain.Team) error {
	return r.do(func(st *state) error {
		for _, existing := range st.teams {
			if existing.ID == team.ID || existing.Name == team.Name {
				return ErrDuplicate
			}
		}
		st.teams[team.ID] = *team
		return nil
	})
}

func (r *teamRepository) GetByID(_ context.Context, id string) (*domain.Team, error) {
	var out *domain.Team
	err := r.do(func(st *state) error {
		team, ok := st.teams[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &team
		return nil
	})
	return out, err
}

func (r *teamRepository) GetByName(_ context.Context, name string) (*domain.Team, error) {
	var out *domain.Team
	err := r.do(func(st *state) error {
		for _, team := range st.teams {
			if team.Name == name {
				found := team
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *teamRepository) List(context.Context) ([]domain.Team, error) {
	var result []domain.Team
	err := r.do(func(st *state) error {
		for _, team := range st.teams {
			result = append(result, team)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, err
}

type passwordResetRepository struct {
	do access
}

func (r *passwordResetRepository) Create(_ context.Context, token *domain.PasswordResetToken) error {
	return r.do(func(st *state) error {
		if _, exists := st.resets[token.Token]; exists {
			return ErrDuplicate
		}
		st.resets[token.Token] = *token
		return nil
	})
}

func (r *passwordResetRepository) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	var out *domain.PasswordResetToken
	err := r.do(func(st *state) error {
		found, ok := st.resets[token]
		if !ok {
			return repository.ErrNotFound
		}
		out = &found
		return nil
	})
	return out, err
}

func (r *passwordResetRepository) MarkUsed(_ context.Context, id string, at time.Time) error {
	return r.do(func(st *state) error {
		for key, token := range st.resets {
			if token.ID != id {
				continue
			}
			if token.UsedAt != nil {
				return repository.ErrNotFound
			}
			used := at
			token.UsedAt = &used
			st.resets[key] = token
			return nil
		}
		return repository.ErrNotFound
	})
}
