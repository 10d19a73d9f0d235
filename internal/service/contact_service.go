package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/notify"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// ContactService accepts public contact form submissions and lets admins triage them.
type ContactService struct {
	store  repository.Store
	mailer notify.Mailer
	inbox  string
	logger *zap.Logger
	now    Clock
}

// ContactDependencies bundles collaborators for the contact service. Inbox is the address
// submissions are forwarded to; empty skips the forward.
type ContactDependencies struct {
	Store  repository.Store
	Mailer notify.Mailer
	Inbox  string
	Logger *zap.Logger
	Clock  Clock
}

// ContactInput is one contact form submission.
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// NewContactService constructs the service.
func NewContactService(deps ContactDependencies) *ContactService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &ContactService{
		store:  deps.Store,
		mailer: deps.Mailer,
		inbox:  strings.TrimSpace(deps.Inbox),
		logger: logger,
		now:    now,
	}
}

// Submit stores a message and forwards it to the admin inbox. A failed forward is logged and does
// not fail the submission.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (*domain.ContactMessage, error) {
	msg := &domain.ContactMessage{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Email:     normalizeEmail(input.Email),
		Subject:   strings.TrimSpace(input.Subject),
		Body:      strings.TrimSpace(input.Message),
		CreatedAt: s.now().UTC(),
	}
	if msg.Name == "" || msg.Email == "" || msg.Body == "" {
		return nil, apperrors.NewValidationError("name, email and message are required", nil)
	}
	if _, err := mail.ParseAddress(msg.Email); err != nil {
		return nil, apperrors.NewValidationError("email is invalid", map[string]any{"email": msg.Email})
	}
	if err := s.store.Repositories().Messages.Create(ctx, msg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.forward(ctx, msg)
	return msg, nil
}

func (s *ContactService) forward(ctx context.Context, msg *domain.ContactMessage) {
	if s.mailer == nil || s.inbox == "" {
		return
	}
	email := notify.Email{
		To:      s.inbox,
		Subject: fmt.Sprintf("Contact Form: %s", msg.Subject),
		Body: fmt.Sprintf("New contact form submission\n\nName: %s\nEmail: %s\nSubject: %s\n\n%s\n",
			msg.Name, msg.Email, msg.Subject, msg.Body),
	}
	if err := s.mailer.Send(ctx, email); err != nil {
		s.logger.Warn("contact message forward failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
}

// ListMessages returns submissions newest first. Admin only.
func (s *ContactService) ListMessages(ctx context.Context, actor *domain.User, unreadOnly bool) ([]domain.ContactMessage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	messages, err := s.store.Repositories().Messages.List(ctx, unreadOnly)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return messages, nil
}

// MarkRead flags a submission as handled. Admin only.
func (s *ContactService) MarkRead(ctx context.Context, actor *domain.User, messageID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.Repositories().Messages.MarkRead(ctx, messageID); err != nil {
		return storeError(err, "message", messageID)
	}
	return nil
}
