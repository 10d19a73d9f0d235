package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/events"
	"github.com/tickettally/ticket-engine/internal/export"
	"github.com/tickettally/ticket-engine/internal/notify"
	"github.com/tickettally/ticket-engine/internal/observability"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// DefaultInboxLimit is the page size of an inbox listing when none is requested.
const DefaultInboxLimit = 20

const commentPreviewLength = 50

// SummaryRenderer renders a ticket summary document, typically as PDF.
type SummaryRenderer interface {
	RenderTicketSummary(doc export.TicketDocument) ([]byte, error)
}

// NotificationService fans lifecycle events out to per-recipient notifications and emails,
// and serves the notification inbox. Delivery failures are logged and never returned to the
// operation that raised the event.
type NotificationService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	publisher  notify.Publisher
	renderer   SummaryRenderer
	sla        *SLAService
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        Clock
	baseURL    string
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Mailer     notify.Mailer
	Publisher  notify.Publisher
	Renderer   SummaryRenderer
	SLA        *SLAService
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      Clock
	BaseURL    string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	sla := deps.SLA
	if sla == nil {
		sla = NewSLAService(SLADependencies{Store: deps.Store, Logger: logger, Clock: now})
	}
	return &NotificationService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		mailer:     deps.Mailer,
		publisher:  deps.Publisher,
		renderer:   deps.Renderer,
		sla:        sla,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        now,
		baseURL:    strings.TrimRight(deps.BaseURL, "/"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketClaimed, n.handleTicketClaimed)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticket := payload.Ticket
	repos := n.store.Repositories()

	var errs []error
	creator, err := repos.Users.GetByID(ctx, ticket.CreatedByID)
	if err != nil {
		n.logger.Warn("ticket creator lookup failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		creator = &domain.User{ID: ticket.CreatedByID}
	}

	_, err = n.Notify(ctx, ticket.CreatedByID, "Ticket Created Successfully",
		fmt.Sprintf("Your ticket #%s '%s' has been received.", ticket.ID, ticket.Title),
		domain.NotificationSuccess)
	errs = append(errs, err)

	admins, err := n.roleMembers(ctx, domain.UserRoleAdmin, nil)
	errs = append(errs, err)
	for _, admin := range admins {
		_, err := n.Notify(ctx, admin.ID, "New Ticket Created",
			fmt.Sprintf("Ticket #%s: %s was created by %s", ticket.ID, ticket.Title, displayName(creator)),
			domain.NotificationInfo)
		errs = append(errs, err)
	}

	staff, err := n.roleMembers(ctx, domain.UserRoleITStaff, ticket.TeamID)
	errs = append(errs, err)
	for _, member := range staff {
		_, err := n.Notify(ctx, member.ID, "New Ticket Assigned to Team",
			fmt.Sprintf("Ticket #%s: %s is waiting for action.", ticket.ID, ticket.Title),
			domain.NotificationInfo)
		errs = append(errs, err)
	}

	n.sendEmail(ctx, ticket.ID, creator, notify.Email{
		Subject: fmt.Sprintf("Ticket Received - #%s", ticket.ID),
		Body: fmt.Sprintf("Hello %s,\n\nWe have received your ticket #%s \"%s\" (priority %s). "+
			"You will be notified when its status changes.\n\n%s",
			displayName(creator), ticket.ID, ticket.Title, ticket.Priority, n.ticketLink(ticket.ID)),
	})
	return errors.Join(errs...)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticket := payload.Ticket
	category := domain.NotificationInfo
	if payload.NewStatus == domain.TicketStatusResolved {
		category = domain.NotificationSuccess
	}
	_, err := n.Notify(ctx, ticket.CreatedByID, "Ticket Status Updated",
		fmt.Sprintf("Your ticket #%s '%s' is now %s.", ticket.ID, ticket.Title, payload.NewStatus),
		category)

	if payload.NewStatus == domain.TicketStatusResolved {
		n.sendResolvedEmail(ctx, &ticket)
	}
	return err
}

func (n *NotificationService) sendResolvedEmail(ctx context.Context, ticket *domain.Ticket) {
	repos := n.store.Repositories()
	creator, err := repos.Users.GetByID(ctx, ticket.CreatedByID)
	if err != nil {
		n.logger.Warn("resolved email skipped: creator lookup failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	if strings.TrimSpace(creator.Email) == "" {
		n.logger.Info("resolved email skipped: creator has no email",
			zap.String("ticket_id", ticket.ID), zap.String("user_id", creator.ID))
		return
	}

	msg := notify.Email{
		Subject: fmt.Sprintf("Resolved: Ticket #%s - %s", ticket.ID, ticket.Title),
		Body: fmt.Sprintf("Hello %s,\n\nYour ticket #%s \"%s\" has been resolved. "+
			"A summary is attached.\n\n%s", displayName(creator), ticket.ID, ticket.Title, n.ticketLink(ticket.ID)),
	}
	if attachment, err := n.renderSummary(ctx, repos, ticket); err != nil {
		n.metrics.RecordNotificationFailure("pdf")
		n.logger.Warn("ticket summary rendering failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	} else {
		msg.Attachments = append(msg.Attachments, *attachment)
	}
	n.sendEmail(ctx, ticket.ID, creator, msg)
}

func (n *NotificationService) renderSummary(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket) (*notify.Attachment, error) {
	if n.renderer == nil {
		return nil, errors.New("no summary renderer configured")
	}
	doc, err := buildTicketDocument(ctx, repos, n.sla, ticket, n.now().UTC())
	if err != nil {
		return nil, err
	}
	content, err := n.renderer.RenderTicketSummary(doc)
	if err != nil {
		return nil, err
	}
	return &notify.Attachment{
		Filename:    export.SummaryFilename(ticket.ID),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

func (n *NotificationService) handleTicketClaimed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketClaimedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticket := payload.Ticket
	repos := n.store.Repositories()
	creator, err := repos.Users.GetByID(ctx, ticket.CreatedByID)
	if err != nil {
		n.logger.Warn("claim email skipped: creator lookup failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return nil
	}
	assigneeName := "A member of IT staff"
	if assignee, err := repos.Users.GetByID(ctx, payload.AssigneeID); err == nil {
		assigneeName = displayName(assignee)
	}
	n.sendEmail(ctx, ticket.ID, creator, notify.Email{
		Subject: fmt.Sprintf("Ticket Approached - #%s", ticket.ID),
		Body: fmt.Sprintf("Hello %s,\n\n%s has started working on your ticket #%s \"%s\".\n\n%s",
			displayName(creator), assigneeName, ticket.ID, ticket.Title, n.ticketLink(ticket.ID)),
	})
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticket := payload.Ticket
	comment := payload.Comment

	authorName := "Someone"
	if author, err := n.store.Repositories().Users.GetByID(ctx, comment.AuthorID); err == nil {
		authorName = displayName(author)
	}
	message := fmt.Sprintf("%s commented: %s", authorName, preview(comment.Text, commentPreviewLength))

	var errs []error
	for _, recipient := range commentRecipients(&ticket, comment.AuthorID) {
		_, err := n.Notify(ctx, recipient, fmt.Sprintf("New Comment on Ticket #%s", ticket.ID), message, domain.NotificationInfo)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// commentRecipients returns the creator and the assignee of ticket, minus the comment author.
func commentRecipients(ticket *domain.Ticket, authorID string) []string {
	recipients := make([]string, 0, 2)
	if ticket.CreatedByID != authorID {
		recipients = append(recipients, ticket.CreatedByID)
	}
	if ticket.AssignedToID != nil && *ticket.AssignedToID != authorID && *ticket.AssignedToID != ticket.CreatedByID {
		recipients = append(recipients, *ticket.AssignedToID)
	}
	return recipients
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	_, err := n.Notify(ctx, payload.UserID, "Password Reset Requested",
		"A password reset was requested for your account.", domain.NotificationWarning)

	owner := &domain.User{ID: payload.UserID, Email: payload.Email, FullName: payload.FullName}
	n.sendEmail(ctx, "", owner, notify.Email{
		Subject: "Password Reset Request",
		Body: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires at %s.\n\n%s\n\n"+
			"If you did not request a reset you can ignore this email.",
			displayName(owner), payload.ExpiresAt.UTC().Format(time.RFC1123),
			n.baseURL+"/reset-password?token="+payload.Token),
	})
	return err
}

// Notify stores one notification for recipientID and pushes it to the live feed.
// A live feed failure is logged and does not fail the call.
func (n *NotificationService) Notify(ctx context.Context, recipientID, title, message string, category domain.NotificationCategory) (*domain.Notification, error) {
	notification := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Category:    category,
		CreatedAt:   n.now().UTC(),
	}
	if err := n.store.Repositories().Notifications.Create(ctx, notification); err != nil {
		n.metrics.RecordNotificationFailure("inbox")
		n.logger.Error("notification insert failed",
			zap.String("user_id", recipientID),
			zap.String("title", title),
			zap.Error(err))
		return nil, err
	}
	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, *notification); err != nil {
			n.metrics.RecordNotificationFailure("live")
			n.logger.Warn("notification publish failed", zap.String("user_id", recipientID), zap.Error(err))
		}
	}
	return notification, nil
}

func (n *NotificationService) sendEmail(ctx context.Context, ticketID string, recipient *domain.User, msg notify.Email) {
	if n.mailer == nil {
		return
	}
	if recipient == nil || strings.TrimSpace(recipient.Email) == "" {
		n.logger.Info("email skipped: recipient has no email",
			zap.String("ticket_id", ticketID), zap.String("subject", msg.Subject))
		return
	}
	msg.To = recipient.Email
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.metrics.RecordNotificationFailure("email")
		n.logger.Error("email delivery failed",
			zap.String("ticket_id", ticketID),
			zap.String("user_id", recipient.ID),
			zap.String("subject", msg.Subject),
			zap.Error(err))
	}
}

// roleMembers lists every account holding role, optionally within teamID. Deactivated accounts
// are included.
func (n *NotificationService) roleMembers(ctx context.Context, role domain.UserRole, teamID *string) ([]domain.User, error) {
	users, err := n.store.Repositories().Users.List(ctx, repository.UserFilter{
		Role:   &role,
		TeamID: teamID,
	})
	if err != nil {
		n.logger.Error("recipient lookup failed", zap.String("role", string(role)), zap.Error(err))
		return nil, err
	}
	return users, nil
}

func (n *NotificationService) ticketLink(ticketID string) string {
	if n.baseURL == "" {
		return ""
	}
	return n.baseURL + "/tickets/" + ticketID
}

// List returns the actor's notifications newest first. A non-positive limit uses DefaultInboxLimit.
func (n *NotificationService) List(ctx context.Context, actor *domain.User, limit int, unreadOnly bool) ([]domain.Notification, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultInboxLimit
	}
	items, err := n.store.Repositories().Notifications.ListByRecipient(ctx, actor.ID, limit, unreadOnly)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// UnreadCount returns how many of the actor's notifications are unread.
func (n *NotificationService) UnreadCount(ctx context.Context, actor *domain.User) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	count, err := n.store.Repositories().Notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return count, nil
}

// MarkRead flags one of the actor's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, actor *domain.User, notificationID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	err := n.store.Repositories().Notifications.MarkRead(ctx, notificationID, actor.ID)
	return storeError(err, "notification", notificationID)
}

// MarkAllRead flags every notification of the actor as read and returns how many changed.
func (n *NotificationService) MarkAllRead(ctx context.Context, actor *domain.User) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	count, err := n.store.Repositories().Notifications.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return count, nil
}

// ClearAll deletes the actor's notifications and returns how many were removed.
func (n *NotificationService) ClearAll(ctx context.Context, actor *domain.User) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	count, err := n.store.Repositories().Notifications.DeleteAllForRecipient(ctx, actor.ID)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return count, nil
}

func displayName(u *domain.User) string {
	if u == nil {
		return "there"
	}
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return "User " + u.ID
}

func preview(text string, max int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}
