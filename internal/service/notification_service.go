package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// NotificationService turns domain events into stored notifications and
// serves a user's feed.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifier      *Notifier
	roles         RoleDirectory
	users         repository.UserRepository
	notifications repository.NotificationRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher       events.Dispatcher
	Notifier         *Notifier
	Roles            RoleDirectory
	UserRepo         repository.UserRepository
	NotificationRepo repository.NotificationRepository
	Logger           *zap.Logger
	Now              func() time.Time
}

// NotificationFeed is one page of a user's notifications plus the unread total.
type NotificationFeed struct {
	Items       []domain.Notification
	UnreadCount int64
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &NotificationService{
		dispatcher:    deps.Dispatcher,
		notifier:      deps.Notifier,
		roles:         deps.Roles,
		users:         deps.UserRepo,
		notifications: deps.NotificationRepo,
		logger:        deps.Logger,
		now:           now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketExpired, n.handleTicketExpired)
	n.dispatcher.Subscribe(events.EventTicketExpiringSoon, n.handleTicketExpiringSoon)
	n.dispatcher.Subscribe(events.EventInventoryLow, n.handleInventoryLow)
	n.dispatcher.Subscribe(events.EventRequisitionSubmitted, n.handleRequisitionSubmitted)
	n.dispatcher.Subscribe(events.EventRequisitionDecided, n.handleRequisitionDecided)
}

func (n *NotificationService) handleTicketExpired(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketExpiredPayload)
	if !ok {
		return payloadError(event)
	}
	admins, err := n.roles.UsersWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("resolve admins: %w", err)
	}
	n.deliver(ctx, event, admins, TicketExpiredMessage(payload))
	return nil
}

// Expiring-soon warnings go to the assigned agent alone. Unassigned tickets,
// or tickets whose agent no longer exists or is deactivated, fall back to the
// admins.
func (n *NotificationService) handleTicketExpiringSoon(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketExpiringSoonPayload)
	if !ok {
		return payloadError(event)
	}
	msg := TicketExpiringSoonMessage(payload, n.now())

	if payload.AssignedTo != nil {
		agent, err := n.users.GetByID(ctx, *payload.AssignedTo)
		switch {
		case err == nil && agent.Active:
			n.deliver(ctx, event, []domain.User{*agent}, msg)
			return nil
		case err == nil:
			n.logger.Warn("assigned agent inactive, warning admins",
				zap.Int64("ticket_id", payload.TicketID),
				zap.Int64("agent_id", agent.ID))
		case apperrors.IsNotFound(err):
			n.logger.Warn("assigned agent missing, warning admins",
				zap.Int64("ticket_id", payload.TicketID),
				zap.Int64("agent_id", *payload.AssignedTo))
		default:
			return fmt.Errorf("resolve agent: %w", err)
		}
	}

	admins, err := n.roles.UsersWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("resolve admins: %w", err)
	}
	n.deliver(ctx, event, admins, msg)
	return nil
}

func (n *NotificationService) handleInventoryLow(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.InventoryLowPayload)
	if !ok {
		return payloadError(event)
	}
	admins, err := n.roles.UsersWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("resolve admins: %w", err)
	}
	n.deliver(ctx, event, admins, InventoryLowMessage(payload))
	return nil
}

func (n *NotificationService) handleRequisitionSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequisitionSubmittedPayload)
	if !ok {
		return payloadError(event)
	}
	admins, err := n.roles.UsersWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("resolve admins: %w", err)
	}
	n.deliver(ctx, event, admins, RequisitionSubmittedMessage(payload))
	return nil
}

func (n *NotificationService) handleRequisitionDecided(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequisitionDecidedPayload)
	if !ok {
		return payloadError(event)
	}
	requester, err := n.users.GetByID(ctx, payload.RequestedBy)
	if err != nil {
		if apperrors.IsNotFound(err) {
			n.logger.Warn("requester missing, decision not delivered",
				zap.Int64("requisition_id", payload.RequisitionID))
			return nil
		}
		return fmt.Errorf("resolve requester: %w", err)
	}
	n.deliver(ctx, event, []domain.User{*requester}, RequisitionDecidedMessage(payload))
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, recipients []domain.User, msg domain.Message) {
	if len(recipients) == 0 {
		n.logger.Info("no recipients for event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("subject_id", event.SubjectID))
		return
	}
	result := n.notifier.Dispatch(ctx, recipients, msg)
	n.logger.Info("event notified",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("subject_id", event.SubjectID),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed))
}

// List returns a page of the user's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, userID int64, filter repository.NotificationFilter) (*NotificationFeed, error) {
	items, err := n.notifications.ListByRecipient(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	unread, err := n.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationFeed{Items: items, UnreadCount: unread}, nil
}

// UnreadCount returns how many notifications the user has not read.
func (n *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return n.notifications.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications read. Marking an already
// read notification is a no-op.
func (n *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := n.notifications.MarkRead(ctx, userID, notificationID, n.now().UTC()); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("notification", map[string]any{"id": notificationID})
		}
		return err
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read and returns
// how many changed.
func (n *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return n.notifications.MarkAllRead(ctx, userID, n.now().UTC())
}

// SendTest delivers a test notification to the caller.
func (n *NotificationService) SendTest(ctx context.Context, user domain.User, title, body string) (DispatchResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Test Notification"
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = "This is a test notification"
	}
	result := n.notifier.Dispatch(ctx, []domain.User{user}, domain.Message{
		Kind:  domain.KindTest,
		Title: title,
		Body:  body,
	})
	if result.Delivered == 0 {
		return result, apperrors.NewInternalError(fmt.Errorf("test notification for user %d not stored", user.ID))
	}
	return result, nil
}

func payloadError(event events.Event) error {
	return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
}
