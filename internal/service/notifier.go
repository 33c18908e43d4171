package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Publisher pushes freshly stored notifications to live listeners.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// DispatchResult counts the outcome of one fan-out.
type DispatchResult struct {
	Delivered int
	Failed    int
}

// Notifier fans a message out to recipients, one stored notification each.
type Notifier struct {
	notifications repository.NotificationRepository
	publisher     Publisher
	logger        *zap.Logger
}

// NewNotifier creates the notifier. publisher may be nil.
func NewNotifier(notifications repository.NotificationRepository, publisher Publisher, logger *zap.Logger) *Notifier {
	return &Notifier{notifications: notifications, publisher: publisher, logger: logger}
}

// NotificationChannel is the pub/sub channel carrying a user's new notifications.
func NotificationChannel(userID int64) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// Dispatch stores one unread notification per distinct recipient. A failure
// for one recipient is logged and does not stop the others.
func (n *Notifier) Dispatch(ctx context.Context, recipients []domain.User, msg domain.Message) DispatchResult {
	var result DispatchResult
	seen := make(map[int64]struct{}, len(recipients))
	for _, recipient := range recipients {
		if _, dup := seen[recipient.ID]; dup {
			continue
		}
		seen[recipient.ID] = struct{}{}

		notification := &domain.Notification{RecipientID: recipient.ID, Message: msg}
		if err := n.notifications.Create(ctx, notification); err != nil {
			result.Failed++
			n.logger.Warn("notification delivery failed",
				zap.Int64("recipient_id", recipient.ID),
				zap.String("kind", string(msg.Kind)),
				zap.Int64("subject_id", msg.SubjectID),
				zap.Error(err))
			continue
		}
		result.Delivered++
		n.publish(ctx, notification)
	}
	return result
}

func (n *Notifier) publish(ctx context.Context, notification *domain.Notification) {
	if n.publisher == nil {
		return
	}
	payload, err := json.Marshal(struct {
		ID        int64                   `json:"id"`
		Kind      domain.NotificationKind `json:"kind"`
		Data      domain.Message          `json:"data"`
		CreatedAt time.Time               `json:"created_at"`
	}{notification.ID, notification.Message.Kind, notification.Message, notification.CreatedAt})
	if err != nil {
		n.logger.Warn("encode live notification", zap.Error(err))
		return
	}
	if err := n.publisher.Publish(ctx, NotificationChannel(notification.RecipientID), payload); err != nil {
		n.logger.Debug("live notification publish failed",
			zap.Int64("recipient_id", notification.RecipientID),
			zap.Error(err))
	}
}
