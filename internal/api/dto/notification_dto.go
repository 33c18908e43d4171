package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationResponse is one feed entry. Data carries the UI payload.
type NotificationResponse struct {
	ID        int64                   `json:"id"`
	Kind      domain.NotificationKind `json:"kind"`
	Data      domain.Message          `json:"data"`
	ReadAt    *time.Time              `json:"read_at"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewNotificationResponse maps a notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Kind:      n.Message.Kind,
		Data:      n.Message,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// TestNotificationRequest lets a user send themselves a notification.
type TestNotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
