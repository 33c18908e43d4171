package domain

import (
	"encoding/json"
	"time"
)

// NotificationKind tags a notification variant. The icon and the subject key
// of the UI payload are derived from it.
type NotificationKind string

const (
	KindTicketExpired      NotificationKind = "ticket_expired"
	KindTicketExpiringSoon NotificationKind = "ticket_expiring_soon"
	KindInventoryLow       NotificationKind = "inventory_low"
	KindRequisitionEvent   NotificationKind = "requisition_event"
	KindTest               NotificationKind = "test"
)

// Icon returns the UI icon for the kind.
func (k NotificationKind) Icon() string {
	switch k {
	case KindTicketExpired:
		return "ticket"
	case KindTicketExpiringSoon:
		return "clock"
	case KindInventoryLow:
		return "package"
	case KindRequisitionEvent:
		return "clipboard"
	default:
		return "bell"
	}
}

// SubjectKey returns the payload key that carries the subject id, or "" when
// the kind has no subject.
func (k NotificationKind) SubjectKey() string {
	switch k {
	case KindTicketExpired, KindTicketExpiringSoon:
		return "ticket_id"
	case KindInventoryLow:
		return "item_id"
	case KindRequisitionEvent:
		return "requisition_id"
	default:
		return ""
	}
}

// Valid reports whether k is a known kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindTicketExpired, KindTicketExpiringSoon, KindInventoryLow, KindRequisitionEvent, KindTest:
		return true
	}
	return false
}

// Message is the content fanned out to every recipient.
type Message struct {
	Kind      NotificationKind
	Title     string
	Body      string
	SubjectID int64
	ActionURL string
}

// Icon returns the icon derived from the message kind.
func (m Message) Icon() string {
	return m.Kind.Icon()
}

// MarshalJSON renders the payload shape the frontend consumes:
// {title, message, <subject>_id?, action_url?, icon}.
func (m Message) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"title":   m.Title,
		"message": m.Body,
		"icon":    m.Icon(),
	}
	if key := m.Kind.SubjectKey(); key != "" && m.SubjectID != 0 {
		out[key] = m.SubjectID
	}
	if m.ActionURL != "" {
		out["action_url"] = m.ActionURL
	}
	return json.Marshal(out)
}

// Notification is one delivered message for one recipient.
type Notification struct {
	ID          int64
	RecipientID int64
	Message     Message
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// Read reports whether the recipient has seen the notification.
func (n *Notification) Read() bool {
	return n.ReadAt != nil
}
