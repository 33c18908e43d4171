package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketExpired        EventType = "ticket.expired"
	EventTicketExpiringSoon   EventType = "ticket.expiring_soon"
	EventInventoryLow         EventType = "inventory.low"
	EventRequisitionSubmitted EventType = "requisition.submitted"
	EventRequisitionDecided   EventType = "requisition.decided"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID int64     `json:"subject_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketExpiredPayload payload.
type TicketExpiredPayload struct {
	TicketID  int64     `json:"ticket_id"`
	Title     string    `json:"title"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TicketExpiringSoonPayload payload. AssignedTo selects the audience.
type TicketExpiringSoonPayload struct {
	TicketID   int64     `json:"ticket_id"`
	Title      string    `json:"title"`
	ExpiresAt  time.Time `json:"expires_at"`
	AssignedTo *int64    `json:"assigned_to,omitempty"`
}

// InventoryLowPayload payload.
type InventoryLowPayload struct {
	ItemID       int64  `json:"item_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorder_level"`
}

// RequisitionSubmittedPayload payload.
type RequisitionSubmittedPayload struct {
	RequisitionID int64  `json:"requisition_id"`
	ItemName      string `json:"item_name"`
	Quantity      int    `json:"quantity"`
	RequestedBy   int64  `json:"requested_by"`
	RequesterName string `json:"requester_name"`
}

// RequisitionDecidedPayload payload.
type RequisitionDecidedPayload struct {
	RequisitionID int64                    `json:"requisition_id"`
	ItemName      string                   `json:"item_name"`
	Status        domain.RequisitionStatus `json:"status"`
	RequestedBy   int64                    `json:"requested_by"`
	Note          string                   `json:"note,omitempty"`
}
