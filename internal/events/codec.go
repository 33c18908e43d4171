package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// New builds an event with a fresh id.
func New(eventType EventType, subjectID int64, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ToOutbox serializes an event into an outbox row.
func ToOutbox(event Event) (domain.OutboxEntry, error) {
	raw, err := json.Marshal(event.Payload)
	if err != nil {
		return domain.OutboxEntry{}, fmt.Errorf("encode %s payload: %w", event.Type, err)
	}
	return domain.OutboxEntry{
		EventID:   event.ID,
		EventType: string(event.Type),
		SubjectID: event.SubjectID,
		Payload:   raw,
		CreatedAt: event.Timestamp,
	}, nil
}

// FromOutbox rebuilds a typed event from an outbox row.
func FromOutbox(entry domain.OutboxEntry) (Event, error) {
	eventType := EventType(entry.EventType)
	var payload any
	switch eventType {
	case EventTicketExpired:
		payload = &TicketExpiredPayload{}
	case EventTicketExpiringSoon:
		payload = &TicketExpiringSoonPayload{}
	case EventInventoryLow:
		payload = &InventoryLowPayload{}
	case EventRequisitionSubmitted:
		payload = &RequisitionSubmittedPayload{}
	case EventRequisitionDecided:
		payload = &RequisitionDecidedPayload{}
	default:
		return Event{}, fmt.Errorf("unknown event type %q", entry.EventType)
	}
	if err := json.Unmarshal(entry.Payload, payload); err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", entry.EventType, err)
	}
	return Event{
		ID:        entry.EventID,
		Type:      eventType,
		SubjectID: entry.SubjectID,
		Timestamp: entry.CreatedAt,
		Payload:   derefPayload(payload),
	}, nil
}

func derefPayload(payload any) any {
	switch p := payload.(type) {
	case *TicketExpiredPayload:
		return *p
	case *TicketExpiringSoonPayload:
		return *p
	case *InventoryLowPayload:
		return *p
	case *RequisitionSubmittedPayload:
		return *p
	case *RequisitionDecidedPayload:
		return *p
	}
	return payload
}
