package events

import (
	"testing"
	"time"
)

func TestOutboxRoundTripKeepsPayloadType(t *testing.T) {
	agent := int64(12)
	expires := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	event := New(EventTicketExpiringSoon, 7, TicketExpiringSoonPayload{
		TicketID:   7,
		Title:      "VPN flaky",
		ExpiresAt:  expires,
		AssignedTo: &agent,
	})

	entry, err := ToOutbox(event)
	if err != nil {
		t.Fatalf("ToOutbox: %v", err)
	}
	if entry.EventID != event.ID || entry.SubjectID != 7 {
		t.Fatalf("entry = %+v, want id %s subject 7", entry, event.ID)
	}

	decoded, err := FromOutbox(entry)
	if err != nil {
		t.Fatalf("FromOutbox: %v", err)
	}
	payload, ok := decoded.Payload.(TicketExpiringSoonPayload)
	if !ok {
		t.Fatalf("payload type = %T, want TicketExpiringSoonPayload", decoded.Payload)
	}
	if payload.AssignedTo == nil || *payload.AssignedTo != agent {
		t.Errorf("AssignedTo = %v, want %d", payload.AssignedTo, agent)
	}
	if !payload.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", payload.ExpiresAt, expires)
	}
}

func TestFromOutboxRejectsUnknownType(t *testing.T) {
	entry, err := ToOutbox(New(EventType("ticket.reopened"), 1, struct{}{}))
	if err != nil {
		t.Fatalf("ToOutbox: %v", err)
	}
	if _, err := FromOutbox(entry); err == nil {
		t.Fatal("FromOutbox accepted unknown type")
	}
}
