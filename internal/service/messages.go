package service

import (
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

func ticketURL(id int64) string {
	return fmt.Sprintf("/tickets/%d", id)
}

// TicketExpiredMessage builds the admin alert for a ticket past its deadline.
func TicketExpiredMessage(p events.TicketExpiredPayload) domain.Message {
	return domain.Message{
		Kind:      domain.KindTicketExpired,
		Title:     "Ticket Expired",
		Body:      fmt.Sprintf("Ticket #%d '%s' has expired and needs attention", p.TicketID, p.Title),
		SubjectID: p.TicketID,
		ActionURL: ticketURL(p.TicketID),
	}
}

// TicketExpiringSoonMessage builds the warning for a deadline inside the
// lookahead window. Remaining time is rounded up to whole minutes.
func TicketExpiringSoonMessage(p events.TicketExpiringSoonPayload, now time.Time) domain.Message {
	minutes := int(math.Ceil(p.ExpiresAt.Sub(now).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return domain.Message{
		Kind:      domain.KindTicketExpiringSoon,
		Title:     "Ticket Expiring Soon",
		Body:      fmt.Sprintf("Ticket #%d '%s' will expire in %d %s", p.TicketID, p.Title, minutes, unit),
		SubjectID: p.TicketID,
		ActionURL: ticketURL(p.TicketID),
	}
}

// InventoryLowMessage builds the low-stock alert.
func InventoryLowMessage(p events.InventoryLowPayload) domain.Message {
	return domain.Message{
		Kind:      domain.KindInventoryLow,
		Title:     "Low Stock",
		Body:      fmt.Sprintf("Item '%s' is low on stock (%d left, reorder level %d)", p.Name, p.Quantity, p.ReorderLevel),
		SubjectID: p.ItemID,
		ActionURL: fmt.Sprintf("/inventory/%d", p.ItemID),
	}
}

// RequisitionSubmittedMessage tells admins about a new requisition.
func RequisitionSubmittedMessage(p events.RequisitionSubmittedPayload) domain.Message {
	return domain.Message{
		Kind:      domain.KindRequisitionEvent,
		Title:     "New Requisition",
		Body:      fmt.Sprintf("%s requested %d x '%s' (requisition #%d)", p.RequesterName, p.Quantity, p.ItemName, p.RequisitionID),
		SubjectID: p.RequisitionID,
		ActionURL: fmt.Sprintf("/requisitions/%d", p.RequisitionID),
	}
}

// RequisitionDecidedMessage tells the requester about the decision.
func RequisitionDecidedMessage(p events.RequisitionDecidedPayload) domain.Message {
	body := fmt.Sprintf("Your requisition #%d for '%s' was %s", p.RequisitionID, p.ItemName, p.Status)
	if p.Note != "" {
		body += ": " + p.Note
	}
	return domain.Message{
		Kind:      domain.KindRequisitionEvent,
		Title:     "Requisition " + titleCase(string(p.Status)),
		Body:      body,
		SubjectID: p.RequisitionID,
		ActionURL: fmt.Sprintf("/requisitions/%d", p.RequisitionID),
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
