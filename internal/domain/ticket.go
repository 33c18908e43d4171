package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TerminalTicketStatuses are excluded from expiry processing.
var TerminalTicketStatuses = []TicketStatus{TicketStatusResolved, TicketStatusClosed}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Terminal reports whether s ends the ticket lifecycle.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is a support request with an optional response deadline.
type Ticket struct {
	ID             int64
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	ExpiresAt      *time.Time
	IsExpired      bool
	ExpiryWarnedAt *time.Time
	AssignedTo     *int64
	CreatedBy      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the ticket still needs work.
func (t *Ticket) Active() bool {
	return !t.Status.Terminal()
}
