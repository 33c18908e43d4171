package domain

import "time"

// OutboxEntry is a pending side effect written in the same transaction as the
// state change that caused it.
type OutboxEntry struct {
	ID           int64
	EventID      string
	EventType    string
	SubjectID    int64
	Payload      []byte
	Attempts     int
	LastError    *string
	CreatedAt    time.Time
	DispatchedAt *time.Time
}
