package domain

import "time"

// RequisitionStatus enumerates requisition workflow states.
type RequisitionStatus string

const (
	RequisitionPending   RequisitionStatus = "pending"
	RequisitionApproved  RequisitionStatus = "approved"
	RequisitionRejected  RequisitionStatus = "rejected"
	RequisitionFulfilled RequisitionStatus = "fulfilled"
)

// Requisition is a request to draw items from inventory.
type Requisition struct {
	ID           int64
	ItemID       int64
	RequestedBy  int64
	Quantity     int
	Reason       string
	Status       RequisitionStatus
	DecidedBy    *int64
	DecidedAt    *time.Time
	DecisionNote string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
