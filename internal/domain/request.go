package domain

import "time"

// RequestStatus enumerates lifecycle states for maintenance requests.
type RequestStatus string

const (
	StatusPending         RequestStatus = "PENDING"
	StatusUnderReview     RequestStatus = "UNDER_REVIEW"
	StatusApproved        RequestStatus = "APPROVED"
	StatusRejected        RequestStatus = "REJECTED"
	StatusAssigned        RequestStatus = "ASSIGNED"
	StatusInProgress      RequestStatus = "IN_PROGRESS"
	StatusPendingApproval RequestStatus = "PENDING_APPROVAL"
	StatusResolved        RequestStatus = "RESOLVED"
	StatusClosed          RequestStatus = "CLOSED"
)

// Terminal reports whether no further transitions are legal from s.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusClosed
}

// Priority enumerates SLA urgency for a request.
type Priority string

const (
	PriorityLow       Priority = "LOW"
	PriorityNormal    Priority = "NORMAL"
	PriorityUrgent    Priority = "URGENT"
	PriorityEmergency Priority = "EMERGENCY"
)

// ValidPriority reports whether p is one of the defined priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityUrgent, PriorityEmergency:
		return true
	}
	return false
}

// MaintenanceRequest is the aggregate for property maintenance work.
// Status and the stage timestamps are a cached projection of the request's
// event log; the log is the durable record.
type MaintenanceRequest struct {
	ID            string
	RequestNumber string
	PropertyID    string
	CategoryID    string
	TenantID      string
	LandlordID    string
	AssigneeID    *string
	Title         string
	Description   string
	Status        RequestStatus
	Priority      Priority

	CreatedAt   time.Time
	ApprovedAt  *time.Time
	AssignedAt  *time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
	ClosedAt    *time.Time

	CompletionNotes string
	Cost            *CostBreakdown
	MediaKeys       []string

	TenantReview   *CompletionReview
	LandlordReview *CompletionReview

	ResponseSLAMet   *bool
	AssignmentSLAMet *bool
	AcceptanceSLAMet *bool
	CompletionSLAMet *bool

	Version   int64
	UpdatedAt time.Time
}

// Clone returns a deep copy so transitions can mutate without touching the
// caller's snapshot.
func (r *MaintenanceRequest) Clone() *MaintenanceRequest {
	next := *r
	next.AssigneeID = clonePtr(r.AssigneeID)
	next.ApprovedAt = clonePtr(r.ApprovedAt)
	next.AssignedAt = clonePtr(r.AssignedAt)
	next.AcceptedAt = clonePtr(r.AcceptedAt)
	next.CompletedAt = clonePtr(r.CompletedAt)
	next.ClosedAt = clonePtr(r.ClosedAt)
	next.ResponseSLAMet = clonePtr(r.ResponseSLAMet)
	next.AssignmentSLAMet = clonePtr(r.AssignmentSLAMet)
	next.AcceptanceSLAMet = clonePtr(r.AcceptanceSLAMet)
	next.CompletionSLAMet = clonePtr(r.CompletionSLAMet)
	if r.Cost != nil {
		cost := *r.Cost
		next.Cost = &cost
	}
	if r.MediaKeys != nil {
		next.MediaKeys = append([]string(nil), r.MediaKeys...)
	}
	if r.TenantReview != nil {
		review := r.TenantReview.clone()
		next.TenantReview = &review
	}
	if r.LandlordReview != nil {
		review := r.LandlordReview.clone()
		next.LandlordReview = &review
	}
	return &next
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}
