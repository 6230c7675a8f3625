package lifecycle

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// TransitionType names an operation on the request lifecycle.
type TransitionType string

const (
	TransitionStartReview      TransitionType = "start_review"
	TransitionApprove          TransitionType = "approve"
	TransitionReject           TransitionType = "reject"
	TransitionAssign           TransitionType = "assign"
	TransitionAccept           TransitionType = "accept"
	TransitionDecline          TransitionType = "decline"
	TransitionCompleteWork     TransitionType = "complete_work"
	TransitionReviewCompletion TransitionType = "review_completion"
	TransitionClose            TransitionType = "close"
	TransitionReopen           TransitionType = "reopen"
)

// Transition is the input event applied to a request snapshot. Only the
// fields relevant to Type are read.
type Transition struct {
	Type  TransitionType
	Actor domain.Actor

	Reason          string
	AssigneeID      string
	CompletionNotes string
	Cost            *domain.CostBreakdown
	MediaKeys       []string

	// Completion review verdict.
	Approve  bool
	Rating   *int
	Feedback string
}

// EventType enumerates entries in the request event log.
type EventType string

const (
	EventRequestCreated     EventType = "request_created"
	EventReviewStarted      EventType = "review_started"
	EventRequestApproved    EventType = "request_approved"
	EventRequestRejected    EventType = "request_rejected"
	EventRequestAssigned    EventType = "request_assigned"
	EventWorkAccepted       EventType = "work_accepted"
	EventAssignmentDeclined EventType = "assignment_declined"
	EventWorkCompleted      EventType = "work_completed"
	EventCompletionReviewed EventType = "completion_reviewed"
	EventRequestClosed      EventType = "request_closed"
	EventRequestReopened    EventType = "request_reopened"

	// EventSLABreached is published for notifications only and is never
	// appended to a request's log.
	EventSLABreached EventType = "sla_breached"
)

// Event is an immutable, append-only record of a transition.
type Event struct {
	ID        string      `json:"id"`
	RequestID string      `json:"request_id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	ActorRole domain.Role `json:"actor_role"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	PropertyID string          `json:"property_id"`
	LandlordID string          `json:"landlord_id"`
	CategoryID string          `json:"category_id"`
	Priority   domain.Priority `json:"priority"`
	Title      string          `json:"title"`
}

// ReviewStartedPayload payload.
type ReviewStartedPayload struct {
	ResponseSLAMet bool `json:"response_sla_met"`
}

// RequestApprovedPayload payload.
type RequestApprovedPayload struct{}

// RequestRejectedPayload payload.
type RequestRejectedPayload struct {
	Reason string `json:"reason"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	AssigneeID       string `json:"assignee_id"`
	AssignmentSLAMet bool   `json:"assignment_sla_met"`
}

// WorkAcceptedPayload payload.
type WorkAcceptedPayload struct {
	AcceptanceSLAMet bool `json:"acceptance_sla_met"`
}

// AssignmentDeclinedPayload payload.
type AssignmentDeclinedPayload struct {
	AssigneeID string `json:"assignee_id"`
	Reason     string `json:"reason"`
}

// WorkCompletedPayload payload.
type WorkCompletedPayload struct {
	Notes            string                `json:"notes"`
	Cost             *domain.CostBreakdown `json:"cost,omitempty"`
	MediaKeys        []string              `json:"media_keys,omitempty"`
	CompletionSLAMet bool                  `json:"completion_sla_met"`
}

// CompletionReviewedPayload payload. Outcome tells the reader whether the
// review resolved the request, triggered rework, or left it waiting for
// the second party.
type CompletionReviewedPayload struct {
	ReviewerRole domain.Role          `json:"reviewer_role"`
	Approved     bool                 `json:"approved"`
	Rating       *int                 `json:"rating,omitempty"`
	Feedback     string               `json:"feedback,omitempty"`
	Reason       string               `json:"reason,omitempty"`
	Outcome      ConsensusOutcome     `json:"outcome"`
	NewStatus    domain.RequestStatus `json:"new_status"`
}

// RequestClosedPayload payload.
type RequestClosedPayload struct{}

// RequestReopenedPayload payload.
type RequestReopenedPayload struct {
	Reason string `json:"reason"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Stage      string          `json:"stage"`
	DeadlineAt time.Time       `json:"deadline_at"`
	Priority   domain.Priority `json:"priority"`
}
