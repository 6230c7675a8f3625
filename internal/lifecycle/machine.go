package lifecycle

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/sla"
)

// Policy holds workflow knobs that change transition semantics.
type Policy struct {
	// LandlordOverride lets a landlord approval force-resolve a completion
	// without waiting for the tenant slot. Off by default: both parties
	// must approve.
	LandlordOverride bool
}

// Machine applies transitions to request snapshots. It is pure apart from
// the injected clock: no I/O, no internal mutable state, safe for any
// number of concurrent callers. Persistence and its optimistic-concurrency
// guard belong to the caller.
type Machine struct {
	calc   *sla.Calculator
	policy Policy
	now    func() time.Time
}

// NewMachine builds a machine. A nil clock defaults to time.Now.
func NewMachine(calc *sla.Calculator, policy Policy, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{calc: calc, policy: policy, now: now}
}

// Result carries the new immutable snapshot and the event to append to the
// request's log.
type Result struct {
	Request *domain.MaintenanceRequest
	Event   Event
}

// Apply validates and applies one transition. On failure the input snapshot
// is untouched and the typed error names the unmet condition. Every legal
// transition emits exactly one event.
func (m *Machine) Apply(req *domain.MaintenanceRequest, t Transition) (*Result, error) {
	if req.Status.Terminal() {
		return nil, NewTransitionError(KindTerminalState, t.Type, req.Status, "request is in a terminal state")
	}
	if decision := CanTransition(t.Actor, req, t.Type); !decision.Allowed {
		return nil, NewTransitionError(KindUnauthorized, t.Type, req.Status, decision.Reason)
	}

	now := m.now()
	next := req.Clone()

	var payload any
	var eventType EventType
	var err *TransitionError

	switch t.Type {
	case TransitionStartReview:
		eventType, payload, err = m.applyStartReview(next, now)
	case TransitionApprove:
		eventType, payload, err = m.applyApprove(next, t, now)
	case TransitionReject:
		eventType, payload, err = m.applyReject(next, t)
	case TransitionAssign:
		eventType, payload, err = m.applyAssign(next, t, now)
	case TransitionAccept:
		eventType, payload, err = m.applyAccept(next, t, now)
	case TransitionDecline:
		eventType, payload, err = m.applyDecline(next, t)
	case TransitionCompleteWork:
		eventType, payload, err = m.applyCompleteWork(next, t, now)
	case TransitionReviewCompletion:
		eventType, payload, err = m.applyCompletionReview(next, t, now)
	case TransitionClose:
		eventType, payload, err = m.applyClose(next, t, now)
	case TransitionReopen:
		eventType, payload, err = m.applyReopen(next, t)
	default:
		return nil, NewTransitionError(KindInvalidTransition, t.Type, req.Status, "unknown transition")
	}
	if err != nil {
		return nil, err
	}

	next.UpdatedAt = now
	return &Result{
		Request: next,
		Event: Event{
			ID:        uuid.NewString(),
			RequestID: req.ID,
			Type:      eventType,
			ActorID:   t.Actor.ID,
			ActorRole: t.Actor.Role,
			Timestamp: now,
			Payload:   payload,
		},
	}, nil
}

func (m *Machine) applyStartReview(next *domain.MaintenanceRequest, now time.Time) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusPending {
		return "", nil, wrongState(TransitionStartReview, next.Status, domain.StatusPending)
	}
	met := m.calc.MetAt(sla.StageResponse, next.Priority, next.CreatedAt, now)
	next.Status = domain.StatusUnderReview
	next.ResponseSLAMet = &met
	return EventReviewStarted, ReviewStartedPayload{ResponseSLAMet: met}, nil
}

func (m *Machine) applyApprove(next *domain.MaintenanceRequest, t Transition, now time.Time) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusUnderReview {
		return "", nil, wrongState(t.Type, next.Status, domain.StatusUnderReview)
	}
	if err := setOnce(&next.ApprovedAt, now, "approved_at", t.Type, next.Status); err != nil {
		return "", nil, err
	}
	next.Status = domain.StatusApproved
	return EventRequestApproved, RequestApprovedPayload{}, nil
}

func (m *Machine) applyReject(next *domain.MaintenanceRequest, t Transition) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusUnderReview {
		return "", nil, wrongState(t.Type, next.Status, domain.StatusUnderReview)
	}
	reason := strings.TrimSpace(t.Reason)
	if reason == "" {
		return "", nil, precondition(t.Type, next.Status, "rejection reason required")
	}
	next.Status = domain.StatusRejected
	return EventRequestRejected, RequestRejectedPayload{Reason: reason}, nil
}

func (m *Machine) applyAssign(next *domain.MaintenanceRequest, t Transition, now time.Time) (EventType, any, *TransitionError) {
	switch next.Status {
	case domain.StatusApproved:
	case domain.StatusAssigned:
		// Re-assignment is only open while a decline has left the slot empty.
		if next.AssigneeID != nil {
			return "", nil, NewTransitionError(KindInvalidTransition, t.Type, next.Status, "request already has an assignee")
		}
	default:
		return "", nil, wrongState(t.Type, next.Status, domain.StatusApproved)
	}
	assigneeID := strings.TrimSpace(t.AssigneeID)
	if assigneeID == "" {
		return "", nil, precondition(t.Type, next.Status, "assignee identity required")
	}
	if err := setOnce(&next.AssignedAt, now, "assigned_at", t.Type, next.Status); err != nil {
		return "", nil, err
	}
	met := false
	if next.ApprovedAt != nil {
		met = m.calc.MetAt(sla.StageAssignment, next.Priority, *next.ApprovedAt, now)
	}
	next.AssigneeID = &assigneeID
	next.AssignmentSLAMet = &met
	next.Status = domain.StatusAssigned
	return EventRequestAssigned, RequestAssignedPayload{AssigneeID: assigneeID, AssignmentSLAMet: met}, nil
}

func (m *Machine) applyAccept(next *domain.MaintenanceRequest, t Transition, now time.Time) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusAssigned {
		return "", nil, wrongState(t.Type, next.Status, domain.StatusAssigned)
	}
	if err := setOnce(&next.AcceptedAt, now, "accepted_at", t.Type, next.Status); err != nil {
		return "", nil, err
	}
	met := false
	if next.AssignedAt != nil {
		met = m.calc.MetAt(sla.StageAcceptance, next.Priority, *next.AssignedAt, now)
	}
	next.AcceptanceSLAMet = &met
	next.Status = domain.StatusInProgress
	return EventWorkAccepted, WorkAcceptedPayload{AcceptanceSLAMet: met}, nil
}

func (m *Machine) applyDecline(next *domain.MaintenanceRequest, t Transition) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusAssigned {
		return "", nil, wrongState(t.Type, next.Status, domain.StatusAssigned)
	}
	reason := strings.TrimSpace(t.Reason)
	if len(reason) < 10 {
		return "", nil, precondition(t.Type, next.Status, "decline reason must be at least 10 characters")
	}
	declined := *next.AssigneeID
	next.AssigneeID = nil
	next.AssignedAt = nil
	next.AssignmentSLAMet = nil
	return EventAssignmentDeclined, AssignmentDeclinedPayload{AssigneeID: declined, Reason: reason}, nil
}

func (m *Machine) applyCompleteWork(next *domain.MaintenanceRequest, t Transition, now time.Time) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusInProgress {
		return "", nil, wrongState(t.Type, next.Status, domain.StatusInProgress)
	}
	notes := strings.TrimSpace(t.CompletionNotes)
	if notes == "" {
		return "", nil, precondition(t.Type, next.Status, "completion notes required")
	}
	if t.Cost != nil && t.Cost.Negative() {
		return "", nil, precondition(t.Type, next.Status, "cost lines must not be negative")
	}
	if err := setOnce(&next.CompletedAt, now, "completed_at", t.Type, next.Status); err != nil {
		return "", nil, err
	}
	met := false
	if next.AcceptedAt != nil {
		met = m.calc.MetAt(sla.StageCompletion, next.Priority, *next.AcceptedAt, now)
	}
	next.CompletionNotes = notes
	next.Cost = t.Cost
	next.MediaKeys = append([]string(nil), t.MediaKeys...)
	next.CompletionSLAMet = &met
	next.Status = domain.StatusPendingApproval
	return EventWorkCompleted, WorkCompletedPayload{
		Notes:            notes,
		Cost:             t.Cost,
		MediaKeys:        next.MediaKeys,
		CompletionSLAMet: met,
	}, nil
}

func (m *Machine) applyClose(next *domain.MaintenanceRequest, t Transition, now time.Time) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusResolved {
		return "", nil, wrongState(t.Type, next.Status, domain.StatusResolved)
	}
	if err := setOnce(&next.ClosedAt, now, "closed_at", t.Type, next.Status); err != nil {
		return "", nil, err
	}
	next.Status = domain.StatusClosed
	return EventRequestClosed, RequestClosedPayload{}, nil
}

func (m *Machine) applyReopen(next *domain.MaintenanceRequest, t Transition) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusResolved {
		return "", nil, wrongState(t.Type, next.Status, domain.StatusResolved)
	}
	reason := strings.TrimSpace(t.Reason)
	if reason == "" {
		return "", nil, precondition(t.Type, next.Status, "reopen reason required")
	}
	startReworkCycle(next)
	return EventRequestReopened, RequestReopenedPayload{Reason: reason}, nil
}

// startReworkCycle reverts a completed unit of work so the assignee can redo
// it: both approval slots clear and the completion stage reopens.
func startReworkCycle(next *domain.MaintenanceRequest) {
	next.TenantReview = nil
	next.LandlordReview = nil
	next.CompletedAt = nil
	next.CompletionSLAMet = nil
	next.Status = domain.StatusInProgress
}

func wrongState(t TransitionType, current, expected domain.RequestStatus) *TransitionError {
	return NewTransitionError(KindInvalidTransition, t, current,
		"transition requires status "+string(expected))
}

func precondition(t TransitionType, status domain.RequestStatus, reason string) *TransitionError {
	return NewTransitionError(KindPreconditionFailed, t, status, reason)
}

// setOnce guards the monotonic stage timestamps: a field that is already set
// signals a duplicate or concurrent transition, not a silent no-op.
func setOnce(field **time.Time, v time.Time, name string, t TransitionType, status domain.RequestStatus) *TransitionError {
	if *field != nil {
		return NewTransitionError(KindInvalidTransition, t, status, name+" already set")
	}
	stamp := v
	*field = &stamp
	return nil
}
