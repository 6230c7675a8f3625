package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// Replay folds an ordered event log into the snapshot it produces. The log
// is the source of truth; the persisted status and timestamps are a cached
// projection that this fold must reproduce.
//
// The fold covers the lifecycle fields: status, parties, stage timestamps,
// completion record and review slots. Free-form fields that never change
// after creation (description, request number) are not part of the log.
func Replay(log []Event) (*domain.MaintenanceRequest, error) {
	if len(log) == 0 {
		return nil, errors.New("empty event log")
	}
	created, ok := payloadAs[RequestCreatedPayload](log[0].Payload)
	if !ok || log[0].Type != EventRequestCreated {
		return nil, fmt.Errorf("log must start with %s", EventRequestCreated)
	}

	req := &domain.MaintenanceRequest{
		ID:         log[0].RequestID,
		TenantID:   log[0].ActorID,
		PropertyID: created.PropertyID,
		LandlordID: created.LandlordID,
		CategoryID: created.CategoryID,
		Priority:   created.Priority,
		Title:      created.Title,
		Status:     domain.StatusPending,
		CreatedAt:  log[0].Timestamp,
	}

	for _, event := range log[1:] {
		if err := fold(req, event); err != nil {
			return nil, err
		}
		req.UpdatedAt = event.Timestamp
	}
	return req, nil
}

func fold(req *domain.MaintenanceRequest, event Event) error {
	ts := event.Timestamp
	switch event.Type {
	case EventReviewStarted:
		payload, ok := payloadAs[ReviewStartedPayload](event.Payload)
		if !ok {
			return payloadError(event)
		}
		req.Status = domain.StatusUnderReview
		req.ResponseSLAMet = &payload.ResponseSLAMet
	case EventRequestApproved:
		req.Status = domain.StatusApproved
		req.ApprovedAt = &ts
	case EventRequestRejected:
		req.Status = domain.StatusRejected
	case EventRequestAssigned:
		payload, ok := payloadAs[RequestAssignedPayload](event.Payload)
		if !ok {
			return payloadError(event)
		}
		req.Status = domain.StatusAssigned
		req.AssigneeID = &payload.AssigneeID
		req.AssignedAt = &ts
		req.AssignmentSLAMet = &payload.AssignmentSLAMet
	case EventWorkAccepted:
		payload, ok := payloadAs[WorkAcceptedPayload](event.Payload)
		if !ok {
			return payloadError(event)
		}
		req.Status = domain.StatusInProgress
		req.AcceptedAt = &ts
		req.AcceptanceSLAMet = &payload.AcceptanceSLAMet
	case EventAssignmentDeclined:
		req.AssigneeID = nil
		req.AssignedAt = nil
		req.AssignmentSLAMet = nil
	case EventWorkCompleted:
		payload, ok := payloadAs[WorkCompletedPayload](event.Payload)
		if !ok {
			return payloadError(event)
		}
		req.Status = domain.StatusPendingApproval
		req.CompletedAt = &ts
		req.CompletionNotes = payload.Notes
		req.Cost = payload.Cost
		req.MediaKeys = payload.MediaKeys
		req.CompletionSLAMet = &payload.CompletionSLAMet
	case EventCompletionReviewed:
		payload, ok := payloadAs[CompletionReviewedPayload](event.Payload)
		if !ok {
			return payloadError(event)
		}
		if payload.Outcome == OutcomeRework {
			startReworkCycle(req)
			return nil
		}
		review := &domain.CompletionReview{
			Approved:   payload.Approved,
			Rating:     payload.Rating,
			Feedback:   payload.Feedback,
			ReviewedAt: ts,
		}
		if payload.ReviewerRole == domain.RoleTenant {
			req.TenantReview = review
		} else {
			req.LandlordReview = review
		}
		req.Status = payload.NewStatus
	case EventRequestClosed:
		req.Status = domain.StatusClosed
		req.ClosedAt = &ts
	case EventRequestReopened:
		startReworkCycle(req)
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
	return nil
}

func payloadError(event Event) error {
	return fmt.Errorf("event %s: unexpected payload %T", event.Type, event.Payload)
}

// payloadAs accepts both in-memory payload values and pointers.
func payloadAs[T any](payload any) (T, bool) {
	switch v := payload.(type) {
	case T:
		return v, true
	case *T:
		return *v, true
	}
	var zero T
	return zero, false
}

// DecodePayload rebuilds the typed payload for an event loaded from
// storage, where it round-trips through JSON.
func DecodePayload(t EventType, raw []byte) (any, error) {
	decode := func(target any) (any, error) {
		if len(raw) == 0 {
			return target, nil
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return target, nil
	}

	switch t {
	case EventRequestCreated:
		return decode(&RequestCreatedPayload{})
	case EventReviewStarted:
		return decode(&ReviewStartedPayload{})
	case EventRequestApproved:
		return decode(&RequestApprovedPayload{})
	case EventRequestRejected:
		return decode(&RequestRejectedPayload{})
	case EventRequestAssigned:
		return decode(&RequestAssignedPayload{})
	case EventWorkAccepted:
		return decode(&WorkAcceptedPayload{})
	case EventAssignmentDeclined:
		return decode(&AssignmentDeclinedPayload{})
	case EventWorkCompleted:
		return decode(&WorkCompletedPayload{})
	case EventCompletionReviewed:
		return decode(&CompletionReviewedPayload{})
	case EventRequestClosed:
		return decode(&RequestClosedPayload{})
	case EventRequestReopened:
		return decode(&RequestReopenedPayload{})
	case EventSLABreached:
		return decode(&SLABreachedPayload{})
	}
	return nil, fmt.Errorf("unknown event type %q", t)
}
