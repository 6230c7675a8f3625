package lifecycle

import (
	"strings"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// ConsensusOutcome describes what a completion review did to the request.
type ConsensusOutcome string

const (
	// OutcomeResolved: both slots approved (or the landlord override fired).
	OutcomeResolved ConsensusOutcome = "resolved"
	// OutcomeRework: a rejection reverted the request to in_progress and
	// cleared both slots for a fresh cycle.
	OutcomeRework ConsensusOutcome = "rework"
	// OutcomeAwaitingSecond: one approval recorded, waiting on the other
	// party. Not a failure.
	OutcomeAwaitingSecond ConsensusOutcome = "awaiting_second"
)

// applyCompletionReview resolves one party's verdict on completed work.
// Tenant and landlord each hold an independent slot; a party may submit
// only once per completion cycle.
func (m *Machine) applyCompletionReview(next *domain.MaintenanceRequest, t Transition, now time.Time) (EventType, any, *TransitionError) {
	if next.Status != domain.StatusPendingApproval {
		return "", nil, wrongState(t.Type, next.Status, domain.StatusPendingApproval)
	}

	slot := &next.LandlordReview
	reviewer := domain.RoleLandlord
	if t.Actor.Role == domain.RoleTenant {
		slot = &next.TenantReview
		reviewer = domain.RoleTenant
	}
	if *slot != nil {
		return "", nil, NewTransitionError(KindAlreadyReviewed, t.Type, next.Status,
			string(reviewer)+" already reviewed this completion")
	}

	payload := CompletionReviewedPayload{
		ReviewerRole: reviewer,
		Approved:     t.Approve,
		Rating:       t.Rating,
		Feedback:     strings.TrimSpace(t.Feedback),
	}

	if !t.Approve {
		reason := strings.TrimSpace(t.Reason)
		if len(reason) < 10 {
			return "", nil, precondition(t.Type, next.Status, "rejection reason must be at least 10 characters")
		}
		payload.Reason = reason
		startReworkCycle(next)
		payload.Outcome = OutcomeRework
		payload.NewStatus = next.Status
		return EventCompletionReviewed, payload, nil
	}

	if reviewer == domain.RoleTenant {
		if t.Rating == nil {
			return "", nil, precondition(t.Type, next.Status, "rating required for tenant approval")
		}
		if !domain.ValidRating(*t.Rating) {
			return "", nil, precondition(t.Type, next.Status, "rating must be between 1 and 5")
		}
	} else if t.Rating != nil && !domain.ValidRating(*t.Rating) {
		return "", nil, precondition(t.Type, next.Status, "rating must be between 1 and 5")
	}

	*slot = &domain.CompletionReview{
		Approved:   true,
		Rating:     t.Rating,
		Feedback:   payload.Feedback,
		ReviewedAt: now,
	}

	bothApproved := next.TenantReview != nil && next.TenantReview.Approved &&
		next.LandlordReview != nil && next.LandlordReview.Approved
	overrideFired := m.policy.LandlordOverride && reviewer == domain.RoleLandlord

	if bothApproved || overrideFired {
		next.Status = domain.StatusResolved
		payload.Outcome = OutcomeResolved
	} else {
		payload.Outcome = OutcomeAwaitingSecond
	}
	payload.NewStatus = next.Status
	return EventCompletionReviewed, payload, nil
}
