package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

func newPendingApprovalRequest(t *testing.T, m *Machine, clock *fakeClock) *domain.MaintenanceRequest {
	t.Helper()
	req := advanceToInProgress(t, m, clock, newPendingRequest(clock))
	return mustApply(t, m, req, Transition{
		Type:            TransitionCompleteWork,
		Actor:           caretaker,
		CompletionNotes: "work finished",
	})
}

func approveAs(actor domain.Actor, rating *int) Transition {
	return Transition{Type: TransitionReviewCompletion, Actor: actor, Approve: true, Rating: rating}
}

func rejectAs(actor domain.Actor, reason string) Transition {
	return Transition{Type: TransitionReviewCompletion, Actor: actor, Reason: reason}
}

func TestConsensusBothOrdersResolve(t *testing.T) {
	rating := 4

	t.Run("tenant first", func(t *testing.T) {
		m, clock := newTestMachine(Policy{})
		req := newPendingApprovalRequest(t, m, clock)

		result, err := m.Apply(req, approveAs(tenant, &rating))
		require.NoError(t, err)
		payload := result.Event.Payload.(CompletionReviewedPayload)
		require.Equal(t, OutcomeAwaitingSecond, payload.Outcome)
		require.Equal(t, domain.StatusPendingApproval, result.Request.Status)

		result, err = m.Apply(result.Request, approveAs(landlord, nil))
		require.NoError(t, err)
		payload = result.Event.Payload.(CompletionReviewedPayload)
		require.Equal(t, OutcomeResolved, payload.Outcome)
		require.Equal(t, domain.StatusResolved, result.Request.Status)
	})

	t.Run("landlord first", func(t *testing.T) {
		m, clock := newTestMachine(Policy{})
		req := newPendingApprovalRequest(t, m, clock)

		result, err := m.Apply(req, approveAs(landlord, nil))
		require.NoError(t, err)
		require.Equal(t, domain.StatusPendingApproval, result.Request.Status)

		result, err = m.Apply(result.Request, approveAs(tenant, &rating))
		require.NoError(t, err)
		require.Equal(t, domain.StatusResolved, result.Request.Status)
	})
}

func TestConsensusEitherRejectionForcesRework(t *testing.T) {
	rating := 5

	for _, tc := range []struct {
		name     string
		approver domain.Actor
		rejecter domain.Actor
	}{
		{"landlord rejects after tenant approval", tenant, landlord},
		{"tenant rejects after landlord approval", landlord, tenant},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, clock := newTestMachine(Policy{})
			req := newPendingApprovalRequest(t, m, clock)

			var first Transition
			if tc.approver.Role == domain.RoleTenant {
				first = approveAs(tc.approver, &rating)
			} else {
				first = approveAs(tc.approver, nil)
			}
			req = mustApply(t, m, req, first)

			result, err := m.Apply(req, rejectAs(tc.rejecter, "the repair did not hold"))
			require.NoError(t, err)
			payload := result.Event.Payload.(CompletionReviewedPayload)
			require.Equal(t, OutcomeRework, payload.Outcome)
			require.Equal(t, domain.StatusInProgress, result.Request.Status)
			require.Nil(t, result.Request.TenantReview)
			require.Nil(t, result.Request.LandlordReview)
			require.Nil(t, result.Request.CompletedAt)
		})
	}
}

func TestConsensusResubmissionRefused(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingApprovalRequest(t, m, clock)

	rating := 3
	req = mustApply(t, m, req, approveAs(tenant, &rating))

	_, err := m.Apply(req, approveAs(tenant, &rating))
	require.True(t, IsKind(err, KindAlreadyReviewed))

	// Rejection after a recorded approval is also a resubmission.
	_, err = m.Apply(req, rejectAs(tenant, "changed my mind about it"))
	require.True(t, IsKind(err, KindAlreadyReviewed))
}

func TestConsensusRejectionReasonLength(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingApprovalRequest(t, m, clock)

	_, err := m.Apply(req, rejectAs(tenant, "bad"))
	require.True(t, IsKind(err, KindPreconditionFailed))
}

func TestConsensusTenantApprovalNeedsValidRating(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingApprovalRequest(t, m, clock)

	_, err := m.Apply(req, approveAs(tenant, nil))
	require.True(t, IsKind(err, KindPreconditionFailed))

	high := 6
	_, err = m.Apply(req, approveAs(tenant, &high))
	require.True(t, IsKind(err, KindPreconditionFailed))

	// Landlord rating is optional but validated when present.
	zero := 0
	_, err = m.Apply(req, approveAs(landlord, &zero))
	require.True(t, IsKind(err, KindPreconditionFailed))
}

func TestConsensusLandlordOverridePolicy(t *testing.T) {
	m, clock := newTestMachine(Policy{LandlordOverride: true})
	req := newPendingApprovalRequest(t, m, clock)

	result, err := m.Apply(req, approveAs(landlord, nil))
	require.NoError(t, err)
	require.Equal(t, domain.StatusResolved, result.Request.Status)
	payload := result.Event.Payload.(CompletionReviewedPayload)
	require.Equal(t, OutcomeResolved, payload.Outcome)

	// Tenant approval alone never force-resolves, override or not.
	m2, clock2 := newTestMachine(Policy{LandlordOverride: true})
	req2 := newPendingApprovalRequest(t, m2, clock2)
	rating := 5
	result, err = m2.Apply(req2, approveAs(tenant, &rating))
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingApproval, result.Request.Status)
}

func TestConsensusSuperAdminFillsLandlordSlot(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingApprovalRequest(t, m, clock)

	req = mustApply(t, m, req, approveAs(admin, nil))
	require.NotNil(t, req.LandlordReview)
	require.Nil(t, req.TenantReview)

	_, err := m.Apply(req, approveAs(landlord, nil))
	require.True(t, IsKind(err, KindAlreadyReviewed))
}

func TestConsensusReviewRecordsTimestamp(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingApprovalRequest(t, m, clock)

	clock.Advance(90 * time.Minute)
	rating := 4
	req = mustApply(t, m, req, approveAs(tenant, &rating))
	require.Equal(t, clock.now, req.TenantReview.ReviewedAt)
	require.Equal(t, &rating, req.TenantReview.Rating)
}
