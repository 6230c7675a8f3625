package lifecycle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/sla"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

var (
	tenant    = domain.Actor{ID: "tenant-1", Role: domain.RoleTenant}
	landlord  = domain.Actor{ID: "landlord-1", Role: domain.RoleLandlord}
	caretaker = domain.Actor{ID: "caretaker-1", Role: domain.RoleCaretaker}
	admin     = domain.Actor{ID: "admin-1", Role: domain.RoleSuperAdmin}
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMachine(policy Policy) (*Machine, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	return NewMachine(sla.NewCalculator(sla.DefaultConfig()), policy, clock.Now), clock
}

func newPendingRequest(clock *fakeClock) *domain.MaintenanceRequest {
	return &domain.MaintenanceRequest{
		ID:            "req-1",
		RequestNumber: "MR-TEST0001",
		PropertyID:    "prop-1",
		CategoryID:    "cat-1",
		TenantID:      tenant.ID,
		LandlordID:    landlord.ID,
		Title:         "Leaking kitchen tap",
		Description:   "Tap drips constantly",
		Status:        domain.StatusPending,
		Priority:      domain.PriorityNormal,
		CreatedAt:     clock.now,
		Version:       1,
	}
}

func mustApply(t *testing.T, m *Machine, req *domain.MaintenanceRequest, tr Transition) *domain.MaintenanceRequest {
	t.Helper()
	result, err := m.Apply(req, tr)
	require.NoError(t, err)
	return result.Request
}

func advanceToInProgress(t *testing.T, m *Machine, clock *fakeClock, req *domain.MaintenanceRequest) *domain.MaintenanceRequest {
	t.Helper()
	req = mustApply(t, m, req, Transition{Type: TransitionStartReview, Actor: landlord})
	req = mustApply(t, m, req, Transition{Type: TransitionApprove, Actor: landlord})
	req = mustApply(t, m, req, Transition{Type: TransitionAssign, Actor: landlord, AssigneeID: caretaker.ID})
	clock.Advance(time.Hour)
	return mustApply(t, m, req, Transition{Type: TransitionAccept, Actor: caretaker})
}

func TestHappyPathToResolved(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)

	clock.Advance(2 * time.Hour)
	req = mustApply(t, m, req, Transition{Type: TransitionStartReview, Actor: landlord})
	require.Equal(t, domain.StatusUnderReview, req.Status)
	require.NotNil(t, req.ResponseSLAMet)
	require.True(t, *req.ResponseSLAMet)

	req = mustApply(t, m, req, Transition{Type: TransitionApprove, Actor: landlord})
	require.Equal(t, domain.StatusApproved, req.Status)
	require.NotNil(t, req.ApprovedAt)

	req = mustApply(t, m, req, Transition{Type: TransitionAssign, Actor: landlord, AssigneeID: caretaker.ID})
	require.Equal(t, domain.StatusAssigned, req.Status)
	require.Equal(t, caretaker.ID, *req.AssigneeID)

	clock.Advance(time.Hour)
	req = mustApply(t, m, req, Transition{Type: TransitionAccept, Actor: caretaker})
	require.Equal(t, domain.StatusInProgress, req.Status)
	require.True(t, *req.AcceptanceSLAMet)

	clock.Advance(3 * time.Hour)
	req = mustApply(t, m, req, Transition{
		Type:            TransitionCompleteWork,
		Actor:           caretaker,
		CompletionNotes: "Replaced washer and tested",
		MediaKeys:       []string{"media/after.jpg"},
	})
	require.Equal(t, domain.StatusPendingApproval, req.Status)
	require.True(t, *req.CompletionSLAMet)
	require.Equal(t, []string{"media/after.jpg"}, req.MediaKeys)

	rating := 5
	req = mustApply(t, m, req, Transition{
		Type:    TransitionReviewCompletion,
		Actor:   tenant,
		Approve: true,
		Rating:  &rating,
	})
	require.Equal(t, domain.StatusPendingApproval, req.Status)
	require.NotNil(t, req.TenantReview)

	req = mustApply(t, m, req, Transition{
		Type:    TransitionReviewCompletion,
		Actor:   landlord,
		Approve: true,
	})
	require.Equal(t, domain.StatusResolved, req.Status)

	req = mustApply(t, m, req, Transition{Type: TransitionClose, Actor: tenant})
	require.Equal(t, domain.StatusClosed, req.Status)
	require.NotNil(t, req.ClosedAt)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)

	result, err := m.Apply(req, Transition{Type: TransitionStartReview, Actor: landlord})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, req.Status)
	require.Nil(t, req.ResponseSLAMet)
	require.Equal(t, domain.StatusUnderReview, result.Request.Status)
}

func TestEveryTransitionEmitsOneEvent(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)

	result, err := m.Apply(req, Transition{Type: TransitionStartReview, Actor: landlord})
	require.NoError(t, err)
	require.Equal(t, EventReviewStarted, result.Event.Type)
	require.Equal(t, req.ID, result.Event.RequestID)
	require.Equal(t, landlord.ID, result.Event.ActorID)
	require.Equal(t, domain.RoleLandlord, result.Event.ActorRole)
	require.NotEmpty(t, result.Event.ID)
}

func TestTerminalStatesRefuseEverything(t *testing.T) {
	m, clock := newTestMachine(Policy{})

	for _, status := range []domain.RequestStatus{domain.StatusRejected, domain.StatusClosed} {
		req := newPendingRequest(clock)
		req.Status = status
		for _, transition := range []TransitionType{
			TransitionStartReview, TransitionApprove, TransitionAssign,
			TransitionAccept, TransitionCompleteWork, TransitionReopen,
		} {
			_, err := m.Apply(req, Transition{Type: transition, Actor: admin})
			require.Error(t, err)
			require.True(t, IsKind(err, KindTerminalState), "%s from %s", transition, status)
		}
	}
}

func TestRejectRequiresReason(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)
	req = mustApply(t, m, req, Transition{Type: TransitionStartReview, Actor: landlord})

	_, err := m.Apply(req, Transition{Type: TransitionReject, Actor: landlord})
	require.True(t, IsKind(err, KindPreconditionFailed))

	req = mustApply(t, m, req, Transition{Type: TransitionReject, Actor: landlord, Reason: "duplicate of MR-X"})
	require.Equal(t, domain.StatusRejected, req.Status)
}

func TestWrongStateIsInvalidTransition(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)

	_, err := m.Apply(req, Transition{Type: TransitionApprove, Actor: landlord})
	require.True(t, IsKind(err, KindInvalidTransition))

	_, err = m.Apply(req, Transition{Type: TransitionClose, Actor: tenant})
	require.True(t, IsKind(err, KindInvalidTransition))
}

func TestDeclineClearsAssigneeAndAllowsReassign(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)
	req = mustApply(t, m, req, Transition{Type: TransitionStartReview, Actor: landlord})
	req = mustApply(t, m, req, Transition{Type: TransitionApprove, Actor: landlord})
	req = mustApply(t, m, req, Transition{Type: TransitionAssign, Actor: landlord, AssigneeID: caretaker.ID})

	_, err := m.Apply(req, Transition{Type: TransitionDecline, Actor: caretaker, Reason: "too short"})
	require.True(t, IsKind(err, KindPreconditionFailed))

	req = mustApply(t, m, req, Transition{Type: TransitionDecline, Actor: caretaker, Reason: "no availability this month"})
	require.Equal(t, domain.StatusAssigned, req.Status)
	require.Nil(t, req.AssigneeID)
	require.Nil(t, req.AssignedAt)

	// A declined request takes a fresh assignment.
	clock.Advance(time.Hour)
	req = mustApply(t, m, req, Transition{Type: TransitionAssign, Actor: landlord, AssigneeID: "caretaker-2"})
	require.Equal(t, "caretaker-2", *req.AssigneeID)
}

func TestAssignRefusedWhileSlotOccupied(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)
	req = mustApply(t, m, req, Transition{Type: TransitionStartReview, Actor: landlord})
	req = mustApply(t, m, req, Transition{Type: TransitionApprove, Actor: landlord})
	req = mustApply(t, m, req, Transition{Type: TransitionAssign, Actor: landlord, AssigneeID: caretaker.ID})

	_, err := m.Apply(req, Transition{Type: TransitionAssign, Actor: landlord, AssigneeID: "caretaker-2"})
	require.True(t, IsKind(err, KindInvalidTransition))
}

func TestCompleteWorkValidation(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := advanceToInProgress(t, m, clock, newPendingRequest(clock))

	_, err := m.Apply(req, Transition{Type: TransitionCompleteWork, Actor: caretaker})
	require.True(t, IsKind(err, KindPreconditionFailed))

	cost := &domain.CostBreakdown{Labor: decimalFromString(t, "-10")}
	_, err = m.Apply(req, Transition{
		Type:            TransitionCompleteWork,
		Actor:           caretaker,
		CompletionNotes: "fixed",
		Cost:            cost,
	})
	require.True(t, IsKind(err, KindPreconditionFailed))
}

func TestCompletionOverdueRecordsMissedSLA(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)
	req.Priority = domain.PriorityEmergency
	req = advanceToInProgress(t, m, clock, req)

	clock.Advance(48 * time.Hour) // emergency allows 24h
	req = mustApply(t, m, req, Transition{
		Type:            TransitionCompleteWork,
		Actor:           caretaker,
		CompletionNotes: "replaced burst pipe",
	})
	require.NotNil(t, req.CompletionSLAMet)
	require.False(t, *req.CompletionSLAMet)
}

func TestReopenStartsReworkCycle(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := advanceToInProgress(t, m, clock, newPendingRequest(clock))
	req = mustApply(t, m, req, Transition{Type: TransitionCompleteWork, Actor: caretaker, CompletionNotes: "done"})

	rating := 4
	req = mustApply(t, m, req, Transition{Type: TransitionReviewCompletion, Actor: tenant, Approve: true, Rating: &rating})
	req = mustApply(t, m, req, Transition{Type: TransitionReviewCompletion, Actor: landlord, Approve: true})
	require.Equal(t, domain.StatusResolved, req.Status)

	_, err := m.Apply(req, Transition{Type: TransitionReopen, Actor: tenant})
	require.True(t, IsKind(err, KindPreconditionFailed))

	req = mustApply(t, m, req, Transition{Type: TransitionReopen, Actor: tenant, Reason: "tap still drips"})
	require.Equal(t, domain.StatusInProgress, req.Status)
	require.Nil(t, req.TenantReview)
	require.Nil(t, req.LandlordReview)
	require.Nil(t, req.CompletedAt)
	require.Nil(t, req.CompletionSLAMet)

	// The next cycle records a fresh completion timestamp.
	clock.Advance(time.Hour)
	req = mustApply(t, m, req, Transition{Type: TransitionCompleteWork, Actor: caretaker, CompletionNotes: "resealed the joint"})
	require.Equal(t, domain.StatusPendingApproval, req.Status)
	require.NotNil(t, req.CompletedAt)
}

func TestUnauthorizedActorsAreRefusedBeforeStateChecks(t *testing.T) {
	m, clock := newTestMachine(Policy{})
	req := newPendingRequest(clock)

	otherLandlord := domain.Actor{ID: "landlord-2", Role: domain.RoleLandlord}
	_, err := m.Apply(req, Transition{Type: TransitionStartReview, Actor: otherLandlord})
	require.True(t, IsKind(err, KindUnauthorized))

	_, err = m.Apply(req, Transition{Type: TransitionStartReview, Actor: tenant})
	require.True(t, IsKind(err, KindUnauthorized))

	// Super admin bypasses ownership but not state legality.
	_, err = m.Apply(req, Transition{Type: TransitionApprove, Actor: admin})
	require.True(t, IsKind(err, KindInvalidTransition))
}
