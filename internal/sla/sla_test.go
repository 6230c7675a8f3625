package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestAllowancePerStageAndPriority(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	require.Equal(t, 24*time.Hour, calc.Allowance(StageResponse, domain.PriorityLow))
	require.Equal(t, 48*time.Hour, calc.Allowance(StageAssignment, domain.PriorityEmergency))
	require.Equal(t, 24*time.Hour, calc.Allowance(StageAcceptance, domain.PriorityUrgent))

	// Only completion varies by priority.
	require.Equal(t, 24*time.Hour, calc.Allowance(StageCompletion, domain.PriorityEmergency))
	require.Equal(t, 72*time.Hour, calc.Allowance(StageCompletion, domain.PriorityUrgent))
	require.Equal(t, 7*24*time.Hour, calc.Allowance(StageCompletion, domain.PriorityNormal))
	require.Equal(t, 14*24*time.Hour, calc.Allowance(StageCompletion, domain.PriorityLow))

	// Unknown priority falls back to normal.
	require.Equal(t, 7*24*time.Hour, calc.Allowance(StageCompletion, domain.Priority("BOGUS")))
}

func TestEvaluateStageStatuses(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	entry := baseTime

	t.Run("not applicable before entry", func(t *testing.T) {
		d := calc.EvaluateStage(StageAssignment, domain.PriorityNormal, nil, false, baseTime)
		require.Equal(t, StatusNotApplicable, d.Status)
	})

	t.Run("on time early in the window", func(t *testing.T) {
		d := calc.EvaluateStage(StageResponse, domain.PriorityNormal, &entry, false, baseTime.Add(2*time.Hour))
		require.Equal(t, StatusOnTime, d.Status)
		require.Equal(t, baseTime.Add(24*time.Hour), d.DeadlineAt)
		require.InDelta(t, 100.0*2/24, d.PercentElapsed, 0.01)
	})

	t.Run("approaching within the last quarter", func(t *testing.T) {
		d := calc.EvaluateStage(StageResponse, domain.PriorityNormal, &entry, false, baseTime.Add(19*time.Hour))
		require.Equal(t, StatusApproaching, d.Status)
	})

	t.Run("overdue past the deadline", func(t *testing.T) {
		d := calc.EvaluateStage(StageResponse, domain.PriorityNormal, &entry, false, baseTime.Add(25*time.Hour))
		require.Equal(t, StatusOverdue, d.Status)
		require.Greater(t, d.PercentElapsed, 100.0)
	})

	t.Run("met once the stage closed", func(t *testing.T) {
		d := calc.EvaluateStage(StageResponse, domain.PriorityNormal, &entry, true, baseTime.Add(48*time.Hour))
		require.Equal(t, StatusMet, d.Status)
	})
}

func TestStatusMonotonicOverTime(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	entry := baseTime

	rank := map[DeadlineStatus]int{StatusOnTime: 0, StatusApproaching: 1, StatusOverdue: 2}
	prev := -1
	for hours := 0; hours <= 30; hours++ {
		d := calc.EvaluateStage(StageResponse, domain.PriorityNormal, &entry, false, baseTime.Add(time.Duration(hours)*time.Hour))
		current, ok := rank[d.Status]
		require.True(t, ok, "unexpected status %s", d.Status)
		require.GreaterOrEqual(t, current, prev, "status regressed at hour %d", hours)
		prev = current
	}
}

func TestEvaluateFollowsLifecycle(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	approved := baseTime.Add(2 * time.Hour)
	assigned := baseTime.Add(4 * time.Hour)

	req := &domain.MaintenanceRequest{
		Status:     domain.StatusAssigned,
		Priority:   domain.PriorityUrgent,
		CreatedAt:  baseTime,
		ApprovedAt: &approved,
		AssignedAt: &assigned,
	}

	deadlines := calc.Evaluate(req, baseTime.Add(5*time.Hour))
	require.Len(t, deadlines, 4)

	byStage := map[Stage]Deadline{}
	for _, d := range deadlines {
		byStage[d.Stage] = d
	}
	require.Equal(t, StatusMet, byStage[StageResponse].Status)
	require.Equal(t, StatusMet, byStage[StageAssignment].Status)
	require.Equal(t, StatusOnTime, byStage[StageAcceptance].Status)
	require.Equal(t, StatusNotApplicable, byStage[StageCompletion].Status)
}

func TestMetAtBoundary(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	require.True(t, calc.MetAt(StageResponse, domain.PriorityNormal, baseTime, baseTime.Add(24*time.Hour)))
	require.False(t, calc.MetAt(StageResponse, domain.PriorityNormal, baseTime, baseTime.Add(24*time.Hour+time.Second)))
	require.True(t, calc.MetAt(StageCompletion, domain.PriorityEmergency, baseTime, baseTime.Add(23*time.Hour)))
	require.False(t, calc.MetAt(StageCompletion, domain.PriorityEmergency, baseTime, baseTime.Add(25*time.Hour)))
}

func TestCalculatorSanitizesApproachingRatio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApproachingRatio = 3.5
	calc := NewCalculator(cfg)

	entry := baseTime
	d := calc.EvaluateStage(StageResponse, domain.PriorityNormal, &entry, false, baseTime.Add(time.Hour))
	require.Equal(t, StatusOnTime, d.Status)
}
