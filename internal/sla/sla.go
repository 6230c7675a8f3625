package sla

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// Stage is one SLA-tracked segment of the request lifecycle.
type Stage string

const (
	StageResponse   Stage = "response"   // pending -> under_review
	StageAssignment Stage = "assignment" // approved -> assigned
	StageAcceptance Stage = "acceptance" // assigned -> in_progress
	StageCompletion Stage = "completion" // in_progress -> pending_approval
)

// Stages lists the tracked stages in lifecycle order.
func Stages() []Stage {
	return []Stage{StageResponse, StageAssignment, StageAcceptance, StageCompletion}
}

// DeadlineStatus describes where a stage sits relative to its deadline.
type DeadlineStatus string

const (
	StatusNotApplicable DeadlineStatus = "NOT_APPLICABLE"
	StatusOnTime        DeadlineStatus = "ON_TIME"
	StatusApproaching   DeadlineStatus = "APPROACHING"
	StatusOverdue       DeadlineStatus = "OVERDUE"
	StatusMet           DeadlineStatus = "MET"
)

// Config holds the allowance per stage. Completion varies by priority; the
// other stages are fixed regardless of priority.
type Config struct {
	Response   time.Duration
	Assignment time.Duration
	Acceptance time.Duration
	Completion map[domain.Priority]time.Duration

	// ApproachingRatio is the fraction of the allowance remaining at which
	// an on-time stage flips to approaching.
	ApproachingRatio float64
}

// DefaultConfig returns the stock allowances.
func DefaultConfig() Config {
	return Config{
		Response:   24 * time.Hour,
		Assignment: 48 * time.Hour,
		Acceptance: 24 * time.Hour,
		Completion: map[domain.Priority]time.Duration{
			domain.PriorityEmergency: 24 * time.Hour,
			domain.PriorityUrgent:    72 * time.Hour,
			domain.PriorityNormal:    7 * 24 * time.Hour,
			domain.PriorityLow:       14 * 24 * time.Hour,
		},
		ApproachingRatio: 0.25,
	}
}

// Deadline is derived state for one stage. It is recomputed on read and
// never persisted; only the met boolean captured at stage close is stored
// on the aggregate.
type Deadline struct {
	Stage          Stage
	DeadlineAt     time.Time
	Status         DeadlineStatus
	PercentElapsed float64
}

// Calculator computes deadlines from a request's timestamps and priority.
type Calculator struct {
	cfg Config
}

// NewCalculator builds a calculator over the given allowances.
func NewCalculator(cfg Config) *Calculator {
	if cfg.ApproachingRatio <= 0 || cfg.ApproachingRatio >= 1 {
		cfg.ApproachingRatio = 0.25
	}
	return &Calculator{cfg: cfg}
}

// Allowance returns the configured duration for the stage at the priority.
func (c *Calculator) Allowance(stage Stage, priority domain.Priority) time.Duration {
	switch stage {
	case StageResponse:
		return c.cfg.Response
	case StageAssignment:
		return c.cfg.Assignment
	case StageAcceptance:
		return c.cfg.Acceptance
	case StageCompletion:
		if d, ok := c.cfg.Completion[priority]; ok {
			return d
		}
		return c.cfg.Completion[domain.PriorityNormal]
	}
	return 0
}

// EvaluateStage computes the deadline view for one stage. A nil entry means
// the stage has not started; exited means the stage already closed and the
// live deadline no longer applies.
func (c *Calculator) EvaluateStage(stage Stage, priority domain.Priority, entry *time.Time, exited bool, now time.Time) Deadline {
	if entry == nil {
		return Deadline{Stage: stage, Status: StatusNotApplicable}
	}

	allowance := c.Allowance(stage, priority)
	deadline := entry.Add(allowance)
	elapsed := now.Sub(*entry)
	percent := 0.0
	if allowance > 0 && elapsed > 0 {
		percent = float64(elapsed) / float64(allowance) * 100
	}

	result := Deadline{Stage: stage, DeadlineAt: deadline, PercentElapsed: percent}
	switch {
	case exited:
		result.Status = StatusMet
	case now.After(deadline):
		result.Status = StatusOverdue
	case deadline.Sub(now) <= time.Duration(float64(allowance)*c.cfg.ApproachingRatio):
		result.Status = StatusApproaching
	default:
		result.Status = StatusOnTime
	}
	return result
}

// Evaluate computes all four stage deadlines for the request as of now.
func (c *Calculator) Evaluate(req *domain.MaintenanceRequest, now time.Time) []Deadline {
	createdAt := req.CreatedAt
	return []Deadline{
		c.EvaluateStage(StageResponse, req.Priority, &createdAt, req.Status != domain.StatusPending, now),
		c.EvaluateStage(StageAssignment, req.Priority, req.ApprovedAt, req.AssignedAt != nil, now),
		c.EvaluateStage(StageAcceptance, req.Priority, req.AssignedAt, req.AcceptedAt != nil, now),
		c.EvaluateStage(StageCompletion, req.Priority, req.AcceptedAt, req.CompletedAt != nil, now),
	}
}

// MetAt reports whether closing the stage at now would satisfy its SLA.
// The lifecycle machine records this boolean on the aggregate when the
// stage actually closes.
func (c *Calculator) MetAt(stage Stage, priority domain.Priority, entry time.Time, now time.Time) bool {
	return !now.After(entry.Add(c.Allowance(stage, priority)))
}
