package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/sla"
)

// CreateRequestPayload payload.
type CreateRequestPayload struct {
	PropertyID  string          `json:"property_id"`
	CategoryID  string          `json:"category_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
}

// AssignPayload payload.
type AssignPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// ReasonPayload carries the free-text reason required by reject, decline
// and reopen.
type ReasonPayload struct {
	Reason string `json:"reason"`
}

// CostPayload carries monetary amounts as strings to keep exact decimals
// across the wire.
type CostPayload struct {
	Labor    string `json:"labor"`
	Material string `json:"material"`
	CallOut  string `json:"call_out"`
	Other    string `json:"other"`
}

// ToDomain parses the payload into a cost breakdown.
func (p *CostPayload) ToDomain() (*domain.CostBreakdown, error) {
	parse := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
	labor, err := parse(p.Labor)
	if err != nil {
		return nil, err
	}
	material, err := parse(p.Material)
	if err != nil {
		return nil, err
	}
	callOut, err := parse(p.CallOut)
	if err != nil {
		return nil, err
	}
	other, err := parse(p.Other)
	if err != nil {
		return nil, err
	}
	return &domain.CostBreakdown{Labor: labor, Material: material, CallOut: callOut, Other: other}, nil
}

// CompleteWorkPayload payload.
type CompleteWorkPayload struct {
	Notes     string       `json:"notes"`
	Cost      *CostPayload `json:"cost,omitempty"`
	MediaKeys []string     `json:"media_keys,omitempty"`
}

// ReviewCompletionPayload payload.
type ReviewCompletionPayload struct {
	Approved bool   `json:"approved"`
	Rating   *int   `json:"rating,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CostResponse response.
type CostResponse struct {
	Labor    string `json:"labor"`
	Material string `json:"material"`
	CallOut  string `json:"call_out"`
	Other    string `json:"other"`
	Total    string `json:"total"`
}

// ReviewResponse response.
type ReviewResponse struct {
	Approved   bool      `json:"approved"`
	Rating     *int      `json:"rating,omitempty"`
	Feedback   string    `json:"feedback,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// DeadlineResponse response.
type DeadlineResponse struct {
	Stage          string     `json:"stage"`
	DeadlineAt     *time.Time `json:"deadline_at,omitempty"`
	Status         string     `json:"status"`
	PercentElapsed float64    `json:"percent_elapsed"`
}

// RequestSummary response.
type RequestSummary struct {
	ID            string               `json:"id"`
	RequestNumber string               `json:"request_number"`
	PropertyID    string               `json:"property_id"`
	CategoryID    string               `json:"category_id"`
	Title         string               `json:"title"`
	Status        domain.RequestStatus `json:"status"`
	Priority      domain.Priority      `json:"priority"`
	AssigneeID    *string              `json:"assignee_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// RequestDetailResponse provides the full snapshot plus SLA state and the
// caller's available actions.
type RequestDetailResponse struct {
	RequestSummary
	Description     string             `json:"description"`
	TenantID        string             `json:"tenant_id"`
	LandlordID      string             `json:"landlord_id"`
	ApprovedAt      *time.Time         `json:"approved_at,omitempty"`
	AssignedAt      *time.Time         `json:"assigned_at,omitempty"`
	AcceptedAt      *time.Time         `json:"accepted_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	ClosedAt        *time.Time         `json:"closed_at,omitempty"`
	CompletionNotes string             `json:"completion_notes,omitempty"`
	Cost            *CostResponse      `json:"cost,omitempty"`
	MediaKeys       []string           `json:"media_keys,omitempty"`
	TenantReview    *ReviewResponse    `json:"tenant_review,omitempty"`
	LandlordReview  *ReviewResponse    `json:"landlord_review,omitempty"`
	Version         int64              `json:"version"`
	Deadlines       []DeadlineResponse `json:"deadlines"`
	Actions         []string           `json:"available_actions"`
}

// EventResponse represents one event log entry.
type EventResponse struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	ActorID   string      `json:"actor_id"`
	ActorRole domain.Role `json:"actor_role"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// FromRequestSummary maps the aggregate to its summary representation.
func FromRequestSummary(req *domain.MaintenanceRequest) RequestSummary {
	return RequestSummary{
		ID:            req.ID,
		RequestNumber: req.RequestNumber,
		PropertyID:    req.PropertyID,
		CategoryID:    req.CategoryID,
		Title:         req.Title,
		Status:        req.Status,
		Priority:      req.Priority,
		AssigneeID:    req.AssigneeID,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}
}

// FromRequestDetail maps the aggregate and its computed SLA deadlines and
// actions to the detail representation.
func FromRequestDetail(req *domain.MaintenanceRequest, deadlines []sla.Deadline, actions []lifecycle.TransitionType) RequestDetailResponse {
	resp := RequestDetailResponse{
		RequestSummary:  FromRequestSummary(req),
		Description:     req.Description,
		TenantID:        req.TenantID,
		LandlordID:      req.LandlordID,
		ApprovedAt:      req.ApprovedAt,
		AssignedAt:      req.AssignedAt,
		AcceptedAt:      req.AcceptedAt,
		CompletedAt:     req.CompletedAt,
		ClosedAt:        req.ClosedAt,
		CompletionNotes: req.CompletionNotes,
		MediaKeys:       req.MediaKeys,
		Version:         req.Version,
	}
	if req.Cost != nil {
		resp.Cost = &CostResponse{
			Labor:    req.Cost.Labor.StringFixed(2),
			Material: req.Cost.Material.StringFixed(2),
			CallOut:  req.Cost.CallOut.StringFixed(2),
			Other:    req.Cost.Other.StringFixed(2),
			Total:    req.Cost.Total().StringFixed(2),
		}
	}
	resp.TenantReview = fromReview(req.TenantReview)
	resp.LandlordReview = fromReview(req.LandlordReview)
	for _, d := range deadlines {
		item := DeadlineResponse{
			Stage:          string(d.Stage),
			Status:         string(d.Status),
			PercentElapsed: d.PercentElapsed,
		}
		if d.Status != sla.StatusNotApplicable {
			deadlineAt := d.DeadlineAt
			item.DeadlineAt = &deadlineAt
		}
		resp.Deadlines = append(resp.Deadlines, item)
	}
	resp.Actions = make([]string, 0, len(actions))
	for _, action := range actions {
		resp.Actions = append(resp.Actions, string(action))
	}
	return resp
}

// FromEvent maps an event log entry to its response representation.
func FromEvent(event lifecycle.Event) EventResponse {
	return EventResponse{
		ID:        event.ID,
		Type:      string(event.Type),
		ActorID:   event.ActorID,
		ActorRole: event.ActorRole,
		Timestamp: event.Timestamp,
		Payload:   event.Payload,
	}
}

func fromReview(review *domain.CompletionReview) *ReviewResponse {
	if review == nil {
		return nil
	}
	return &ReviewResponse{
		Approved:   review.Approved,
		Rating:     review.Rating,
		Feedback:   review.Feedback,
		ReviewedAt: review.ReviewedAt,
	}
}
