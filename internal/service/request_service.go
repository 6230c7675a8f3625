package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/sla"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// RequestService coordinates the maintenance request lifecycle: it owns
// persistence and the optimistic-concurrency guard around the pure engine.
type RequestService struct {
	requests   repository.RequestRepository
	eventLog   repository.EventRepository
	properties repository.PropertyRepository
	categories repository.CategoryRepository
	dispatcher events.Dispatcher
	machine    *lifecycle.Machine
	calc       *sla.Calculator
	now        func() time.Time
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo  repository.RequestRepository
	EventRepo    repository.EventRepository
	PropertyRepo repository.PropertyRepository
	CategoryRepo repository.CategoryRepository
	Dispatcher   events.Dispatcher
	Machine      *lifecycle.Machine
	Calculator   *sla.Calculator
	Now          func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RequestService{
		requests:   deps.RequestRepo,
		eventLog:   deps.EventRepo,
		properties: deps.PropertyRepo,
		categories: deps.CategoryRepo,
		dispatcher: deps.Dispatcher,
		machine:    deps.Machine,
		calc:       deps.Calculator,
		now:        now,
	}
}

// CreateInput describes request creation payload.
type CreateInput struct {
	PropertyID  string
	CategoryID  string
	Title       string
	Description string
	Priority    domain.Priority
}

// ListFilter describes listing parameters shared across the role-scoped
// listing endpoints.
type ListFilter struct {
	Statuses   []domain.RequestStatus
	Priorities []domain.Priority
	PropertyID *string
	Limit      int
	Offset     int
}

// Detail is a request snapshot together with its live SLA deadlines and
// the actions the caller may currently invoke.
type Detail struct {
	Request   *domain.MaintenanceRequest
	Deadlines []sla.Deadline
	Actions   []lifecycle.TransitionType
}

// CreateRequest opens a new maintenance request for a tenant. The owning
// landlord is resolved from the property so ownership checks need no joins
// later.
func (s *RequestService) CreateRequest(ctx context.Context, tenantID string, input CreateInput) (*domain.MaintenanceRequest, error) {
	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.Active {
		return nil, apperrors.NewConflict("category inactive", map[string]any{"category_id": category.ID})
	}

	property, err := s.properties.GetByID(ctx, input.PropertyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("property", map[string]any{"property_id": input.PropertyID})
		}
		return nil, apperrors.MapError(err)
	}
	if !property.Active {
		return nil, apperrors.NewConflict("property inactive", map[string]any{"property_id": property.ID})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	req := &domain.MaintenanceRequest{
		RequestNumber: generateRequestNumber(),
		PropertyID:    property.ID,
		CategoryID:    category.ID,
		TenantID:      tenantID,
		LandlordID:    property.LandlordID,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.StatusPending,
		Priority:      priority,
	}
	if req.Title == "" || req.Description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	created := lifecycle.Event{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Type:      lifecycle.EventRequestCreated,
		ActorID:   tenantID,
		ActorRole: domain.RoleTenant,
		Timestamp: req.CreatedAt,
		Payload: lifecycle.RequestCreatedPayload{
			PropertyID: req.PropertyID,
			LandlordID: req.LandlordID,
			CategoryID: req.CategoryID,
			Priority:   req.Priority,
			Title:      req.Title,
		},
	}
	if err := s.eventLog.Append(ctx, &created); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, created)
	return req, nil
}

// Transition applies one lifecycle transition under the optimistic
// concurrency guard. A lost race surfaces as CONFLICTING_TRANSITION and
// the caller retries against the fresh snapshot.
func (s *RequestService) Transition(ctx context.Context, actor domain.Actor, requestID string, t lifecycle.Transition) (*domain.MaintenanceRequest, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	t.Actor = actor
	result, err := s.machine.Apply(req, t)
	if err != nil {
		return nil, err
	}

	if err := s.requests.UpdateVersioned(ctx, result.Request, req.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, lifecycle.NewTransitionError(
				lifecycle.KindConflictingTransition, t.Type, req.Status,
				"request was modified concurrently; reload and retry")
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.eventLog.Append(ctx, &result.Event); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, result.Event)
	return result.Request, nil
}

// GetDetail loads a request with SLA deadlines and available actions for
// the caller. Visibility: the tenant, the owning landlord, the assignee
// and super admins.
func (s *RequestService) GetDetail(ctx context.Context, actor domain.Actor, requestID string) (*Detail, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !actorCanView(actor, req) {
		return nil, apperrors.NewForbidden("access denied")
	}

	now := s.now()
	detail := &Detail{
		Request:   req,
		Deadlines: s.calc.Evaluate(req, now),
	}
	for _, transition := range lifecycle.LegalFrom(req.Status) {
		if decision := lifecycle.CanTransition(actor, req, transition); decision.Allowed {
			detail.Actions = append(detail.Actions, transition)
		}
	}
	return detail, nil
}

// ListForActor returns the requests visible to the actor's role scope.
func (s *RequestService) ListForActor(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.MaintenanceRequest, error) {
	repoFilter := repository.RequestFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		PropertyID: filter.PropertyID,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	switch actor.Role {
	case domain.RoleTenant:
		repoFilter.TenantID = &actor.ID
	case domain.RoleLandlord:
		repoFilter.LandlordID = &actor.ID
	case domain.RoleCaretaker:
		repoFilter.AssigneeID = &actor.ID
	case domain.RoleSuperAdmin:
		// unscoped
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}
	result, err := s.requests.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// History returns the ordered event log for a request.
func (s *RequestService) History(ctx context.Context, actor domain.Actor, requestID string) ([]lifecycle.Event, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !actorCanView(actor, req) {
		return nil, apperrors.NewForbidden("access denied")
	}
	log, err := s.eventLog.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return log, nil
}

// Replay folds the stored event log back into a snapshot. Super admins use
// it to verify the cached projection against the authoritative log.
func (s *RequestService) Replay(ctx context.Context, requestID string) (*domain.MaintenanceRequest, error) {
	log, err := s.eventLog.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	replayed, err := lifecycle.Replay(log)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return replayed, nil
}

func (s *RequestService) loadRequest(ctx context.Context, requestID string) (*domain.MaintenanceRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func (s *RequestService) publish(ctx context.Context, event lifecycle.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorCanView(actor domain.Actor, req *domain.MaintenanceRequest) bool {
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return true
	case domain.RoleTenant:
		return actor.ID == req.TenantID
	case domain.RoleLandlord:
		return actor.ID == req.LandlordID
	case domain.RoleCaretaker:
		return req.AssigneeID != nil && actor.ID == *req.AssigneeID
	}
	return false
}

func generateRequestNumber() string {
	return "MR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
