package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/sla"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

type fakeRequestRepo struct {
	byID map[string]*domain.MaintenanceRequest
	// conflictOnce simulates a concurrent writer winning the version race on
	// the next UpdateVersioned call.
	conflictOnce bool
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{byID: map[string]*domain.MaintenanceRequest{}}
}

func (f *fakeRequestRepo) Create(_ context.Context, req *domain.MaintenanceRequest) error {
	req.ID = uuid.NewString()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	req.Version = 1
	f.byID[req.ID] = req.Clone()
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id string) (*domain.MaintenanceRequest, error) {
	req, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return req.Clone(), nil
}

func (f *fakeRequestRepo) GetByNumber(_ context.Context, number string) (*domain.MaintenanceRequest, error) {
	for _, req := range f.byID {
		if req.RequestNumber == number {
			return req.Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRequestRepo) UpdateVersioned(_ context.Context, req *domain.MaintenanceRequest, expectedVersion int64) error {
	stored, ok := f.byID[req.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if f.conflictOnce {
		f.conflictOnce = false
		return repository.ErrVersionConflict
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	next := req.Clone()
	next.Version = expectedVersion + 1
	f.byID[req.ID] = next
	req.Version = next.Version
	return nil
}

func (f *fakeRequestRepo) ListWithFilter(_ context.Context, filter repository.RequestFilter) ([]domain.MaintenanceRequest, error) {
	var result []domain.MaintenanceRequest
	for _, req := range f.byID {
		if filter.TenantID != nil && req.TenantID != *filter.TenantID {
			continue
		}
		if filter.LandlordID != nil && req.LandlordID != *filter.LandlordID {
			continue
		}
		if filter.AssigneeID != nil && (req.AssigneeID == nil || *req.AssigneeID != *filter.AssigneeID) {
			continue
		}
		result = append(result, *req.Clone())
	}
	return result, nil
}

func (f *fakeRequestRepo) ListOpen(_ context.Context, _ int) ([]domain.MaintenanceRequest, error) {
	var result []domain.MaintenanceRequest
	for _, req := range f.byID {
		if !req.Status.Terminal() {
			result = append(result, *req.Clone())
		}
	}
	return result, nil
}

type fakeEventRepo struct {
	events []lifecycle.Event
}

func (f *fakeEventRepo) Append(_ context.Context, event *lifecycle.Event) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeEventRepo) ListByRequest(_ context.Context, requestID string) ([]lifecycle.Event, error) {
	var result []lifecycle.Event
	for _, event := range f.events {
		if event.RequestID == requestID {
			result = append(result, event)
		}
	}
	return result, nil
}

type fakePropertyRepo struct {
	byID map[string]*domain.Property
}

func (f *fakePropertyRepo) Create(_ context.Context, property *domain.Property) error {
	property.ID = uuid.NewString()
	f.byID[property.ID] = property
	return nil
}

func (f *fakePropertyRepo) GetByID(_ context.Context, id string) (*domain.Property, error) {
	property, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return property, nil
}

func (f *fakePropertyRepo) ListByLandlord(_ context.Context, landlordID string, _, _ int) ([]domain.Property, error) {
	var result []domain.Property
	for _, property := range f.byID {
		if property.LandlordID == landlordID {
			result = append(result, *property)
		}
	}
	return result, nil
}

type fakeCategoryRepo struct {
	byID map[string]*domain.Category
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	category, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return category, nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	var result []domain.Category
	for _, category := range f.byID {
		result = append(result, *category)
	}
	return result, nil
}

type testEnv struct {
	service  *RequestService
	requests *fakeRequestRepo
	eventLog *fakeEventRepo
	tenant   domain.Actor
	landlord domain.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tenantActor := domain.Actor{ID: "tenant-1", Role: domain.RoleTenant}
	landlordActor := domain.Actor{ID: "landlord-1", Role: domain.RoleLandlord}

	properties := &fakePropertyRepo{byID: map[string]*domain.Property{
		"prop-1": {ID: "prop-1", LandlordID: landlordActor.ID, Address: "12 Elm St", Active: true},
		"prop-2": {ID: "prop-2", LandlordID: landlordActor.ID, Address: "9 Oak Ave", Active: false},
	}}
	categories := &fakeCategoryRepo{byID: map[string]*domain.Category{
		"cat-1": {ID: "cat-1", Name: "Plumbing", Active: true},
		"cat-2": {ID: "cat-2", Name: "Retired", Active: false},
	}}
	requests := newFakeRequestRepo()
	eventLog := &fakeEventRepo{}

	calc := sla.NewCalculator(sla.DefaultConfig())
	machine := lifecycle.NewMachine(calc, lifecycle.Policy{}, nil)

	svc := NewRequestService(RequestDependencies{
		RequestRepo:  requests,
		EventRepo:    eventLog,
		PropertyRepo: properties,
		CategoryRepo: categories,
		Dispatcher:   events.NewInMemoryDispatcher(),
		Machine:      machine,
		Calculator:   calc,
	})

	return &testEnv{
		service:  svc,
		requests: requests,
		eventLog: eventLog,
		tenant:   tenantActor,
		landlord: landlordActor,
	}
}

func (e *testEnv) createRequest(t *testing.T) *domain.MaintenanceRequest {
	t.Helper()
	req, err := e.service.CreateRequest(context.Background(), e.tenant.ID, CreateInput{
		PropertyID:  "prop-1",
		CategoryID:  "cat-1",
		Title:       "Leaking tap",
		Description: "The kitchen tap drips",
		Priority:    domain.PriorityNormal,
	})
	require.NoError(t, err)
	return req
}

func TestCreateRequestResolvesLandlordAndLogsEvent(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t)

	require.Equal(t, env.landlord.ID, req.LandlordID)
	require.Equal(t, domain.StatusPending, req.Status)
	require.NotEmpty(t, req.ID)
	require.Regexp(t, `^MR-[0-9A-F]{8}$`, req.RequestNumber)

	require.Len(t, env.eventLog.events, 1)
	require.Equal(t, lifecycle.EventRequestCreated, env.eventLog.events[0].Type)
	require.Equal(t, env.tenant.ID, env.eventLog.events[0].ActorID)
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CreateRequest(ctx, env.tenant.ID, CreateInput{
		PropertyID: "prop-1", CategoryID: "missing", Title: "x", Description: "y",
	})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "NOT_FOUND", domainErr.Code)

	_, err = env.service.CreateRequest(ctx, env.tenant.ID, CreateInput{
		PropertyID: "prop-1", CategoryID: "cat-2", Title: "x", Description: "y",
	})
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "CONFLICT", domainErr.Code)

	_, err = env.service.CreateRequest(ctx, env.tenant.ID, CreateInput{
		PropertyID: "prop-2", CategoryID: "cat-1", Title: "x", Description: "y",
	})
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "CONFLICT", domainErr.Code)

	_, err = env.service.CreateRequest(ctx, env.tenant.ID, CreateInput{
		PropertyID: "prop-1", CategoryID: "cat-1", Title: "  ", Description: "y",
	})
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestTransitionPersistsAndAppendsEvent(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t)

	updated, err := env.service.Transition(context.Background(), env.landlord, req.ID, lifecycle.Transition{
		Type: lifecycle.TransitionStartReview,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnderReview, updated.Status)
	require.Equal(t, int64(2), updated.Version)

	stored, err := env.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnderReview, stored.Status)

	require.Len(t, env.eventLog.events, 2)
	require.Equal(t, lifecycle.EventReviewStarted, env.eventLog.events[1].Type)
}

func TestTransitionVersionConflictIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t)

	env.requests.conflictOnce = true
	_, err := env.service.Transition(context.Background(), env.landlord, req.ID, lifecycle.Transition{
		Type: lifecycle.TransitionStartReview,
	})
	require.Error(t, err)
	require.True(t, lifecycle.IsKind(err, lifecycle.KindConflictingTransition))

	var te *lifecycle.TransitionError
	require.ErrorAs(t, err, &te)
	require.True(t, te.Retryable())

	// The snapshot is untouched; the retry against fresh state goes through.
	retried, err := env.service.Transition(context.Background(), env.landlord, req.ID, lifecycle.Transition{
		Type: lifecycle.TransitionStartReview,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnderReview, retried.Status)

	// The failed attempt left nothing in the log.
	require.Len(t, env.eventLog.events, 2)
}

func TestTransitionRefusalAppendsNothing(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t)

	_, err := env.service.Transition(context.Background(), env.tenant, req.ID, lifecycle.Transition{
		Type: lifecycle.TransitionApprove,
	})
	require.True(t, lifecycle.IsKind(err, lifecycle.KindUnauthorized))
	require.Len(t, env.eventLog.events, 1)

	stored, err := env.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status)
	require.Equal(t, int64(1), stored.Version)
}

func TestGetDetailVisibility(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t)
	ctx := context.Background()

	detail, err := env.service.GetDetail(ctx, env.tenant, req.ID)
	require.NoError(t, err)
	require.Len(t, detail.Deadlines, 4)
	require.Empty(t, detail.Actions) // pending offers only landlord actions

	detail, err = env.service.GetDetail(ctx, env.landlord, req.ID)
	require.NoError(t, err)
	require.Equal(t, []lifecycle.TransitionType{lifecycle.TransitionStartReview}, detail.Actions)

	outsider := domain.Actor{ID: "tenant-2", Role: domain.RoleTenant}
	_, err = env.service.GetDetail(ctx, outsider, req.ID)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "FORBIDDEN", domainErr.Code)

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleSuperAdmin}
	_, err = env.service.GetDetail(ctx, admin, req.ID)
	require.NoError(t, err)
}

func TestListForActorScopes(t *testing.T) {
	env := newTestEnv(t)
	env.createRequest(t)
	ctx := context.Background()

	mine, err := env.service.ListForActor(ctx, env.tenant, ListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	otherTenant := domain.Actor{ID: "tenant-2", Role: domain.RoleTenant}
	none, err := env.service.ListForActor(ctx, otherTenant, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, none)

	landlords, err := env.service.ListForActor(ctx, env.landlord, ListFilter{})
	require.NoError(t, err)
	require.Len(t, landlords, 1)
}

func TestReplayMatchesStoredProjection(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t)
	ctx := context.Background()

	caretakerActor := domain.Actor{ID: "caretaker-1", Role: domain.RoleCaretaker}
	steps := []struct {
		actor domain.Actor
		t     lifecycle.Transition
	}{
		{env.landlord, lifecycle.Transition{Type: lifecycle.TransitionStartReview}},
		{env.landlord, lifecycle.Transition{Type: lifecycle.TransitionApprove}},
		{env.landlord, lifecycle.Transition{Type: lifecycle.TransitionAssign, AssigneeID: caretakerActor.ID}},
		{caretakerActor, lifecycle.Transition{Type: lifecycle.TransitionAccept}},
	}
	for _, step := range steps {
		_, err := env.service.Transition(ctx, step.actor, req.ID, step.t)
		require.NoError(t, err)
	}

	stored, err := env.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)

	replayed, err := env.service.Replay(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, stored.Status, replayed.Status)
	require.Equal(t, stored.AssigneeID, replayed.AssigneeID)
	require.Equal(t, stored.AcceptedAt, replayed.AcceptedAt)
}

func TestHistoryRequiresVisibility(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t)
	ctx := context.Background()

	log, err := env.service.History(ctx, env.tenant, req.ID)
	require.NoError(t, err)
	require.Len(t, log, 1)

	outsider := domain.Actor{ID: "landlord-2", Role: domain.RoleLandlord}
	_, err = env.service.History(ctx, outsider, req.ID)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "FORBIDDEN", domainErr.Code)
}
