package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// ErrVersionConflict signals an optimistic-concurrency loss: the snapshot
// the caller transitioned from is no longer current.
var ErrVersionConflict = errors.New("request version conflict")

// RequestFilter captures listing parameters.
type RequestFilter struct {
	TenantID   *string
	LandlordID *string
	AssigneeID *string
	PropertyID *string
	Statuses   []domain.RequestStatus
	Priorities []domain.Priority
	Limit      int
	Offset     int
}

// RequestRepository encapsulates maintenance request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.MaintenanceRequest) error
	GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error)
	GetByNumber(ctx context.Context, number string) (*domain.MaintenanceRequest, error)
	// UpdateVersioned persists the snapshot only if the stored version still
	// equals expectedVersion; otherwise ErrVersionConflict. On success the
	// snapshot's Version is bumped.
	UpdateVersioned(ctx context.Context, req *domain.MaintenanceRequest, expectedVersion int64) error
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.MaintenanceRequest, error)
	// ListOpen returns requests in non-terminal states for the SLA monitor.
	ListOpen(ctx context.Context, limit int) ([]domain.MaintenanceRequest, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `
        id, request_number, property_id, category_id, tenant_id, landlord_id, assignee_id,
        title, description, status, priority,
        created_at, approved_at, assigned_at, accepted_at, completed_at, closed_at,
        completion_notes, labor_cost, material_cost, call_out_cost, other_cost, media_keys,
        tenant_review_approved, tenant_review_rating, tenant_review_feedback, tenant_reviewed_at,
        landlord_review_approved, landlord_review_rating, landlord_review_feedback, landlord_reviewed_at,
        response_sla_met, assignment_sla_met, acceptance_sla_met, completion_sla_met,
        version, updated_at`

func (r *requestRepository) Create(ctx context.Context, req *domain.MaintenanceRequest) error {
	const query = `
        INSERT INTO maintenance_requests
            (request_number, property_id, category_id, tenant_id, landlord_id,
             title, description, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, version, updated_at`
	return r.pool.QueryRow(ctx, query,
		req.RequestNumber,
		req.PropertyID,
		req.CategoryID,
		req.TenantID,
		req.LandlordID,
		req.Title,
		req.Description,
		req.Status,
		req.Priority,
	).Scan(&req.ID, &req.CreatedAt, &req.Version, &req.UpdatedAt)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM maintenance_requests WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) GetByNumber(ctx context.Context, number string) (*domain.MaintenanceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM maintenance_requests WHERE request_number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *requestRepository) UpdateVersioned(ctx context.Context, req *domain.MaintenanceRequest, expectedVersion int64) error {
	const query = `
        UPDATE maintenance_requests SET
            assignee_id=$1, status=$2,
            approved_at=$3, assigned_at=$4, accepted_at=$5, completed_at=$6, closed_at=$7,
            completion_notes=$8, labor_cost=$9, material_cost=$10, call_out_cost=$11, other_cost=$12,
            media_keys=$13,
            tenant_review_approved=$14, tenant_review_rating=$15, tenant_review_feedback=$16, tenant_reviewed_at=$17,
            landlord_review_approved=$18, landlord_review_rating=$19, landlord_review_feedback=$20, landlord_reviewed_at=$21,
            response_sla_met=$22, assignment_sla_met=$23, acceptance_sla_met=$24, completion_sla_met=$25,
            version=version+1, updated_at=NOW()
        WHERE id=$26 AND version=$27`

	var labor, material, callOut, other *decimal.Decimal
	if req.Cost != nil {
		labor, material, callOut, other = &req.Cost.Labor, &req.Cost.Material, &req.Cost.CallOut, &req.Cost.Other
	}
	tenantApproved, tenantRating, tenantFeedback, tenantAt := reviewColumns(req.TenantReview)
	landlordApproved, landlordRating, landlordFeedback, landlordAt := reviewColumns(req.LandlordReview)

	cmd, err := r.pool.Exec(ctx, query,
		req.AssigneeID,
		req.Status,
		req.ApprovedAt,
		req.AssignedAt,
		req.AcceptedAt,
		req.CompletedAt,
		req.ClosedAt,
		req.CompletionNotes,
		labor, material, callOut, other,
		req.MediaKeys,
		tenantApproved, tenantRating, tenantFeedback, tenantAt,
		landlordApproved, landlordRating, landlordFeedback, landlordAt,
		req.ResponseSLAMet,
		req.AssignmentSLAMet,
		req.AcceptanceSLAMet,
		req.CompletionSLAMet,
		req.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Either the row is gone or someone else advanced the version.
		if _, getErr := r.GetByID(ctx, req.ID); getErr != nil {
			return getErr
		}
		return ErrVersionConflict
	}
	req.Version = expectedVersion + 1
	return nil
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.MaintenanceRequest, error) {
	conditions := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.TenantID != nil {
		conditions = append(conditions, "tenant_id="+arg(*filter.TenantID))
	}
	if filter.LandlordID != nil {
		conditions = append(conditions, "landlord_id="+arg(*filter.LandlordID))
	}
	if filter.AssigneeID != nil {
		conditions = append(conditions, "assignee_id="+arg(*filter.AssigneeID))
	}
	if filter.PropertyID != nil {
		conditions = append(conditions, "property_id="+arg(*filter.PropertyID))
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status=ANY("+arg(filter.Statuses)+")")
	}
	if len(filter.Priorities) > 0 {
		conditions = append(conditions, "priority=ANY("+arg(filter.Priorities)+")")
	}

	query := `SELECT ` + requestColumns + ` FROM maintenance_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	return r.fetchMany(ctx, query, args...)
}

func (r *requestRepository) ListOpen(ctx context.Context, limit int) ([]domain.MaintenanceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM maintenance_requests
        WHERE status NOT IN ($1, $2) ORDER BY created_at ASC`
	args := []any{domain.StatusClosed, domain.StatusRejected}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}
	return r.fetchMany(ctx, query, args...)
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.MaintenanceRequest, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanRequest(rows)
}

func (r *requestRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.MaintenanceRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MaintenanceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func scanRequest(rows pgx.Rows) (*domain.MaintenanceRequest, error) {
	var req domain.MaintenanceRequest
	var labor, material, callOut, other *decimal.Decimal
	var tenantApproved, landlordApproved *bool
	var tenantRating, landlordRating *int
	var tenantFeedback, landlordFeedback *string
	var tenantAt, landlordAt *time.Time

	if err := rows.Scan(
		&req.ID,
		&req.RequestNumber,
		&req.PropertyID,
		&req.CategoryID,
		&req.TenantID,
		&req.LandlordID,
		&req.AssigneeID,
		&req.Title,
		&req.Description,
		&req.Status,
		&req.Priority,
		&req.CreatedAt,
		&req.ApprovedAt,
		&req.AssignedAt,
		&req.AcceptedAt,
		&req.CompletedAt,
		&req.ClosedAt,
		&req.CompletionNotes,
		&labor, &material, &callOut, &other,
		&req.MediaKeys,
		&tenantApproved, &tenantRating, &tenantFeedback, &tenantAt,
		&landlordApproved, &landlordRating, &landlordFeedback, &landlordAt,
		&req.ResponseSLAMet,
		&req.AssignmentSLAMet,
		&req.AcceptanceSLAMet,
		&req.CompletionSLAMet,
		&req.Version,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if labor != nil {
		req.Cost = &domain.CostBreakdown{
			Labor:    *labor,
			Material: derefDecimal(material),
			CallOut:  derefDecimal(callOut),
			Other:    derefDecimal(other),
		}
	}
	req.TenantReview = assembleReview(tenantApproved, tenantRating, tenantFeedback, tenantAt)
	req.LandlordReview = assembleReview(landlordApproved, landlordRating, landlordFeedback, landlordAt)
	return &req, nil
}

func reviewColumns(review *domain.CompletionReview) (*bool, *int, *string, *time.Time) {
	if review == nil {
		return nil, nil, nil, nil
	}
	approved := review.Approved
	feedback := review.Feedback
	at := review.ReviewedAt
	return &approved, review.Rating, &feedback, &at
}

func assembleReview(approved *bool, rating *int, feedback *string, at *time.Time) *domain.CompletionReview {
	if approved == nil {
		return nil
	}
	review := &domain.CompletionReview{Approved: *approved, Rating: rating}
	if feedback != nil {
		review.Feedback = *feedback
	}
	if at != nil {
		review.ReviewedAt = *at
	}
	return review
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
