package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// PropertyRepository encapsulates property persistence.
type PropertyRepository interface {
	Create(ctx context.Context, property *domain.Property) error
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	ListByLandlord(ctx context.Context, landlordID string, limit, offset int) ([]domain.Property, error)
}

type propertyRepository struct {
	pool *pgxpool.Pool
}

// NewPropertyRepository instantiates the repository.
func NewPropertyRepository(pool *pgxpool.Pool) PropertyRepository {
	return &propertyRepository{pool: pool}
}

func (r *propertyRepository) Create(ctx context.Context, property *domain.Property) error {
	const query = `
        INSERT INTO properties (landlord_id, address, unit_label, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		property.LandlordID,
		property.Address,
		property.UnitLabel,
		property.Active,
	).Scan(&property.ID, &property.CreatedAt, &property.UpdatedAt)
}

func (r *propertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	const query = `
        SELECT id, landlord_id, address, unit_label, active, created_at, updated_at
        FROM properties WHERE id=$1`
	var property domain.Property
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&property.ID,
		&property.LandlordID,
		&property.Address,
		&property.UnitLabel,
		&property.Active,
		&property.CreatedAt,
		&property.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepository) ListByLandlord(ctx context.Context, landlordID string, limit, offset int) ([]domain.Property, error) {
	const query = `
        SELECT id, landlord_id, address, unit_label, active, created_at, updated_at
        FROM properties WHERE landlord_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, query, landlordID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Property
	for rows.Next() {
		var property domain.Property
		if err := rows.Scan(
			&property.ID,
			&property.LandlordID,
			&property.Address,
			&property.UnitLabel,
			&property.Active,
			&property.CreatedAt,
			&property.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, property)
	}
	return result, rows.Err()
}
