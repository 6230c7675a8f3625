package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/lifecycle"
)

// EventRepository stores the append-only request event log. Ordering is by
// insertion sequence, not timestamp, so replays are deterministic even when
// two events share a wall-clock instant.
type EventRepository interface {
	Append(ctx context.Context, event *lifecycle.Event) error
	ListByRequest(ctx context.Context, requestID string) ([]lifecycle.Event, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository builds the repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Append(ctx context.Context, event *lifecycle.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	const query = `
        INSERT INTO request_events (id, request_id, event_type, actor_id, actor_role, payload, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.RequestID,
		event.Type,
		event.ActorID,
		event.ActorRole,
		payload,
		event.Timestamp,
	)
	return err
}

func (r *eventRepository) ListByRequest(ctx context.Context, requestID string) ([]lifecycle.Event, error) {
	const query = `
        SELECT id, request_id, event_type, actor_id, actor_role, payload, occurred_at
        FROM request_events WHERE request_id=$1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lifecycle.Event
	for rows.Next() {
		var event lifecycle.Event
		var raw []byte
		if err := rows.Scan(
			&event.ID,
			&event.RequestID,
			&event.Type,
			&event.ActorID,
			&event.ActorRole,
			&raw,
			&event.Timestamp,
		); err != nil {
			return nil, err
		}
		payload, err := lifecycle.DecodePayload(event.Type, raw)
		if err != nil {
			return nil, err
		}
		event.Payload = payload
		result = append(result, event)
	}
	return result, rows.Err()
}
