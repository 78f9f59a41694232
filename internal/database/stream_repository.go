package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

// streamColumns must match the Scan order in scanStream.
const streamColumns = `id, event_id, platform, internal_id, channel, title, url, created_at, updated_at`

// StreamRepo implements domain.StreamRegistry backed by PostgreSQL.
type StreamRepo struct {
	db *sql.DB
}

// NewStreamRepo creates a StreamRepo from the shared DB connection.
func NewStreamRepo(db *DB) *StreamRepo {
	return &StreamRepo{db: db.DB}
}

func scanStream(row interface{ Scan(...any) error }) (*domain.EventStream, error) {
	var s domain.EventStream
	err := row.Scan(
		&s.ID, &s.EventID, &s.Platform, &s.InternalID, &s.Channel,
		&s.Title, &s.URL, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByEventIDs returns the streams for the given events. An empty id set
// yields an empty list, never the whole registry.
func (r *StreamRepo) ListByEventIDs(ctx context.Context, eventIDs []uuid.UUID) ([]domain.EventStream, error) {
	if len(eventIDs) == 0 {
		return []domain.EventStream{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+streamColumns+` FROM event_streams
		WHERE event_id = ANY($1) ORDER BY created_at DESC
	`, pq.Array(eventIDs))
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("list_streams").Inc()
		return nil, fmt.Errorf("failed to list event streams: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var streams []domain.EventStream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event stream: %w", err)
		}
		streams = append(streams, *s)
	}
	return streams, rows.Err()
}

func (r *StreamRepo) GetByKey(ctx context.Context, eventID uuid.UUID, platform domain.Platform, channel string) (*domain.EventStream, error) {
	s, err := scanStream(r.db.QueryRowContext(ctx, `
		SELECT `+streamColumns+` FROM event_streams
		WHERE event_id = $1 AND platform = $2 AND channel = $3
	`, eventID, platform, channel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStreamNotFound
	}
	return s, err
}

// Upsert is keyed by (event_id, platform, channel): provisioning the same
// event twice against the same channel updates the existing row instead of
// creating a duplicate broadcast record.
func (r *StreamRepo) Upsert(ctx context.Context, up domain.StreamUpsert) (*domain.EventStream, error) {
	s, err := scanStream(r.db.QueryRowContext(ctx, `
		INSERT INTO event_streams (event_id, platform, internal_id, channel, title, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (event_id, platform, channel) DO UPDATE SET
			internal_id = EXCLUDED.internal_id,
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			updated_at = NOW()
		RETURNING `+streamColumns+`
	`, up.EventID, up.Platform, up.InternalID, up.Channel, up.Title, up.URL))
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("upsert_stream").Inc()
		return nil, fmt.Errorf("failed to upsert event stream: %w", err)
	}
	return s, nil
}

func (r *StreamRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM event_streams WHERE id = $1`, id)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("delete_stream").Inc()
		return fmt.Errorf("failed to delete event stream: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrStreamNotFound
	}
	return nil
}
