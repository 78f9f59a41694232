package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

// eventColumns must match the Scan order in scanEvent. Route columns are
// LEFT JOINed and nullable because not every event is assigned a truck route.
const eventColumns = `e.id, e.code, e.name, e.start_time, e.end_time, e.status, e.season_id,
	r.id, r.name, r.stream_platform, r.stream_channel`

// EventRepo implements domain.EventCatalog backed by PostgreSQL.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo creates an EventRepo from the shared DB connection.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db.DB}
}

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	var (
		e             domain.Event
		routeID       sql.NullInt64
		routeName     sql.NullString
		routePlatform sql.NullString
		routeChannel  sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Code, &e.Name, &e.StartTime, &e.EndTime, &e.Status, &e.SeasonID,
		&routeID, &routeName, &routePlatform, &routeChannel,
	)
	if err != nil {
		return nil, err
	}
	if routeID.Valid {
		e.Route = &domain.TruckRoute{
			ID:   routeID.Int64,
			Name: routeName.String,
			Streaming: domain.StreamingConfig{
				Platform:  domain.Platform(routePlatform.String),
				ChannelID: routeChannel.String,
			},
		}
	}
	return &e, nil
}

func (r *EventRepo) queryEvents(ctx context.Context, name, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues(name).Inc()
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *EventRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryEvents(ctx, "get_events", `
		SELECT `+eventColumns+`
		FROM events e
		LEFT JOIN truck_routes r ON r.id = e.truck_route_id
		WHERE e.id = ANY($1)
	`, pq.Array(ids))
}

func (r *EventRepo) ListCurrentRouted(ctx context.Context, seasonID int64, now time.Time) ([]domain.Event, error) {
	return r.queryEvents(ctx, "list_current_events", `
		SELECT `+eventColumns+`
		FROM events e
		JOIN truck_routes r ON r.id = e.truck_route_id
		WHERE e.season_id = $1 AND e.start_time <= $2 AND e.end_time >= $2
		ORDER BY e.start_time
	`, seasonID, now)
}
