package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

// equipmentColumns must match the Scan order in scanCart. last_seen uses the
// PostgreSQL 'infinity' sentinel for a currently-connected cart, which lib/pq
// cannot scan into time.Time, so the CASE splits it into an online flag and a
// finite timestamp.
const equipmentColumns = `id, name, equipment_type,
	CASE WHEN last_seen = 'infinity' THEN NULL ELSE last_seen END,
	last_seen = 'infinity',
	configuration`

// EquipmentRepo implements domain.EquipmentRepository backed by PostgreSQL.
type EquipmentRepo struct {
	db *sql.DB
}

// NewEquipmentRepo creates an EquipmentRepo from the shared DB connection.
func NewEquipmentRepo(db *DB) *EquipmentRepo {
	return &EquipmentRepo{db: db.DB}
}

func scanCart(row interface{ Scan(...any) error }) (*domain.AVCart, error) {
	var (
		cart    domain.AVCart
		online  sql.NullBool
		rawConf []byte
	)
	err := row.Scan(&cart.ID, &cart.Name, &cart.EquipmentType, &cart.LastSeen, &online, &rawConf)
	if err != nil {
		return nil, err
	}
	cart.Online = online.Valid && online.Bool

	if len(rawConf) > 0 {
		if err := json.Unmarshal(rawConf, &cart.Configuration); err != nil {
			return nil, fmt.Errorf("failed to decode cart configuration: %w", err)
		}
	}
	return &cart, nil
}

func (r *EquipmentRepo) GetCart(ctx context.Context, id uuid.UUID) (*domain.AVCart, error) {
	cart, err := scanCart(r.db.QueryRowContext(ctx, `
		SELECT `+equipmentColumns+` FROM equipment WHERE id = $1 AND equipment_type = 'av-cart'
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	return cart, err
}

// UpdateStreamInfo replaces the full StreamInfo array inside the
// configuration blob and returns the cart as it was BEFORE the write, so
// callers can report the previous slot assignments.
func (r *EquipmentRepo) UpdateStreamInfo(ctx context.Context, id uuid.UUID, items []domain.StreamItem) (*domain.AVCart, error) {
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stream info: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	previous, err := scanCart(tx.QueryRowContext(ctx, `
		SELECT `+equipmentColumns+` FROM equipment
		WHERE id = $1 AND equipment_type = 'av-cart'
		FOR UPDATE
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE equipment
		SET configuration = jsonb_set(configuration, '{StreamInfo}', $1::jsonb)
		WHERE id = $2
	`, encoded, id)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("update_stream_info").Inc()
		return nil, fmt.Errorf("failed to update stream info: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return previous, nil
}

// RecordHeartbeat stores the configuration the device reported and marks it
// online ('infinity') or stamps the disconnect time.
func (r *EquipmentRepo) RecordHeartbeat(ctx context.Context, id uuid.UUID, cfg domain.CartConfiguration, online bool) error {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode cart configuration: %w", err)
	}

	lastSeen := "NOW()"
	if online {
		lastSeen = "'infinity'"
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE equipment
		SET configuration = $1, last_seen = `+lastSeen+`
		WHERE id = $2 AND equipment_type = 'av-cart'
	`, encoded, id)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("record_heartbeat").Inc()
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartNotFound
	}

	metrics.CartHeartbeatsTotal.Inc()
	return nil
}
