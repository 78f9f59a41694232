package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

// credentialColumns must match the Scan order in scanCredential.
const credentialColumns = `id, platform, account_email, access_token, refresh_token, scopes, token_expiry, created_at, updated_at`

// CredentialRepo implements domain.CredentialStore backed by PostgreSQL.
type CredentialRepo struct {
	db *sql.DB
}

// NewCredentialRepo creates a CredentialRepo from the shared DB connection.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db.DB}
}

func scanCredential(row interface{ Scan(...any) error }) (*domain.PlatformCredential, error) {
	var cred domain.PlatformCredential
	err := row.Scan(
		&cred.ID, &cred.Platform, &cred.AccountEmail,
		&cred.AccessToken, &cred.RefreshToken, pq.Array(&cred.Scopes),
		&cred.TokenExpiry, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepo) GetByAccount(ctx context.Context, platform domain.Platform, accountEmail string) (*domain.PlatformCredential, error) {
	cred, err := scanCredential(r.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+` FROM platform_credentials
		WHERE platform = $1 AND account_email = $2
	`, platform, accountEmail))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCredentialNotFound
	}
	return cred, err
}

func (r *CredentialRepo) ListByPlatform(ctx context.Context, platform domain.Platform) ([]domain.PlatformCredential, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+credentialColumns+` FROM platform_credentials
		WHERE platform = $1
		ORDER BY account_email
	`, platform)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("list_credentials").Inc()
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var creds []domain.PlatformCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, *cred)
	}
	return creds, rows.Err()
}

// Upsert is keyed by (platform, account_email): a repeated authorization for
// the same account replaces the previous grant entirely, scopes included.
func (r *CredentialRepo) Upsert(ctx context.Context, cred domain.PlatformCredential) (*domain.PlatformCredential, error) {
	stored, err := scanCredential(r.db.QueryRowContext(ctx, `
		INSERT INTO platform_credentials (platform, account_email, access_token, refresh_token, scopes, token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (platform, account_email) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			scopes = EXCLUDED.scopes,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()
		RETURNING `+credentialColumns+`
	`, cred.Platform, cred.AccountEmail, cred.AccessToken, cred.RefreshToken, pq.Array(cred.Scopes), cred.TokenExpiry))
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("upsert_credential").Inc()
		return nil, fmt.Errorf("failed to upsert credential: %w", err)
	}
	return stored, nil
}

func (r *CredentialRepo) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiry time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE platform_credentials
		SET access_token = $1, refresh_token = $2, token_expiry = $3, updated_at = NOW()
		WHERE id = $4
	`, accessToken, refreshToken, expiry, id)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("update_tokens").Inc()
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	return nil
}
