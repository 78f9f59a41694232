package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlatformCredential is one connected platform account's OAuth grant.
type PlatformCredential struct {
	ID           uuid.UUID `db:"id"`
	Platform     Platform  `db:"platform"`
	AccountEmail string    `db:"account_email"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	Scopes       []string  `db:"scopes"`
	TokenExpiry  time.Time `db:"token_expiry"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// AccountScopes is the read model for the scopes listing: which accounts are
// connected, with what grants, and until when.
type AccountScopes struct {
	AccountEmail string    `json:"accountEmail"`
	Scopes       []string  `json:"scopes"`
	TokenExpiry  time.Time `json:"tokenExpiry"`
	Expired      bool      `json:"expired"`
}

// CredentialStore persists platform account credentials. One row per
// (platform, account email); a re-authorization replaces the grant.
type CredentialStore interface {
	GetByAccount(ctx context.Context, platform Platform, accountEmail string) (*PlatformCredential, error)
	ListByPlatform(ctx context.Context, platform Platform) ([]PlatformCredential, error)
	Upsert(ctx context.Context, cred PlatformCredential) (*PlatformCredential, error)
	UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiry time.Time) error
}

// OAuthGrant is the result of a completed authorization code exchange.
type OAuthGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	Scopes       []string
	AccountEmail string
}

// OAuthConnector is one platform's authorization code flow.
type OAuthConnector interface {
	AuthorizeURL(redirectURI, scope string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*OAuthGrant, error)
}

// Capability names a permission the session collaborator can grant.
type Capability string

const (
	CapManageEvents    Capability = "events:manage"
	CapManageEquipment Capability = "equipment:manage"
	CapManageAV        Capability = "av:manage"
)

// PermissionChecker is the external authorization collaborator. eventID is
// uuid.Nil for global checks.
type PermissionChecker interface {
	HasPermission(ctx context.Context, subject string, eventID uuid.UUID, required ...Capability) bool
}
