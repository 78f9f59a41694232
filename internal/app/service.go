// Package app is the application layer — the only component that references
// multiple domain components. It orchestrates all use cases.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	gocache "github.com/patrickmn/go-cache"

	"github.com/FIRSTinMI/fim-admin-api/internal/avcart"
	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
	"github.com/FIRSTinMI/fim-admin-api/internal/platform/retry"
	"github.com/FIRSTinMI/fim-admin-api/internal/provision"
	"github.com/FIRSTinMI/fim-admin-api/internal/status"
)

// provisioner is the batch create-or-update entry point.
type provisioner interface {
	Provision(ctx context.Context, eventIDs []uuid.UUID) (*provision.BatchResult, error)
	ProvisionSeason(ctx context.Context, seasonID int64, now time.Time) (*provision.BatchResult, error)
}

// cartController owns cart slot validation and command dispatch.
type cartController interface {
	GetCart(ctx context.Context, cartID uuid.UUID) (*domain.AVCart, error)
	UpdateStreamKeys(ctx context.Context, cartID uuid.UUID, slots []avcart.SlotUpdate) ([]domain.StreamItem, error)
	ControlStream(ctx context.Context, cartID uuid.UUID, mode domain.CartControlMode, streamIndex *int) error
	RecordHeartbeat(ctx context.Context, cartID uuid.UUID, cfg domain.CartConfiguration, online bool) error
}

// StreamStatus is a platform status annotated with its reconciled display
// state, ready for the dashboard.
type StreamStatus struct {
	domain.PlatformStatus
	Display  status.DisplayStatus `json:"display"`
	Warnings []string             `json:"warnings,omitempty"`
	CanStop  bool                 `json:"canStop"`
}

// Service orchestrates provisioning, status reads, stream control, account
// connection, and cart control.
type Service struct {
	streams     domain.StreamRegistry
	creds       domain.CredentialStore
	provisioner provisioner
	carts       cartController
	platforms   map[domain.Platform]domain.PlatformClient
	connectors  map[domain.Platform]domain.OAuthConnector

	// platform statuses change asynchronously; a short TTL keeps repeated
	// dashboard paints cheap while force-refresh bypasses it entirely.
	statusCache *gocache.Cache
	cacheTTL    time.Duration

	clock clockwork.Clock
}

func NewService(
	streams domain.StreamRegistry,
	creds domain.CredentialStore,
	prov provisioner,
	carts cartController,
	clients map[domain.Platform]domain.PlatformClient,
	connectors map[domain.Platform]domain.OAuthConnector,
	cacheTTL time.Duration,
	clock clockwork.Clock,
) *Service {
	return &Service{
		streams:     streams,
		creds:       creds,
		provisioner: prov,
		carts:       carts,
		platforms:   clients,
		connectors:  connectors,
		statusCache: gocache.New(cacheTTL, 2*cacheTTL),
		cacheTTL:    cacheTTL,
		clock:       clock,
	}
}

// ProvisionStreams runs a provisioning batch. Callers re-read the registry
// afterwards; the service keeps no provisioning state.
func (s *Service) ProvisionStreams(ctx context.Context, eventIDs []uuid.UUID) (*provision.BatchResult, error) {
	return s.provisioner.Provision(ctx, eventIDs)
}

// ProvisionSeason provisions every current routed event in a season in one
// batch.
func (s *Service) ProvisionSeason(ctx context.Context, seasonID int64) (*provision.BatchResult, error) {
	return s.provisioner.ProvisionSeason(ctx, seasonID, s.clock.Now())
}

// ListStreams returns the registry rows for the given events. An empty set
// yields an empty list. Callers group by event id themselves; an event may
// have zero, one, or several streams.
func (s *Service) ListStreams(ctx context.Context, eventIDs []uuid.UUID) ([]domain.EventStream, error) {
	streams, err := s.streams.ListByEventIDs(ctx, eventIDs)
	if err != nil {
		return nil, apperrors.InternalError("failed to list event streams", err)
	}
	return streams, nil
}

// DeleteStream hard-deletes one registry row. It deliberately does not touch
// the platform: stopping the remote broadcast is a separate operation and the
// two must not be transactionally coupled.
func (s *Service) DeleteStream(ctx context.Context, id uuid.UUID) error {
	err := s.streams.Delete(ctx, id)
	if errors.Is(err, domain.ErrStreamNotFound) {
		return apperrors.NotFoundError("event stream not found").WithContext("id", id)
	}
	if err != nil {
		return apperrors.InternalError("failed to delete event stream", err)
	}
	return nil
}

// GetStatuses returns annotated platform statuses for one connected account.
// Results are cached briefly; forceRefresh bypasses the cache for the
// operator's click-to-refresh.
func (s *Service) GetStatuses(ctx context.Context, platform domain.Platform, accountEmail string, forceRefresh bool) ([]StreamStatus, error) {
	client, err := s.platformFor(platform)
	if err != nil {
		return nil, err
	}

	key := string(platform) + "|" + accountEmail
	if !forceRefresh {
		if cached, ok := s.statusCache.Get(key); ok {
			metrics.StatusCacheHits.Inc()
			return cached.([]StreamStatus), nil
		}
	}
	metrics.StatusCacheMisses.Inc()

	cred, err := s.credentialFor(ctx, platform, accountEmail)
	if err != nil {
		return nil, err
	}

	// bounded retry is safe here: a status poll is read-only
	raw, err := retry.Do(ctx, retry.StatusPoll(), classifyForRetry, func() ([]domain.PlatformStatus, error) {
		return client.GetStatuses(ctx, cred)
	})
	if err != nil {
		return nil, err
	}

	annotated := make([]StreamStatus, len(raw))
	for i, ps := range raw {
		annotated[i] = StreamStatus{
			PlatformStatus: ps,
			Display:        status.Derive(ps),
			Warnings:       status.HealthWarnings(ps),
			CanStop:        status.StopAllowed(ps),
		}
	}

	s.statusCache.Set(key, annotated, s.cacheTTL)
	return annotated, nil
}

// StopStream stops one broadcast. The guard runs against a fresh status
// fetch, never a cached one, and rejects before any network call when the
// broadcast is not in a stoppable state.
func (s *Service) StopStream(ctx context.Context, platform domain.Platform, accountEmail, internalID string) error {
	client, err := s.platformFor(platform)
	if err != nil {
		return err
	}

	statuses, err := s.GetStatuses(ctx, platform, accountEmail, true)
	if err != nil {
		return err
	}

	var target *StreamStatus
	for i := range statuses {
		if statuses[i].BroadcastID == internalID {
			target = &statuses[i]
			break
		}
	}
	if target == nil {
		return apperrors.NotFoundError("broadcast not found on this account").
			WithContext("internalId", internalID)
	}
	if !target.CanStop {
		return apperrors.ValidationError(
			fmt.Sprintf("broadcast is %s and cannot be stopped", target.Display.Label)).
			WithContext("internalId", internalID)
	}

	cred, err := s.credentialFor(ctx, platform, accountEmail)
	if err != nil {
		return err
	}

	if err := client.StopBroadcast(ctx, cred, internalID); err != nil {
		if errors.Is(err, domain.ErrStopNotSupported) {
			return apperrors.ValidationError(
				fmt.Sprintf("%s does not support stopping a stream remotely; stop the encoder instead", platform))
		}
		return err
	}

	// the cached view is stale the moment the stop is accepted
	s.statusCache.Delete(string(platform) + "|" + accountEmail)
	return nil
}

// ConnectURL builds the platform's OAuth consent URL.
func (s *Service) ConnectURL(platform domain.Platform, redirectURI, scope string) (string, error) {
	connector, err := s.connectorFor(platform)
	if err != nil {
		return "", err
	}
	if redirectURI == "" {
		return "", apperrors.ValidationError("redirectUri is required")
	}
	return connector.AuthorizeURL(redirectURI, scope), nil
}

// CompleteConnect exchanges an authorization code and stores the resulting
// credential. A re-authorization for the same account replaces the old grant.
func (s *Service) CompleteConnect(ctx context.Context, platform domain.Platform, code, redirectURI string) (*domain.AccountScopes, error) {
	connector, err := s.connectorFor(platform)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, apperrors.ValidationError("code is required")
	}

	grant, err := connector.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, apperrors.TransientError("authorization code exchange failed", err)
	}

	expiry := s.clock.Now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	stored, err := s.creds.Upsert(ctx, domain.PlatformCredential{
		Platform:     platform,
		AccountEmail: grant.AccountEmail,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		Scopes:       grant.Scopes,
		TokenExpiry:  expiry,
	})
	if err != nil {
		return nil, apperrors.InternalError("failed to store credential", err)
	}

	return &domain.AccountScopes{
		AccountEmail: stored.AccountEmail,
		Scopes:       stored.Scopes,
		TokenExpiry:  stored.TokenExpiry,
	}, nil
}

// AccountScopes lists connected accounts with their grants and expiry.
func (s *Service) AccountScopes(ctx context.Context, platform domain.Platform) ([]domain.AccountScopes, error) {
	if _, err := s.connectorFor(platform); err != nil {
		return nil, err
	}

	creds, err := s.creds.ListByPlatform(ctx, platform)
	if err != nil {
		return nil, apperrors.InternalError("failed to list credentials", err)
	}

	now := s.clock.Now()
	out := make([]domain.AccountScopes, len(creds))
	for i, c := range creds {
		out[i] = domain.AccountScopes{
			AccountEmail: c.AccountEmail,
			Scopes:       c.Scopes,
			TokenExpiry:  c.TokenExpiry,
			Expired:      now.After(c.TokenExpiry),
		}
	}
	return out, nil
}

// GetCart returns a cart's configuration and last-seen state.
func (s *Service) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.AVCart, error) {
	return s.carts.GetCart(ctx, cartID)
}

// UpdateCartStreamKeys replaces the cart's full slot array and returns the
// previous one for changed-detection at the call site.
func (s *Service) UpdateCartStreamKeys(ctx context.Context, cartID uuid.UUID, slots []avcart.SlotUpdate) ([]domain.StreamItem, error) {
	return s.carts.UpdateStreamKeys(ctx, cartID, slots)
}

// ControlCartStream relays a start/stop/push-keys command. Acceptance only;
// the device's heartbeat is the sole source of applied-state truth.
func (s *Service) ControlCartStream(ctx context.Context, cartID uuid.UUID, mode domain.CartControlMode, streamIndex *int) error {
	return s.carts.ControlStream(ctx, cartID, mode, streamIndex)
}

// RecordCartHeartbeat stores a device-reported configuration push.
func (s *Service) RecordCartHeartbeat(ctx context.Context, cartID uuid.UUID, cfg domain.CartConfiguration, online bool) error {
	return s.carts.RecordHeartbeat(ctx, cartID, cfg, online)
}

func (s *Service) platformFor(platform domain.Platform) (domain.PlatformClient, error) {
	if !platform.Valid() {
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown platform %q", platform))
	}
	client, ok := s.platforms[platform]
	if !ok {
		return nil, apperrors.ValidationError(fmt.Sprintf("platform %s is not configured", platform))
	}
	return client, nil
}

func (s *Service) connectorFor(platform domain.Platform) (domain.OAuthConnector, error) {
	if !platform.Valid() {
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown platform %q", platform))
	}
	connector, ok := s.connectors[platform]
	if !ok {
		return nil, apperrors.ValidationError(fmt.Sprintf("platform %s is not configured", platform))
	}
	return connector, nil
}

func (s *Service) credentialFor(ctx context.Context, platform domain.Platform, accountEmail string) (*domain.PlatformCredential, error) {
	if accountEmail == "" {
		return nil, apperrors.ValidationError("account is required")
	}
	cred, err := s.creds.GetByAccount(ctx, platform, accountEmail)
	if errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, apperrors.NotFoundError(
			fmt.Sprintf("no connected %s account for %s", platform, accountEmail))
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to load credential", err)
	}
	return cred, nil
}

// classifyForRetry retries only transient failures. Permission and validation
// failures are final.
func classifyForRetry(err error) retry.Action {
	if apperrors.AsStructuredError(err).Retryable() {
		return retry.Retry
	}
	return retry.Stop
}
