package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/nicklaw5/helix/v2"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

// tokenRefresher keeps the credential's access token valid before API calls.
type tokenRefresher interface {
	EnsureValidToken(ctx context.Context, cred *domain.PlatformCredential) (*domain.PlatformCredential, error)
}

// Client implements domain.PlatformClient against the Twitch Helix API.
// Twitch has no broadcast object to create: "ensuring" a broadcast means
// setting the channel title, and the channel's user ID is the stable internal
// identifier.
type Client struct {
	mu        sync.Mutex
	client    *helix.Client
	refresher tokenRefresher
}

func NewClient(store domain.CredentialStore, clientID, clientSecret string) (*Client, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	return &Client{
		client:    client,
		refresher: NewTokenRefresher(store, clientID, clientSecret),
	}, nil
}

func (c *Client) Platform() domain.Platform { return domain.PlatformTwitch }

// EnsureBroadcast resolves the channel login to its user ID and sets the
// stream title. Repeated calls are harmless; the user ID never changes.
func (c *Client) EnsureBroadcast(ctx context.Context, cred *domain.PlatformCredential, req domain.BroadcastRequest) (*domain.BroadcastResult, error) {
	cred, err := c.refresher.EnsureValidToken(ctx, cred)
	if err != nil {
		return nil, translateRefreshError(err)
	}

	broadcasterID := req.ExistingID
	if broadcasterID == "" {
		broadcasterID, err = c.resolveUserID(cred, req.ChannelID)
		if err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	c.client.SetUserAccessToken(cred.AccessToken)
	resp, err := c.client.EditChannelInformation(&helix.EditChannelInformationParams{
		BroadcasterID: broadcasterID,
		Title:         req.Title,
	})
	c.mu.Unlock()

	if err := classifyResponse("edit_channel", err, responseMeta(resp)); err != nil {
		return nil, err
	}

	return &domain.BroadcastResult{
		InternalID: broadcasterID,
		Title:      req.Title,
		URL:        fmt.Sprintf("https://twitch.tv/%s", req.ChannelID),
	}, nil
}

// GetStatuses reports the connected account's own channel. Twitch only has
// two observable states: the ingest is receiving data or it is not, and
// channels always accept ingest, so auto-start is always on.
func (c *Client) GetStatuses(ctx context.Context, cred *domain.PlatformCredential) ([]domain.PlatformStatus, error) {
	cred, err := c.refresher.EnsureValidToken(ctx, cred)
	if err != nil {
		return nil, translateRefreshError(err)
	}

	c.mu.Lock()
	c.client.SetUserAccessToken(cred.AccessToken)
	usersResp, err := c.client.GetUsers(&helix.UsersParams{})
	c.mu.Unlock()

	if err := classifyResponse("get_users", err, responseMeta(usersResp)); err != nil {
		return nil, err
	}
	if len(usersResp.Data.Users) == 0 {
		return nil, apperrors.InternalError("twitch returned no user for the connected account", nil)
	}
	user := usersResp.Data.Users[0]

	c.mu.Lock()
	c.client.SetUserAccessToken(cred.AccessToken)
	streamsResp, err := c.client.GetStreams(&helix.StreamsParams{UserIDs: []string{user.ID}})
	c.mu.Unlock()

	if err := classifyResponse("get_streams", err, responseMeta(streamsResp)); err != nil {
		return nil, err
	}

	status := domain.PlatformStatus{
		Platform:    domain.PlatformTwitch,
		BroadcastID: user.ID,
		Lifecycle:   domain.LifecycleReady,
		Health:      domain.HealthInactive,
		AutoStart:   true,
	}
	if len(streamsResp.Data.Streams) > 0 {
		status.Lifecycle = domain.LifecycleLive
		status.Health = domain.HealthActive
		status.IsLive = true
	}
	return []domain.PlatformStatus{status}, nil
}

// StopBroadcast always fails: Twitch ends a stream when the encoder stops
// sending, and exposes no API to force it. Rejected before any network call
// so a stop attempt cannot half-succeed.
func (c *Client) StopBroadcast(_ context.Context, _ *domain.PlatformCredential, _ string) error {
	return domain.ErrStopNotSupported
}

func (c *Client) resolveUserID(cred *domain.PlatformCredential, login string) (string, error) {
	c.mu.Lock()
	c.client.SetUserAccessToken(cred.AccessToken)
	resp, err := c.client.GetUsers(&helix.UsersParams{Logins: []string{login}})
	c.mu.Unlock()

	if err := classifyResponse("get_users", err, responseMeta(resp)); err != nil {
		return "", err
	}
	if len(resp.Data.Users) == 0 {
		return "", apperrors.NotFoundError("twitch channel not found").WithContext("channel", login)
	}
	return resp.Data.Users[0].ID, nil
}

type respInfo struct {
	statusCode   int
	errorMessage string
}

// responseMeta pulls the common response fields out of a helix response.
func responseMeta(resp any) respInfo {
	switch r := resp.(type) {
	case *helix.EditChannelInformationResponse:
		if r == nil {
			return respInfo{}
		}
		return respInfo{r.StatusCode, r.ErrorMessage}
	case *helix.UsersResponse:
		if r == nil {
			return respInfo{}
		}
		return respInfo{r.StatusCode, r.ErrorMessage}
	case *helix.StreamsResponse:
		if r == nil {
			return respInfo{}
		}
		return respInfo{r.StatusCode, r.ErrorMessage}
	default:
		return respInfo{}
	}
}

func classifyResponse(operation string, err error, info respInfo) error {
	classified := doClassify(err, info)

	result := "success"
	if classified != nil {
		result = "error"
	}
	metrics.PlatformCallsTotal.WithLabelValues("twitch", operation, result).Inc()
	return classified
}

func doClassify(err error, info respInfo) error {
	if err != nil {
		return apperrors.TransientError("twitch api unreachable", err)
	}

	msg := info.errorMessage
	if msg == "" {
		msg = "twitch api request failed"
	}

	switch {
	case info.statusCode >= 200 && info.statusCode < 300:
		return nil
	case info.statusCode == http.StatusUnauthorized || info.statusCode == http.StatusForbidden:
		return apperrors.PermissionError(msg).WithContext("statusCode", info.statusCode)
	case info.statusCode == http.StatusNotFound:
		return apperrors.NotFoundError(msg)
	case info.statusCode == http.StatusTooManyRequests || info.statusCode >= 500:
		return apperrors.TransientError(msg, nil).WithContext("statusCode", info.statusCode)
	default:
		return apperrors.InternalError(msg, nil).WithContext("statusCode", info.statusCode)
	}
}

func translateRefreshError(err error) error {
	var refreshErr *TokenRefreshError
	if errors.As(err, &refreshErr) && refreshErr.Revoked {
		return apperrors.PermissionError("twitch account authorization was revoked; reconnect the account")
	}
	return apperrors.TransientError("failed to refresh twitch token", err)
}
