package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

type TokenRefreshError struct {
	Revoked bool
	Err     error
}

func (e *TokenRefreshError) Error() string {
	if e.Revoked {
		return fmt.Sprintf("token revoked: %v", e.Err)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// TokenRefresher keeps a connected account's access token valid, persisting
// refreshed tokens back to the credential store. Twitch rotates the refresh
// token on every refresh, so both tokens get written back.
type TokenRefresher struct {
	store        domain.CredentialStore
	clientID     string
	clientSecret string
	oauthURL     string // configurable for testing
	httpClient   *http.Client
}

func NewTokenRefresher(store domain.CredentialStore, clientID, clientSecret string) *TokenRefresher {
	return &TokenRefresher{
		store:        store,
		clientID:     clientID,
		clientSecret: clientSecret,
		oauthURL:     defaultTokenURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureValidToken returns the credential with a usable access token,
// refreshing it first when it expires within the next minute.
func (tr *TokenRefresher) EnsureValidToken(ctx context.Context, cred *domain.PlatformCredential) (*domain.PlatformCredential, error) {
	if time.Now().Add(60 * time.Second).Before(cred.TokenExpiry) {
		return cred, nil
	}

	accessToken, refreshToken, expiresIn, err := tr.refreshToken(ctx, cred.RefreshToken)
	if err != nil {
		result := "error"
		var refreshErr *TokenRefreshError
		if errors.As(err, &refreshErr) && refreshErr.Revoked {
			result = "revoked"
		}
		metrics.TokenRefreshesTotal.WithLabelValues(string(domain.PlatformTwitch), result).Inc()
		return nil, err
	}
	metrics.TokenRefreshesTotal.WithLabelValues(string(domain.PlatformTwitch), "success").Inc()

	tokenExpiry := time.Now().Add(time.Duration(expiresIn) * time.Second)
	if err := tr.store.UpdateTokens(ctx, cred.ID, accessToken, refreshToken, tokenExpiry); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	cred.AccessToken = accessToken
	cred.RefreshToken = refreshToken
	cred.TokenExpiry = tokenExpiry
	return cred, nil
}

func (tr *TokenRefresher) refreshToken(ctx context.Context, refreshToken string) (accessToken, newRefreshToken string, expiresIn int, err error) {
	data := url.Values{}
	data.Set("client_id", tr.clientID)
	data.Set("client_secret", tr.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tr.oauthURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", "", 0, &TokenRefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tr.httpClient.Do(req)
	if err != nil {
		return "", "", 0, &TokenRefreshError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", 0, &TokenRefreshError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		// Token may be revoked
		revoked := resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized
		return "", "", 0, &TokenRefreshError{
			Revoked: revoked,
			Err:     fmt.Errorf("refresh failed with status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", "", 0, &TokenRefreshError{Err: err}
	}

	return result.AccessToken, result.RefreshToken, result.ExpiresIn, nil
}
