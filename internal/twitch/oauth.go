package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
)

const (
	defaultAuthURL  = "https://id.twitch.tv/oauth2/authorize"
	defaultTokenURL = "https://id.twitch.tv/oauth2/token"
	defaultUsersURL = "https://api.twitch.tv/helix/users"
)

// DefaultScopes is what the connect flow requests when the caller does not
// name scopes explicitly.
const DefaultScopes = "channel:manage:broadcast channel:manage:videos channel:read:stream_key user:read:email"

// OAuth handles the Twitch authorization code flow for connecting an account.
type OAuth struct {
	clientID     string
	clientSecret string
	authURL      string // endpoint URLs configurable for testing
	tokenURL     string
	usersURL     string
	httpClient   *http.Client
}

func NewOAuth(clientID, clientSecret string) *OAuth {
	return &OAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      defaultAuthURL,
		tokenURL:     defaultTokenURL,
		usersURL:     defaultUsersURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL builds the consent page URL.
func (o *OAuth) AuthorizeURL(redirectURI, scope string) string {
	params := url.Values{}
	params.Set("client_id", o.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", scope)
	return o.authURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for tokens and resolves which
// Twitch account granted them. The email requires the user:read:email scope.
func (o *OAuth) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.OAuthGrant, error) {
	data := url.Values{}
	data.Set("client_id", o.clientID)
	data.Set("client_secret", o.clientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken  string   `json:"access_token"`
		RefreshToken string   `json:"refresh_token"`
		ExpiresIn    int      `json:"expires_in"`
		Scope        []string `json:"scope"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	email, err := o.fetchAccountEmail(ctx, result.AccessToken)
	if err != nil {
		return nil, err
	}

	return &domain.OAuthGrant{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		Scopes:       result.Scope,
		AccountEmail: email,
	}, nil
}

func (o *OAuth) fetchAccountEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.usersURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build users request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Client-Id", o.clientID)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("users lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("users lookup failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			Login string `json:"login"`
			Email string `json:"email"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode users response: %w", err)
	}
	if len(result.Data) == 0 {
		return "", fmt.Errorf("users response is empty")
	}
	if result.Data[0].Email == "" {
		return "", fmt.Errorf("users response has no email; was the user:read:email scope granted?")
	}
	return result.Data[0].Email, nil
}
