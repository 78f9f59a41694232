package youtube

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
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// DefaultScopes is what the connect flow requests when the caller does not
// name scopes explicitly. The email scope is required to identify which
// account was connected.
const DefaultScopes = "https://www.googleapis.com/auth/youtube https://www.googleapis.com/auth/userinfo.email"

// OAuth handles the Google authorization code flow for connecting a YouTube
// account. The admin UI drives the redirect; this side builds the authorize
// URL and exchanges the returned code.
type OAuth struct {
	clientID     string
	clientSecret string
	authURL      string // endpoint URLs configurable for testing
	tokenURL     string
	userinfoURL  string
	httpClient   *http.Client
}

func NewOAuth(clientID, clientSecret string) *OAuth {
	return &OAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      defaultAuthURL,
		tokenURL:     defaultTokenURL,
		userinfoURL:  defaultUserinfoURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizeURL builds the consent page URL. access_type=offline plus
// prompt=consent forces Google to return a refresh token even for accounts
// that authorized before.
func (o *OAuth) AuthorizeURL(redirectURI, scope string) string {
	params := url.Values{}
	params.Set("client_id", o.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", scope)
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	return o.authURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for tokens and resolves which
// Google account granted them.
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
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
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
		Scopes:       strings.Fields(result.Scope),
		AccountEmail: email,
	}, nil
}

func (o *OAuth) fetchAccountEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.userinfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("userinfo lookup failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response has no email; was the email scope granted?")
	}
	return info.Email, nil
}
