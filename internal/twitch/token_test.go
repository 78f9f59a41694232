package twitch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
)

type fakeCredentialStore struct {
	updatedAccess  string
	updatedRefresh string
	updateCalls    int
}

func (f *fakeCredentialStore) GetByAccount(_ context.Context, _ domain.Platform, _ string) (*domain.PlatformCredential, error) {
	return nil, domain.ErrCredentialNotFound
}

func (f *fakeCredentialStore) ListByPlatform(_ context.Context, _ domain.Platform) ([]domain.PlatformCredential, error) {
	return nil, nil
}

func (f *fakeCredentialStore) Upsert(_ context.Context, cred domain.PlatformCredential) (*domain.PlatformCredential, error) {
	return &cred, nil
}

func (f *fakeCredentialStore) UpdateTokens(_ context.Context, _ uuid.UUID, accessToken, refreshToken string, _ time.Time) error {
	f.updateCalls++
	f.updatedAccess = accessToken
	f.updatedRefresh = refreshToken
	return nil
}

func TestEnsureValidToken_RotatesRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "new-access", "refresh_token": "new-refresh", "expires_in": 14400}`))
	}))
	defer server.Close()

	store := &fakeCredentialStore{}
	tr := NewTokenRefresher(store, "client-id", "client-secret")
	tr.oauthURL = server.URL

	cred := testCredential()
	cred.RefreshToken = "old-refresh"
	cred.TokenExpiry = time.Now().Add(-1 * time.Minute)

	refreshed, err := tr.EnsureValidToken(context.Background(), cred)

	require.NoError(t, err)
	assert.Equal(t, "new-access", refreshed.AccessToken)
	assert.Equal(t, "new-refresh", refreshed.RefreshToken)
	assert.Equal(t, 1, store.updateCalls)
	assert.Equal(t, "new-refresh", store.updatedRefresh)
}

func TestEnsureValidToken_FreshTokenSkipsNetwork(t *testing.T) {
	store := &fakeCredentialStore{}
	tr := NewTokenRefresher(store, "client-id", "client-secret")
	tr.oauthURL = "http://127.0.0.1:1" // would fail if contacted

	cred := testCredential()
	refreshed, err := tr.EnsureValidToken(context.Background(), cred)

	require.NoError(t, err)
	assert.Equal(t, cred.AccessToken, refreshed.AccessToken)
	assert.Zero(t, store.updateCalls)
}

func TestEnsureValidToken_RevokedGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status": 401, "message": "Invalid refresh token"}`))
	}))
	defer server.Close()

	store := &fakeCredentialStore{}
	tr := NewTokenRefresher(store, "client-id", "client-secret")
	tr.oauthURL = server.URL

	cred := testCredential()
	cred.TokenExpiry = time.Now().Add(-1 * time.Minute)

	_, err := tr.EnsureValidToken(context.Background(), cred)

	var refreshErr *TokenRefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.True(t, refreshErr.Revoked)
}
