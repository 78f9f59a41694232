package avcart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
)

func TestGateway_SendCommand_Accepted(t *testing.T) {
	cartID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/carts/"+cartID.String()+"/commands", r.URL.Path)
		assert.Equal(t, "Bearer gateway-token", r.Header.Get("Authorization"))

		var payload commandPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "start", payload.Mode)
		require.NotNil(t, payload.StreamIndex)
		assert.Equal(t, 2, *payload.StreamIndex)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	g := NewGateway(server.URL, "gateway-token")
	err := g.SendCommand(context.Background(), cartID, domain.CartControlStart, 2)

	require.NoError(t, err)
}

func TestGateway_SendCommand_PushKeysOmitsIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload commandPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "push-keys", payload.Mode)
		assert.Nil(t, payload.StreamIndex)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	g := NewGateway(server.URL, "")
	require.NoError(t, g.SendCommand(context.Background(), uuid.New(), domain.CartControlPushKeys, -1))
}

func TestGateway_SendCommand_DeviceOfflineIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewGateway(server.URL, "")
	err := g.SendCommand(context.Background(), uuid.New(), domain.CartControlStop, 0)

	require.Error(t, err)
	assert.True(t, apperrors.AsStructuredError(err).Retryable())
}

func TestGateway_SendCommand_UnreachableIsTransient(t *testing.T) {
	g := NewGateway("http://127.0.0.1:1", "")
	err := g.SendCommand(context.Background(), uuid.New(), domain.CartControlStop, 0)

	require.Error(t, err)
	assert.True(t, apperrors.AsStructuredError(err).Retryable())
}

func TestGateway_SendCommand_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	g := NewGateway(server.URL, "wrong-token")
	err := g.SendCommand(context.Background(), uuid.New(), domain.CartControlStart, 0)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypePermission))
	assert.False(t, apperrors.AsStructuredError(err).Retryable())
}
