package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FIRSTinMI/fim-admin-api/internal/avcart"
	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
)

func TestHandleGetCart_Success(t *testing.T) {
	cartID := uuid.New()
	svc := &mockAppService{
		getCartFn: func(_ context.Context, got uuid.UUID) (*domain.AVCart, error) {
			assert.Equal(t, cartID, got)
			return &domain.AVCart{ID: cartID, Name: "Cart 3", Online: true}, nil
		},
	}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, authedRequest(t, http.MethodGet, "/api/v1/av-carts/"+cartID.String(), nil, allRoles()))

	assert.Equal(t, http.StatusOK, rec.Code)

	var cart domain.AVCart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Equal(t, "Cart 3", cart.Name)
	assert.True(t, cart.Online)
}

func TestHandleGetCart_BadUUID(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := doRequest(srv, authedRequest(t, http.MethodGet, "/api/v1/av-carts/not-a-uuid", nil, allRoles()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdateStreamInfo_ReturnsPreviousState(t *testing.T) {
	cartID := uuid.New()
	svc := &mockAppService{
		updateCartStreamKeysFn: func(_ context.Context, got uuid.UUID, slots []avcart.SlotUpdate) ([]domain.StreamItem, error) {
			assert.Equal(t, cartID, got)
			require.Len(t, slots, 2)
			assert.Equal(t, "rtmp://a.rtmp.youtube.com/live2", slots[0].RtmpURL)
			assert.False(t, slots[1].Enabled)
			return []domain.StreamItem{{Index: 0, CartID: got, Enabled: true, RtmpKey: "old-key"}}, nil
		},
	}
	srv := newTestServer(t, svc)

	body := strings.NewReader(`[
		{"enabled":true,"rtmpUrl":"rtmp://a.rtmp.youtube.com/live2","rtmpKey":"k1"},
		{"enabled":false,"rtmpUrl":"","rtmpKey":""}
	]`)
	rec := doRequest(srv, authedRequest(t, http.MethodPut, "/api/v1/av-carts/"+cartID.String()+"/stream-info", body, allRoles()))

	assert.Equal(t, http.StatusOK, rec.Code)

	var previous []domain.StreamItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &previous))
	require.Len(t, previous, 1)
	assert.Equal(t, "old-key", previous[0].RtmpKey)
}

func TestHandleUpdateStreamInfo_TooManySlots(t *testing.T) {
	svc := &mockAppService{
		updateCartStreamKeysFn: func(_ context.Context, _ uuid.UUID, _ []avcart.SlotUpdate) ([]domain.StreamItem, error) {
			return nil, apperrors.ValidationError("too many stream slots")
		},
	}
	srv := newTestServer(t, svc)

	body := strings.NewReader(`[{},{},{},{},{},{}]`)
	rec := doRequest(srv, authedRequest(t, http.MethodPut, "/api/v1/av-carts/"+uuid.NewString()+"/stream-info", body, allRoles()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleControlStream_StartWithIndex(t *testing.T) {
	cartID := uuid.New()
	var gotMode domain.CartControlMode
	var gotIndex *int
	svc := &mockAppService{
		controlCartStreamFn: func(_ context.Context, _ uuid.UUID, mode domain.CartControlMode, streamIndex *int) error {
			gotMode = mode
			gotIndex = streamIndex
			return nil
		},
	}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, authedRequest(t, http.MethodPut,
		"/api/v1/av-carts/"+cartID.String()+"/stream/start?streamNum=2", nil, allRoles()))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, domain.CartControlStart, gotMode)
	require.NotNil(t, gotIndex)
	assert.Equal(t, 2, *gotIndex)
}

func TestHandleControlStream_PushKeysWithoutIndex(t *testing.T) {
	var gotIndex *int
	set := false
	svc := &mockAppService{
		controlCartStreamFn: func(_ context.Context, _ uuid.UUID, _ domain.CartControlMode, streamIndex *int) error {
			gotIndex = streamIndex
			set = true
			return nil
		},
	}
	srv := newTestServer(t, svc)

	rec := doRequest(srv, authedRequest(t, http.MethodPut,
		"/api/v1/av-carts/"+uuid.NewString()+"/stream/push-keys", nil, allRoles()))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, set)
	assert.Nil(t, gotIndex)
}

func TestHandleControlStream_NonNumericIndex(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := doRequest(srv, authedRequest(t, http.MethodPut,
		"/api/v1/av-carts/"+uuid.NewString()+"/stream/start?streamNum=two", nil, allRoles()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHeartbeat_Success(t *testing.T) {
	cartID := uuid.New()
	var gotCfg domain.CartConfiguration
	var gotOnline bool
	svc := &mockAppService{
		recordCartHeartbeatFn: func(_ context.Context, got uuid.UUID, cfg domain.CartConfiguration, online bool) error {
			assert.Equal(t, cartID, got)
			gotCfg = cfg
			gotOnline = online
			return nil
		},
	}
	srv := newTestServer(t, svc)

	body := strings.NewReader(`{"online":true,"configuration":{"AssistantVersion":"1.4.2","StreamInfo":[]}}`)
	rec := doRequest(srv, authedRequest(t, http.MethodPost, "/api/v1/av-carts/"+cartID.String()+"/heartbeat", body, allRoles()))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, gotOnline)
	assert.Equal(t, "1.4.2", gotCfg.AssistantVersion)
}

func TestHandleHeartbeat_RequiresEquipmentCapability(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	req := authedRequest(t, http.MethodPost, "/api/v1/av-carts/"+uuid.NewString()+"/heartbeat",
		strings.NewReader(`{"online":true}`), []string{string(domain.CapManageAV)})
	rec := doRequest(srv, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
