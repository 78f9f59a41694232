package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/FIRSTinMI/fim-admin-api/internal/app"
	"github.com/FIRSTinMI/fim-admin-api/internal/avcart"
	"github.com/FIRSTinMI/fim-admin-api/internal/config"
	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
	"github.com/FIRSTinMI/fim-admin-api/internal/provision"
)

const testJWTSecret = "test-secret-key-32-bytes-long!!!"

// --- Mock implementations ---

type mockAppService struct {
	provisionStreamsFn     func(ctx context.Context, eventIDs []uuid.UUID) (*provision.BatchResult, error)
	provisionSeasonFn      func(ctx context.Context, seasonID int64) (*provision.BatchResult, error)
	listStreamsFn          func(ctx context.Context, eventIDs []uuid.UUID) ([]domain.EventStream, error)
	deleteStreamFn         func(ctx context.Context, id uuid.UUID) error
	getStatusesFn          func(ctx context.Context, platform domain.Platform, accountEmail string, forceRefresh bool) ([]app.StreamStatus, error)
	stopStreamFn           func(ctx context.Context, platform domain.Platform, accountEmail, internalID string) error
	connectURLFn           func(platform domain.Platform, redirectURI, scope string) (string, error)
	completeConnectFn      func(ctx context.Context, platform domain.Platform, code, redirectURI string) (*domain.AccountScopes, error)
	accountScopesFn        func(ctx context.Context, platform domain.Platform) ([]domain.AccountScopes, error)
	getCartFn              func(ctx context.Context, cartID uuid.UUID) (*domain.AVCart, error)
	updateCartStreamKeysFn func(ctx context.Context, cartID uuid.UUID, slots []avcart.SlotUpdate) ([]domain.StreamItem, error)
	controlCartStreamFn    func(ctx context.Context, cartID uuid.UUID, mode domain.CartControlMode, streamIndex *int) error
	recordCartHeartbeatFn  func(ctx context.Context, cartID uuid.UUID, cfg domain.CartConfiguration, online bool) error
}

func (m *mockAppService) ProvisionStreams(ctx context.Context, eventIDs []uuid.UUID) (*provision.BatchResult, error) {
	if m.provisionStreamsFn != nil {
		return m.provisionStreamsFn(ctx, eventIDs)
	}
	return &provision.BatchResult{}, nil
}

func (m *mockAppService) ProvisionSeason(ctx context.Context, seasonID int64) (*provision.BatchResult, error) {
	if m.provisionSeasonFn != nil {
		return m.provisionSeasonFn(ctx, seasonID)
	}
	return &provision.BatchResult{}, nil
}

func (m *mockAppService) ListStreams(ctx context.Context, eventIDs []uuid.UUID) ([]domain.EventStream, error) {
	if m.listStreamsFn != nil {
		return m.listStreamsFn(ctx, eventIDs)
	}
	return nil, nil
}

func (m *mockAppService) DeleteStream(ctx context.Context, id uuid.UUID) error {
	if m.deleteStreamFn != nil {
		return m.deleteStreamFn(ctx, id)
	}
	return nil
}

func (m *mockAppService) GetStatuses(ctx context.Context, platform domain.Platform, accountEmail string, forceRefresh bool) ([]app.StreamStatus, error) {
	if m.getStatusesFn != nil {
		return m.getStatusesFn(ctx, platform, accountEmail, forceRefresh)
	}
	return nil, nil
}

func (m *mockAppService) StopStream(ctx context.Context, platform domain.Platform, accountEmail, internalID string) error {
	if m.stopStreamFn != nil {
		return m.stopStreamFn(ctx, platform, accountEmail, internalID)
	}
	return nil
}

func (m *mockAppService) ConnectURL(platform domain.Platform, redirectURI, scope string) (string, error) {
	if m.connectURLFn != nil {
		return m.connectURLFn(platform, redirectURI, scope)
	}
	return "https://example.com/authorize", nil
}

func (m *mockAppService) CompleteConnect(ctx context.Context, platform domain.Platform, code, redirectURI string) (*domain.AccountScopes, error) {
	if m.completeConnectFn != nil {
		return m.completeConnectFn(ctx, platform, code, redirectURI)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) AccountScopes(ctx context.Context, platform domain.Platform) ([]domain.AccountScopes, error) {
	if m.accountScopesFn != nil {
		return m.accountScopesFn(ctx, platform)
	}
	return nil, nil
}

func (m *mockAppService) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.AVCart, error) {
	if m.getCartFn != nil {
		return m.getCartFn(ctx, cartID)
	}
	return nil, apperrors.NotFoundError("cart not found")
}

func (m *mockAppService) UpdateCartStreamKeys(ctx context.Context, cartID uuid.UUID, slots []avcart.SlotUpdate) ([]domain.StreamItem, error) {
	if m.updateCartStreamKeysFn != nil {
		return m.updateCartStreamKeysFn(ctx, cartID, slots)
	}
	return nil, nil
}

func (m *mockAppService) ControlCartStream(ctx context.Context, cartID uuid.UUID, mode domain.CartControlMode, streamIndex *int) error {
	if m.controlCartStreamFn != nil {
		return m.controlCartStreamFn(ctx, cartID, mode, streamIndex)
	}
	return nil
}

func (m *mockAppService) RecordCartHeartbeat(ctx context.Context, cartID uuid.UUID, cfg domain.CartConfiguration, online bool) error {
	if m.recordCartHeartbeatFn != nil {
		return m.recordCartHeartbeatFn(ctx, cartID, cfg, online)
	}
	return nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) HealthCheck(_ context.Context) error {
	return m.err
}

// --- Test helpers ---

func newTestServer(t *testing.T, svc appService) *Server {
	t.Helper()

	cfg := &config.Config{Port: "0", AuthJWTSecret: testJWTSecret}
	return NewServer(cfg, svc, TokenRoleChecker{}, &mockHealthChecker{})
}

// signToken mints an HS256 token the way the admin frontend does.
func signToken(t *testing.T, secret, subject string, roles []string) string {
	t.Helper()

	claims := apiClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func allRoles() []string {
	return []string{
		string(domain.CapManageEvents),
		string(domain.CapManageEquipment),
		string(domain.CapManageAV),
	}
}

// doRequest runs a request through the full middleware chain.
func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func authedRequest(t *testing.T, method, target string, body io.Reader, roles []string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, testJWTSecret, "admin@firstinmichigan.org", roles))
	return req
}
