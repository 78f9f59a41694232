package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/FIRSTinMI/fim-admin-api/internal/app"
	"github.com/FIRSTinMI/fim-admin-api/internal/avcart"
	"github.com/FIRSTinMI/fim-admin-api/internal/config"
	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
	"github.com/FIRSTinMI/fim-admin-api/internal/provision"
)

// appService is everything the HTTP surface needs from the application layer.
type appService interface {
	ProvisionStreams(ctx context.Context, eventIDs []uuid.UUID) (*provision.BatchResult, error)
	ProvisionSeason(ctx context.Context, seasonID int64) (*provision.BatchResult, error)
	ListStreams(ctx context.Context, eventIDs []uuid.UUID) ([]domain.EventStream, error)
	DeleteStream(ctx context.Context, id uuid.UUID) error
	GetStatuses(ctx context.Context, platform domain.Platform, accountEmail string, forceRefresh bool) ([]app.StreamStatus, error)
	StopStream(ctx context.Context, platform domain.Platform, accountEmail, internalID string) error
	ConnectURL(platform domain.Platform, redirectURI, scope string) (string, error)
	CompleteConnect(ctx context.Context, platform domain.Platform, code, redirectURI string) (*domain.AccountScopes, error)
	AccountScopes(ctx context.Context, platform domain.Platform) ([]domain.AccountScopes, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*domain.AVCart, error)
	UpdateCartStreamKeys(ctx context.Context, cartID uuid.UUID, slots []avcart.SlotUpdate) ([]domain.StreamItem, error)
	ControlCartStream(ctx context.Context, cartID uuid.UUID, mode domain.CartControlMode, streamIndex *int) error
	RecordCartHeartbeat(ctx context.Context, cartID uuid.UUID, cfg domain.CartConfiguration, online bool) error
}

// healthChecker is a minimal interface for backend store health checks.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	app         appService
	permissions domain.PermissionChecker
	db          healthChecker
	startTime   time.Time
}

func NewServer(cfg *config.Config, svc appService, permissions domain.PermissionChecker, db healthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		app:         svc,
		permissions: permissions,
		db:          db,
		startTime:   time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
