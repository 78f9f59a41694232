package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
	"github.com/FIRSTinMI/fim-admin-api/internal/twitch"
	"github.com/FIRSTinMI/fim-admin-api/internal/youtube"
)

func platformParam(c echo.Context) (domain.Platform, error) {
	platform := domain.Platform(c.Param("platform"))
	if !platform.Valid() {
		return "", apperrors.ValidationError("unknown platform").WithField("platform", c.Param("platform"))
	}
	return platform, nil
}

func (s *Server) handleConnectURL(c echo.Context) error {
	platform, err := platformParam(c)
	if err != nil {
		return err
	}

	redirectURI := c.QueryParam("redirectUri")
	if redirectURI == "" {
		return apperrors.ValidationError("redirectUri is required")
	}

	scope := c.QueryParam("scope")
	if scope == "" {
		switch platform {
		case domain.PlatformYoutube:
			scope = youtube.DefaultScopes
		case domain.PlatformTwitch:
			scope = twitch.DefaultScopes
		}
	}

	url, err := s.app.ConnectURL(platform, redirectURI, scope)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

type setCodeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

func (s *Server) handleSetCode(c echo.Context) error {
	platform, err := platformParam(c)
	if err != nil {
		return err
	}

	var req setCodeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Code == "" {
		return apperrors.ValidationError("code is required")
	}
	if req.RedirectURI == "" {
		return apperrors.ValidationError("redirectUri is required")
	}

	account, err := s.app.CompleteConnect(c.Request().Context(), platform, req.Code, req.RedirectURI)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

func (s *Server) handleAccountScopes(c echo.Context) error {
	platform, err := platformParam(c)
	if err != nil {
		return err
	}

	accounts, err := s.app.AccountScopes(c.Request().Context(), platform)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accounts)
}

func (s *Server) handleBroadcastStatuses(c echo.Context) error {
	platform, err := platformParam(c)
	if err != nil {
		return err
	}

	accountEmail := c.QueryParam("account")
	if accountEmail == "" {
		return apperrors.ValidationError("account is required")
	}

	forceRefresh := false
	if raw := c.QueryParam("refresh"); raw != "" {
		forceRefresh, err = strconv.ParseBool(raw)
		if err != nil {
			return apperrors.ValidationError("refresh must be a boolean").WithField("refresh", raw)
		}
	}

	statuses, err := s.app.GetStatuses(c.Request().Context(), platform, accountEmail, forceRefresh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statuses)
}

func (s *Server) handleStopBroadcast(c echo.Context) error {
	platform, err := platformParam(c)
	if err != nil {
		return err
	}

	accountEmail := c.QueryParam("account")
	if accountEmail == "" {
		return apperrors.ValidationError("account is required")
	}

	broadcastID := c.Param("id")
	if err := s.app.StopStream(c.Request().Context(), platform, accountEmail, broadcastID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
