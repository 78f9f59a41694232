package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/FIRSTinMI/fim-admin-api/internal/avcart"
	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
)

func cartIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("cartId"))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid UUID format").WithField("cartId", c.Param("cartId"))
	}
	return id, nil
}

func (s *Server) handleGetCart(c echo.Context) error {
	cartID, err := cartIDParam(c)
	if err != nil {
		return err
	}

	cart, err := s.app.GetCart(c.Request().Context(), cartID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

func (s *Server) handleUpdateStreamInfo(c echo.Context) error {
	cartID, err := cartIDParam(c)
	if err != nil {
		return err
	}

	var slots []avcart.SlotUpdate
	if err := c.Bind(&slots); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	previous, err := s.app.UpdateCartStreamKeys(c.Request().Context(), cartID, slots)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, previous)
}

func (s *Server) handleControlStream(c echo.Context) error {
	cartID, err := cartIDParam(c)
	if err != nil {
		return err
	}

	mode := domain.CartControlMode(c.Param("mode"))

	var streamIndex *int
	if raw := c.QueryParam("streamNum"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.ValidationError("streamNum must be an integer").WithField("streamNum", raw)
		}
		streamIndex = &n
	}

	if err := s.app.ControlCartStream(c.Request().Context(), cartID, mode, streamIndex); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

type heartbeatRequest struct {
	Configuration domain.CartConfiguration `json:"configuration"`
	Online        bool                     `json:"online"`
}

func (s *Server) handleHeartbeat(c echo.Context) error {
	cartID, err := cartIDParam(c)
	if err != nil {
		return err
	}

	var req heartbeatRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.app.RecordCartHeartbeat(c.Request().Context(), cartID, req.Configuration, req.Online); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
