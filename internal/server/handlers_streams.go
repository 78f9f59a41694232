package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
)

type provisionRequest struct {
	EventIDs []string `json:"eventIds"`
	SeasonID *int64   `json:"seasonId"`
}

func (s *Server) handleProvisionStreams(c echo.Context) error {
	var req provisionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	// Season-wide provisioning when no explicit event ids are given.
	if len(req.EventIDs) == 0 && req.SeasonID != nil {
		batch, err := s.app.ProvisionSeason(c.Request().Context(), *req.SeasonID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, batch)
	}

	ids, err := parseUUIDs(req.EventIDs)
	if err != nil {
		return err
	}

	batch, err := s.app.ProvisionStreams(c.Request().Context(), ids)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, batch)
}

func (s *Server) handleListStreams(c echo.Context) error {
	var ids []uuid.UUID
	if raw := c.QueryParam("eventIds"); raw != "" {
		parsed, err := parseUUIDs(strings.Split(raw, ","))
		if err != nil {
			return err
		}
		ids = parsed
	}

	streams, err := s.app.ListStreams(c.Request().Context(), ids)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, streams)
}

func (s *Server) handleDeleteStream(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid UUID format").WithField("id", c.Param("id"))
	}

	if err := s.app.DeleteStream(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			return nil, apperrors.ValidationError("invalid UUID format").WithField("id", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
