package handler // handler defines the HTTP handlers of the /v1 API

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-checkin/internal/checkin"
	"github.com/iliyamo/venue-checkin/internal/repository"
)

// errBadID is returned by parseID for missing or non-positive ids.
var errBadID = errors.New("invalid id")

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return id, nil
}

// parseOptionalID reads a positive integer query parameter.  An absent
// parameter yields nil.
func parseOptionalID(c echo.Context, name string) (*uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, errors.New("invalid " + name)
	}
	return &id, nil
}

// respondError maps domain errors onto status codes.  Transition errors
// carry a machine-readable code; unexpected errors are logged and hidden.
func respondError(c echo.Context, log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, checkin.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": checkin.Code(err)})
	case errors.Is(err, repository.ErrUnknownKind),
		errors.Is(err, checkin.ErrInvalidEntry),
		errors.Is(err, errBadID):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	log.Error("http: request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
