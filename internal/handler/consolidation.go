package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-checkin/internal/aggregate"
	"github.com/iliyamo/venue-checkin/internal/model"
)

// ConsolidationHandler serves the consolidated check-in view of an event.
type ConsolidationHandler struct {
	svc *aggregate.Service
	log *slog.Logger
}

// NewConsolidationHandler panics on a nil service.
func NewConsolidationHandler(svc *aggregate.Service, log *slog.Logger) *ConsolidationHandler {
	if svc == nil {
		panic("nil aggregate service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ConsolidationHandler{svc: svc, log: log}
}

// GetCheckins handles GET /v1/events/:id/checkins?date=YYYY-MM-DD.  The
// date is only consulted for events without a date of their own.
func (h *ConsolidationHandler) GetCheckins(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid event id")
	}
	var date *model.Date
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return badRequest(c, "invalid date, expected YYYY-MM-DD")
		}
		date = &d
	}
	view, err := h.svc.Consolidate(c.Request().Context(), id, date)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view)
}
