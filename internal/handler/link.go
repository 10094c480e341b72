package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// ReservationLinker is satisfied by *linker.Linker.
type ReservationLinker interface {
	LinkReservation(ctx context.Context, kind model.ReservationKind, reservationID, eventID uint64) (int, error)
}

// RoomNotifier is satisfied by *realtime.Refresher.
type RoomNotifier interface {
	ReservationChanged(kind model.ReservationKind, id uint64)
}

// LinkHandler binds reservations to events by hand.
type LinkHandler struct {
	linker ReservationLinker
	notify RoomNotifier
	log    *slog.Logger
}

// NewLinkHandler panics on a nil linker.  notify may be nil.
func NewLinkHandler(l ReservationLinker, notify RoomNotifier, log *slog.Logger) *LinkHandler {
	if l == nil {
		panic("nil reservation linker")
	}
	if log == nil {
		log = slog.Default()
	}
	return &LinkHandler{linker: l, notify: notify, log: log}
}

type linkRequest struct {
	EventID uint64 `json:"event_id"`
}

// LinkReservation handles POST /v1/reservations/:kind/:id/link with body
// {"event_id": N}.
func (h *LinkHandler) LinkReservation(c echo.Context) error {
	kind, id, err := reservationParams(c)
	if err != nil {
		return badRequest(c, "invalid reservation id")
	}
	var req linkRequest
	if err := c.Bind(&req); err != nil || req.EventID == 0 {
		return badRequest(c, "event_id is required")
	}
	n, err := h.linker.LinkReservation(c.Request().Context(), kind, id, req.EventID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if h.notify != nil {
		h.notify.ReservationChanged(kind, id)
	}
	return c.JSON(http.StatusOK, echo.Map{"linkedGuestCount": n})
}
