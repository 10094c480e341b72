package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-checkin/internal/checkin"
	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
)

// CheckinHandler exposes the check-in state machine over HTTP.
type CheckinHandler struct {
	svc *checkin.Service
	log *slog.Logger
}

// NewCheckinHandler panics on a nil service.
func NewCheckinHandler(svc *checkin.Service, log *slog.Logger) *CheckinHandler {
	if svc == nil {
		panic("nil checkin service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CheckinHandler{svc: svc, log: log}
}

// entryRequest is the optional body of a guest check-in.
type entryRequest struct {
	EntryType  *model.EntryType `json:"entry_type"`
	EntryValue *float64         `json:"entry_value"`
}

// CheckInGuest handles POST /v1/guests/:id/checkin.
func (h *CheckinHandler) CheckInGuest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid guest id")
	}
	var req entryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	var entry *repository.Entry
	if req.EntryType != nil {
		entry = &repository.Entry{Type: *req.EntryType, Value: req.EntryValue}
	} else if req.EntryValue != nil {
		return badRequest(c, "entry_value requires entry_type")
	}
	res, err := h.svc.CheckInGuest(c.Request().Context(), id, entry)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckOutGuest handles POST /v1/guests/:id/checkout.
func (h *CheckinHandler) CheckOutGuest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid guest id")
	}
	g, err := h.svc.CheckOutGuest(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"guest": g})
}

// CheckInOwner handles POST /v1/guest-lists/:id/owner/checkin.
func (h *CheckinHandler) CheckInOwner(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid guest list id")
	}
	res, err := h.svc.CheckInOwner(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckOutOwner handles POST /v1/guest-lists/:id/owner/checkout.
func (h *CheckinHandler) CheckOutOwner(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid guest list id")
	}
	gl, err := h.svc.CheckOutOwner(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"guestList": gl})
}

// reservationParams reads :kind and :id.
func reservationParams(c echo.Context) (model.ReservationKind, uint64, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return "", 0, err
	}
	return model.ReservationKind(c.Param("kind")), id, nil
}

// CheckInReservation handles POST /v1/reservations/:kind/:id/checkin.
func (h *CheckinHandler) CheckInReservation(c echo.Context) error {
	kind, id, err := reservationParams(c)
	if err != nil {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.svc.CheckInReservation(c.Request().Context(), kind, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckOutReservation handles POST /v1/reservations/:kind/:id/checkout.
func (h *CheckinHandler) CheckOutReservation(c echo.Context) error {
	kind, id, err := reservationParams(c)
	if err != nil {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.svc.CheckOutReservation(c.Request().Context(), kind, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckInPromoterGuest handles POST /v1/promoter-guests/:id/checkin.
func (h *CheckinHandler) CheckInPromoterGuest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "invalid promoter guest id")
	}
	res, err := h.svc.CheckInPromoterGuest(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListCheckouts handles GET /v1/checkouts with the optional filters
// event_id, guest_list_id, venue_id, date and limit.
func (h *CheckinHandler) ListCheckouts(c echo.Context) error {
	var f model.CheckoutFilter
	var err error
	if f.EventID, err = parseOptionalID(c, "event_id"); err != nil {
		return badRequest(c, err.Error())
	}
	if f.GuestListID, err = parseOptionalID(c, "guest_list_id"); err != nil {
		return badRequest(c, err.Error())
	}
	if f.VenueID, err = parseOptionalID(c, "venue_id"); err != nil {
		return badRequest(c, err.Error())
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return badRequest(c, "invalid date, expected YYYY-MM-DD")
		}
		f.Date = &d
	}
	limit, err := parseOptionalID(c, "limit")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if limit != nil {
		f.Limit = int(min(*limit, uint64(repository.MaxHistoryLimit)))
	}

	rows, err := h.svc.ListCheckoutHistory(c.Request().Context(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if rows == nil {
		rows = []model.CheckoutAuditRecord{}
	}
	return c.JSON(http.StatusOK, echo.Map{"checkouts": rows})
}
