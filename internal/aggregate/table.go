package aggregate

import (
	"context"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// TableSource reports one row per table reservation with its guest list
// nested for drill-down.
type TableSource struct {
	reservations   reservationLister
	lists          listLoader
	legacyFallback bool
}

type reservationLister interface {
	ListForScope(ctx context.Context, kind model.ReservationKind, scope model.Scope, legacyFallback bool) ([]model.Reservation, error)
}

func (s *TableSource) Name() string { return SourceTable }

func (s *TableSource) Collect(ctx context.Context, scope model.Scope) ([]model.Attendee, error) {
	reservations, err := s.reservations.ListForScope(ctx, model.ReservationTable, scope, s.legacyFallback)
	if err != nil {
		return nil, err
	}
	loaded, err := s.lists.load(ctx, model.ReservationTable, reservations)
	if err != nil {
		return nil, err
	}

	out := make([]model.Attendee, 0, len(reservations))
	for _, res := range reservations {
		lists := loaded.lists[res.ID]
		if len(lists) == 0 {
			out = append(out, reservationOnly(res, model.AttendeeTableReservation))
			continue
		}

		row := reservationOnly(res, model.AttendeeTableReservation)
		listID := lists[0].ID
		row.GuestListID = &listID
		row.PromoterID = lists[0].PromoterID

		owner := holder(lists, res)
		listed, checked := 1, owner.Totals.CheckedIn
		if owner.CheckedIn {
			row.CheckedIn = true
			if row.CheckedInAt == nil {
				row.CheckedInAt = owner.CheckedInAt
			}
		}
		for _, gl := range lists {
			for _, g := range loaded.guests[gl.ID] {
				listed++
				checked += present(g.CheckedIn, g.CheckedOut)
				row.Guests = append(row.Guests, guestAttendee(g, res.ID, gl.PromoterID))
			}
		}
		row.Totals = model.Totals{Total: max(res.PartySize, listed), CheckedIn: checked}
		out = append(out, row)
	}
	return out, nil
}
