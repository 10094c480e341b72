package aggregate

import (
	"context"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// RestaurantSource expands bottle-service reservations into one row per
// person: the owner first, then each guest.  A reservation without a guest
// list becomes a single row with a nil guest list id.
type RestaurantSource struct {
	reservations   reservationLister
	lists          listLoader
	legacyFallback bool
}

func (s *RestaurantSource) Name() string { return SourceRestaurant }

func (s *RestaurantSource) Collect(ctx context.Context, scope model.Scope) ([]model.Attendee, error) {
	reservations, err := s.reservations.ListForScope(ctx, model.ReservationBottle, scope, s.legacyFallback)
	if err != nil {
		return nil, err
	}
	loaded, err := s.lists.load(ctx, model.ReservationBottle, reservations)
	if err != nil {
		return nil, err
	}

	out := make([]model.Attendee, 0, len(reservations))
	for _, res := range reservations {
		lists := loaded.lists[res.ID]
		if len(lists) == 0 {
			out = append(out, reservationOnly(res, model.AttendeeBottleReservation))
			continue
		}
		out = append(out, holder(lists, res))
		for _, gl := range lists {
			for _, g := range loaded.guests[gl.ID] {
				out = append(out, guestAttendee(g, res.ID, gl.PromoterID))
			}
		}
	}
	return out, nil
}
