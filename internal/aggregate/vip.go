package aggregate

import (
	"context"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
)

type vipLister interface {
	ListByVenueDate(ctx context.Context, venueID uint64, date model.Date) ([]model.VIPReservation, error)
	ListGuests(ctx context.Context, reservationIDs []uint64) ([]repository.VIPGuest, error)
}

// VIPSource reports camarote bookings at the scope's venue and date, each
// with its nested guests.
type VIPSource struct {
	vips vipLister
}

func (s *VIPSource) Name() string { return SourceVIP }

func (s *VIPSource) Collect(ctx context.Context, scope model.Scope) ([]model.Attendee, error) {
	if !scope.HasVenueDate() {
		return []model.Attendee{}, nil
	}
	rows, err := s.vips.ListByVenueDate(ctx, *scope.VenueID, *scope.Date)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []model.Attendee{}, nil
	}
	ids := make([]uint64, len(rows))
	for i, v := range rows {
		ids[i] = v.ID
	}
	guests, err := s.vips.ListGuests(ctx, ids)
	if err != nil {
		return nil, err
	}
	byReservation := make(map[uint64][]repository.VIPGuest, len(rows))
	for _, g := range guests {
		byReservation[g.VIPReservationID] = append(byReservation[g.VIPReservationID], g)
	}

	out := make([]model.Attendee, 0, len(rows))
	for _, v := range rows {
		resID := v.ID
		row := model.Attendee{
			ID:            v.ID,
			Kind:          model.AttendeeVIP,
			Name:          v.HolderName,
			Contact:       v.Contact,
			CheckedIn:     v.CheckedIn,
			CheckedInAt:   v.CheckedInAt,
			ReservationID: &resID,
			Totals:        model.Totals{Total: 1},
		}
		if v.CheckedIn {
			row.Totals.CheckedIn = 1
		}
		for _, g := range byReservation[v.ID] {
			sub := model.Attendee{
				ID:            g.ID,
				Kind:          model.AttendeeVIPGuest,
				Name:          g.Name,
				CheckedIn:     g.CheckedIn,
				CheckedInAt:   g.CheckedInAt,
				ReservationID: &resID,
				Totals:        model.Totals{Total: 1},
			}
			if g.CheckedIn {
				sub.Totals.CheckedIn = 1
				row.Totals.CheckedIn++
			}
			row.Totals.Total++
			row.Guests = append(row.Guests, sub)
		}
		out = append(out, row)
	}
	return out, nil
}
