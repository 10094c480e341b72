// Package aggregate builds the consolidated check-in view of an event from
// five independent attendee sources.
package aggregate

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
)

// Source names double as the JSON keys of the consolidated view.
const (
	SourceTable      = "tableGuests"
	SourceRestaurant = "restaurantGuestLists"
	SourcePromoter   = "promoterGuests"
	SourceBirthday   = "birthdayGuests"
	SourceVIP        = "vipGuests"
)

// Source collects the attendees of one kind for a scope.
type Source interface {
	Name() string
	Collect(ctx context.Context, scope model.Scope) ([]model.Attendee, error)
}

// CapabilitySource reports the deployment's optional schema.
type CapabilitySource interface {
	Capabilities(ctx context.Context) (repository.Capabilities, error)
}

// DefaultSources returns the five production sources in view order.
func DefaultSources(db *sql.DB, caps CapabilitySource, legacyFallback bool) []Source {
	reservations := repository.NewReservationRepo(db)
	guestLists := repository.NewGuestListRepo(db)
	guests := repository.NewGuestRepo(db)
	lists := listLoader{guestLists: guestLists, guests: guests, caps: caps}
	return []Source{
		&TableSource{reservations: reservations, lists: lists, legacyFallback: legacyFallback},
		&RestaurantSource{reservations: reservations, lists: lists, legacyFallback: legacyFallback},
		&PromoterSource{promoters: repository.NewPromoterRepo(db)},
		&BirthdaySource{birthdays: repository.NewBirthdayRepo(db)},
		&VIPSource{vips: repository.NewVIPRepo(db)},
	}
}

// listLoader fetches the guest lists and guests of a batch of reservations
// in two queries.
type listLoader struct {
	guestLists *repository.GuestListRepo
	guests     *repository.GuestRepo
	caps       CapabilitySource
}

type reservationLists struct {
	lists  map[uint64][]model.GuestList // by reservation id
	guests map[uint64][]model.Guest     // by guest list id
}

func (l listLoader) load(ctx context.Context, kind model.ReservationKind, reservations []model.Reservation) (reservationLists, error) {
	out := reservationLists{lists: map[uint64][]model.GuestList{}, guests: map[uint64][]model.Guest{}}
	if len(reservations) == 0 {
		return out, nil
	}
	caps, err := l.caps.Capabilities(ctx)
	if err != nil {
		return out, err
	}
	ids := make([]uint64, len(reservations))
	for i, r := range reservations {
		ids[i] = r.ID
	}
	lists, err := l.guestLists.ListByReservations(ctx, kind, ids, caps)
	if err != nil {
		return out, err
	}
	listIDs := make([]uint64, len(lists))
	for i, gl := range lists {
		listIDs[i] = gl.ID
		out.lists[gl.ReservationID] = append(out.lists[gl.ReservationID], gl)
	}
	guests, err := l.guests.ListByGuestLists(ctx, listIDs, caps)
	if err != nil {
		return out, err
	}
	for _, g := range guests {
		out.guests[g.GuestListID] = append(out.guests[g.GuestListID], g)
	}
	return out, nil
}

func present(checkedIn, checkedOut bool) int {
	if checkedIn && !checkedOut {
		return 1
	}
	return 0
}

func guestAttendee(g model.Guest, reservationID uint64, promoterID *uint64) model.Attendee {
	listID := g.GuestListID
	resID := reservationID
	return model.Attendee{
		ID:            g.ID,
		Kind:          model.AttendeeGuest,
		Name:          g.Name,
		Contact:       g.Contact,
		CheckedIn:     g.CheckedIn,
		CheckedInAt:   g.CheckedInAt,
		CheckedOut:    g.CheckedOut,
		GuestListID:   &listID,
		ReservationID: &resID,
		PromoterID:    promoterID,
		Totals:        model.Totals{Total: 1, CheckedIn: present(g.CheckedIn, g.CheckedOut)},
	}
}

func ownerAttendee(gl model.GuestList, res model.Reservation) model.Attendee {
	listID := gl.ID
	resID := res.ID
	name := gl.OwnerName
	if name == "" {
		name = res.ClientName
	}
	return model.Attendee{
		ID:            gl.ID,
		Kind:          model.AttendeeOwner,
		Name:          name,
		Contact:       res.ClientPhone,
		CheckedIn:     gl.OwnerCheckedIn,
		CheckedInAt:   gl.OwnerCheckedInAt,
		CheckedOut:    gl.OwnerCheckedOut,
		GuestListID:   &listID,
		ReservationID: &resID,
		PromoterID:    gl.PromoterID,
		Totals:        model.Totals{Total: 1, CheckedIn: present(gl.OwnerCheckedIn, gl.OwnerCheckedOut)},
	}
}

// holder reports the reservation holder once however many guest lists the
// reservation has.  A reservation checked in as a whole puts its holder
// inside unless a list checked the holder out.
func holder(lists []model.GuestList, res model.Reservation) model.Attendee {
	pick, left := lists[0], false
	for _, gl := range lists {
		left = left || gl.OwnerCheckedOut
	}
	for _, gl := range lists {
		if present(gl.OwnerCheckedIn, gl.OwnerCheckedOut) == 1 {
			pick = gl
			break
		}
	}
	owner := ownerAttendee(pick, res)
	if owner.Totals.CheckedIn == 0 && res.CheckedIn && !left {
		owner.CheckedIn = true
		owner.CheckedInAt = res.CheckedInAt
		owner.Totals.CheckedIn = 1
	}
	return owner
}

// reservationOnly reports a reservation without a guest list as one row
// standing for its whole party.
func reservationOnly(res model.Reservation, kind model.AttendeeKind) model.Attendee {
	resID := res.ID
	checked := 0
	if res.CheckedIn {
		checked = res.PartySize
	}
	return model.Attendee{
		ID:            res.ID,
		Kind:          kind,
		Name:          res.ClientName,
		Contact:       res.ClientPhone,
		CheckedIn:     res.CheckedIn,
		CheckedInAt:   res.CheckedInAt,
		ReservationID: &resID,
		Totals:        model.Totals{Total: res.PartySize, CheckedIn: checked},
	}
}
