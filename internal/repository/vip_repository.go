package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// VIPRepo reads camarote bookings and their nested guest lists.
type VIPRepo struct {
	db *sql.DB
}

// NewVIPRepo returns a new VIPRepo bound to the given database.
func NewVIPRepo(db *sql.DB) *VIPRepo { return &VIPRepo{db: db} }

// VIPGuest is one person on a camarote's guest list.
type VIPGuest struct {
	ID               uint64
	VIPReservationID uint64
	Name             string
	CheckedIn        bool
	CheckedInAt      *time.Time
}

// ListByVenueDate returns the camarote bookings at venueID on date.
func (r *VIPRepo) ListByVenueDate(ctx context.Context, venueID uint64, date model.Date) ([]model.VIPReservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, venue_id, reservation_date, holder_name, contact, checked_in, checked_in_at
		FROM vip_reservations
		WHERE venue_id = ? AND reservation_date = ?
		ORDER BY id`, venueID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.VIPReservation, 0)
	for rows.Next() {
		var (
			v       model.VIPReservation
			contact sql.NullString
			inAt    sql.NullTime
		)
		if err := rows.Scan(&v.ID, &v.VenueID, &v.Date, &v.HolderName, &contact, &v.CheckedIn, &inAt); err != nil {
			return nil, err
		}
		v.Contact = nullString(contact)
		v.CheckedInAt = nullTime(inAt)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListGuests returns the guests of the given camarote bookings.
func (r *VIPRepo) ListGuests(ctx context.Context, reservationIDs []uint64) ([]VIPGuest, error) {
	if len(reservationIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(reservationIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, vip_reservation_id, name, checked_in, checked_in_at
		FROM vip_guests WHERE vip_reservation_id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VIPGuest
	for rows.Next() {
		var (
			g    VIPGuest
			inAt sql.NullTime
		)
		if err := rows.Scan(&g.ID, &g.VIPReservationID, &g.Name, &g.CheckedIn, &inAt); err != nil {
			return nil, err
		}
		g.CheckedInAt = nullTime(inAt)
		out = append(out, g)
	}
	return out, rows.Err()
}
