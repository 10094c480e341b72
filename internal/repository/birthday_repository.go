package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// BirthdayRepo reads birthday packages.
type BirthdayRepo struct {
	db *sql.DB
}

// NewBirthdayRepo returns a new BirthdayRepo bound to the given database.
func NewBirthdayRepo(db *sql.DB) *BirthdayRepo { return &BirthdayRepo{db: db} }

// ListByVenueDate returns the birthday reservations at venueID on date.
func (r *BirthdayRepo) ListByVenueDate(ctx context.Context, venueID uint64, date model.Date) ([]model.BirthdayReservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, venue_id, reservation_date, celebrant_name, contact, guest_count, checked_in, checked_in_at
		FROM birthday_reservations
		WHERE venue_id = ? AND reservation_date = ?
		ORDER BY id`, venueID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BirthdayReservation, 0)
	for rows.Next() {
		var (
			b       model.BirthdayReservation
			contact sql.NullString
			inAt    sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.VenueID, &b.Date, &b.CelebrantName, &contact, &b.GuestCount, &b.CheckedIn, &inAt); err != nil {
			return nil, err
		}
		b.Contact = nullString(contact)
		b.CheckedInAt = nullTime(inAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
