package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// EventRepo provides read access to events and the single write the
// engine performs on them: filling in a missing venue reference.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// GetByID loads an event.  It returns ErrNotFound when no row matches.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, name, venue_id, venue_name, event_date, event_type FROM events WHERE id = ?`
	var (
		ev      model.Event
		venueID sql.NullInt64
		date    model.NullDate
		typ     string
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&ev.ID, &ev.Name, &venueID, &ev.VenueName, &date, &typ); err != nil {
		return nil, notFound(err)
	}
	if venueID.Valid {
		v := uint64(venueID.Int64)
		ev.VenueID = &v
	}
	ev.Date = date.Ptr()
	ev.Type = model.EventType(typ)
	return &ev, nil
}

// SetVenueIfUnset writes venueID onto the event only while its reference
// is still NULL, so a resolved reference is never overwritten or cleared.
// It reports whether the row changed.
func (r *EventRepo) SetVenueIfUnset(ctx context.Context, eventID, venueID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET venue_id = ? WHERE id = ? AND venue_id IS NULL`, venueID, eventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Exists reports whether an event with id exists.
func (r *EventRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
