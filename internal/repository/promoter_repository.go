package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// PromoterRepo provides access to promoter lists and their entries.
type PromoterRepo struct {
	db *sql.DB
}

// NewPromoterRepo returns a new PromoterRepo bound to the given database.
func NewPromoterRepo(db *sql.DB) *PromoterRepo { return &PromoterRepo{db: db} }

// ReservationListName is the display name of the event-scoped list that
// linked reservations copy their people into.
const ReservationListName = "Reservations"

const entryColumns = `g.id, g.list_id, pl.promoter_id, pl.event_id, g.name, g.contact, g.status, g.checked_in_at`

func scanEntry(sc interface{ Scan(...any) error }) (model.PromoterGuestEntry, error) {
	var (
		e          model.PromoterGuestEntry
		promoterID sql.NullInt64
		eventID    sql.NullInt64
		contact    sql.NullString
		status     string
		inAt       sql.NullTime
	)
	if err := sc.Scan(&e.ID, &e.ListID, &promoterID, &eventID, &e.Name, &contact, &status, &inAt); err != nil {
		return model.PromoterGuestEntry{}, err
	}
	e.PromoterID = nullUint(promoterID)
	e.EventID = nullUint(eventID)
	e.Contact = nullString(contact)
	e.Status = model.PromoterGuestStatus(status)
	e.CheckedInAt = nullTime(inAt)
	return e, nil
}

// GetEntry loads one promoter list entry with its list's promoter and
// event, or returns ErrNotFound.
func (r *PromoterRepo) GetEntry(ctx context.Context, id uint64) (*model.PromoterGuestEntry, error) {
	query := `SELECT ` + entryColumns + `
			  FROM promoter_list_guests g JOIN promoter_lists pl ON pl.id = g.list_id
			  WHERE g.id = ?`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// ListEntriesForEvent returns the entries of every list linked to eventID
// plus those of unlinked lists whose promoter works the event.
func (r *PromoterRepo) ListEntriesForEvent(ctx context.Context, eventID uint64) ([]model.PromoterGuestEntry, error) {
	query := `SELECT ` + entryColumns + `
			  FROM promoter_list_guests g JOIN promoter_lists pl ON pl.id = g.list_id
			  WHERE pl.event_id = ?
				 OR (pl.event_id IS NULL AND pl.promoter_id IN
					 (SELECT pe.promoter_id FROM promoter_events pe WHERE pe.event_id = ?))
			  ORDER BY g.id`
	rows, err := r.db.QueryContext(ctx, query, eventID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PromoterGuestEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkEntryCheckedIn moves a pending or no-show entry to checked_in.  It
// reports false when the entry was already checked in or does not exist.
func (r *PromoterRepo) MarkEntryCheckedIn(ctx context.Context, id uint64, at time.Time) (bool, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE promoter_list_guests SET status = ?, checked_in_at = ? WHERE id = ? AND status <> ?`,
		string(model.PromoterGuestCheckedIn), at, id, string(model.PromoterGuestCheckedIn)))
}

// FindOrCreateReservationListTx returns the id of the event's
// reservation-kind list, creating it when missing.
func (r *PromoterRepo) FindOrCreateReservationListTx(ctx context.Context, tx *sql.Tx, eventID uint64) (uint64, error) {
	var id uint64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM promoter_lists WHERE event_id = ? AND kind = ? ORDER BY id LIMIT 1`,
		eventID, string(model.PromoterListReservation)).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO promoter_lists (name, promoter_id, event_id, kind) VALUES (?, NULL, ?, ?)`,
		ReservationListName, eventID, string(model.PromoterListReservation))
	if err != nil {
		return 0, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(lastID), nil
}

// EntryNamesTx returns the names already on a list.
func (r *PromoterRepo) EntryNamesTx(ctx context.Context, tx *sql.Tx, listID uint64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM promoter_list_guests WHERE list_id = ?`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// InsertEntryTx adds a pending entry to a list.
func (r *PromoterRepo) InsertEntryTx(ctx context.Context, tx *sql.Tx, listID uint64, name string, contact *string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO promoter_list_guests (list_id, name, contact, status) VALUES (?, ?, ?, ?)`,
		listID, name, contact, string(model.PromoterGuestPending))
	return err
}
