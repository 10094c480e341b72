package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// ReservationRepo provides access to table and bottle-service
// reservations.  Both kinds share a schema and live in
// table_reservations and bottle_reservations; every method takes the kind
// and resolves the table name through reservationTable.  All timestamp
// fields are assumed to be stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so services can open transactions that
// span several repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// reservationTable maps a kind onto its table.  Table names never come
// from user input, only from this switch.
func reservationTable(kind model.ReservationKind) (string, error) {
	switch kind {
	case model.ReservationTable:
		return "table_reservations", nil
	case model.ReservationBottle:
		return "bottle_reservations", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Get loads one reservation.  It returns ErrNotFound when the row does not
// exist.
func (r *ReservationRepo) Get(ctx context.Context, kind model.ReservationKind, id uint64) (*model.Reservation, error) {
	return r.get(ctx, r.db, kind, id)
}

// GetTx is Get inside an existing transaction.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, kind model.ReservationKind, id uint64) (*model.Reservation, error) {
	return r.get(ctx, tx, kind, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *ReservationRepo) get(ctx context.Context, q queryer, kind model.ReservationKind, id uint64) (*model.Reservation, error) {
	table, err := reservationTable(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, venue_id, reservation_date, party_size, client_name, client_phone,
					 event_id, checked_in, checked_in_at
			  FROM ` + table + ` WHERE id = ?`
	var (
		res       model.Reservation
		phone     sql.NullString
		eventID   sql.NullInt64
		checkedAt sql.NullTime
	)
	if err := q.QueryRowContext(ctx, query, id).Scan(
		&res.ID, &res.VenueID, &res.Date, &res.PartySize, &res.ClientName, &phone,
		&eventID, &res.CheckedIn, &checkedAt,
	); err != nil {
		return nil, notFound(err)
	}
	res.Kind = kind
	res.ClientPhone = nullString(phone)
	res.EventID = nullUint(eventID)
	res.CheckedInAt = nullTime(checkedAt)
	return &res, nil
}

// RelinkByVenueDateTx points every reservation of kind at venueID/date to
// eventID, including rows currently linked to a different event.  Rows
// already linked to eventID are left untouched.  It returns the number of
// rows that changed.
func (r *ReservationRepo) RelinkByVenueDateTx(ctx context.Context, tx *sql.Tx, kind model.ReservationKind, venueID uint64, date model.Date, eventID uint64) (int64, error) {
	table, err := reservationTable(kind)
	if err != nil {
		return 0, err
	}
	query := `UPDATE ` + table + ` SET event_id = ?
			  WHERE venue_id = ? AND reservation_date = ?
				AND (event_id IS NULL OR event_id <> ?)`
	res, err := tx.ExecContext(ctx, query, eventID, venueID, date, eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetEventTx links a single reservation to eventID.  It returns
// ErrNotFound when the reservation does not exist.
func (r *ReservationRepo) SetEventTx(ctx context.Context, tx *sql.Tx, kind model.ReservationKind, id, eventID uint64) error {
	table, err := reservationTable(kind)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE `+table+` SET event_id = ? WHERE id = ?`, eventID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 affected rows when the value did not change, so
		// confirm existence before calling it missing.
		if _, err := r.get(ctx, tx, kind, id); err != nil {
			return err
		}
	}
	return nil
}

// BackfillEventLinks assigns event_id to every unlinked reservation of kind
// whose venue and date match exactly one event.  It returns how many rows
// were linked and how many were skipped because several events matched.
func (r *ReservationRepo) BackfillEventLinks(ctx context.Context, kind model.ReservationKind) (linked, ambiguous int64, err error) {
	table, err := reservationTable(kind)
	if err != nil {
		return 0, 0, err
	}
	const candidates = `SELECT COUNT(*) FROM events e WHERE e.venue_id = t.venue_id AND e.event_date = t.reservation_date`
	update := `UPDATE ` + table + ` AS t
			   SET event_id = (SELECT e.id FROM events e WHERE e.venue_id = t.venue_id AND e.event_date = t.reservation_date)
			   WHERE t.event_id IS NULL AND (` + candidates + `) = 1`
	res, err := r.db.ExecContext(ctx, update)
	if err != nil {
		return 0, 0, fmt.Errorf("backfill %s: %w", table, err)
	}
	if linked, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}
	count := `SELECT COUNT(*) FROM ` + table + ` AS t WHERE t.event_id IS NULL AND (` + candidates + `) > 1`
	if err := r.db.QueryRowContext(ctx, count).Scan(&ambiguous); err != nil {
		return linked, 0, fmt.Errorf("count ambiguous %s: %w", table, err)
	}
	return linked, ambiguous, nil
}

// MarkCheckedIn flips checked_in from 0 to 1 in one conditional update.  It
// reports false when the row was already checked in (or does not exist);
// callers reload to tell the two apart.
func (r *ReservationRepo) MarkCheckedIn(ctx context.Context, kind model.ReservationKind, id uint64, at time.Time) (bool, error) {
	table, err := reservationTable(kind)
	if err != nil {
		return false, err
	}
	return affected(r.db.ExecContext(ctx, `UPDATE `+table+` SET checked_in = 1, checked_in_at = ? WHERE id = ? AND checked_in = 0`, at, id))
}

// ClearCheckedInTx is the checkout proxy for reservations, which carry no
// dedicated checkout flag.  It reports false when the row was not checked in.
func (r *ReservationRepo) ClearCheckedInTx(ctx context.Context, tx *sql.Tx, kind model.ReservationKind, id uint64) (bool, error) {
	table, err := reservationTable(kind)
	if err != nil {
		return false, err
	}
	return affected(tx.ExecContext(ctx, `UPDATE `+table+` SET checked_in = 0 WHERE id = ? AND checked_in = 1`, id))
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullUint(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// ListForScope returns the reservations of kind that belong to the scope's
// event, ordered by id.  With legacyFallback set, rows that were never
// linked but sit at the scope's venue and date are included too.
func (r *ReservationRepo) ListForScope(ctx context.Context, kind model.ReservationKind, scope model.Scope, legacyFallback bool) ([]model.Reservation, error) {
	table, err := reservationTable(kind)
	if err != nil {
		return nil, err
	}
	where := `event_id = ?`
	args := []any{scope.EventID}
	if legacyFallback && scope.HasVenueDate() {
		where = `(event_id = ? OR (event_id IS NULL AND venue_id = ? AND reservation_date = ?))`
		args = append(args, *scope.VenueID, *scope.Date)
	}
	query := `SELECT id, venue_id, reservation_date, party_size, client_name, client_phone,
					 event_id, checked_in, checked_in_at
			  FROM ` + table + ` WHERE ` + where + ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var (
			res       model.Reservation
			phone     sql.NullString
			eventID   sql.NullInt64
			checkedAt sql.NullTime
		)
		if err := rows.Scan(&res.ID, &res.VenueID, &res.Date, &res.PartySize, &res.ClientName, &phone,
			&eventID, &res.CheckedIn, &checkedAt); err != nil {
			return nil, err
		}
		res.Kind = kind
		res.ClientPhone = nullString(phone)
		res.EventID = nullUint(eventID)
		res.CheckedInAt = nullTime(checkedAt)
		out = append(out, res)
	}
	return out, rows.Err()
}
