package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// GuestRepo provides access to guest rows.  Which columns are read and
// written depends on the deployment's Capabilities.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a new GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

// Entry is the optional classification recorded at check-in.
type Entry struct {
	Type  model.EntryType
	Value *float64
}

func guestColumns(caps Capabilities) string {
	cols := `id, guest_list_id, name, contact, checked_in, checked_in_at`
	if caps.HasCheckoutTimestamp {
		cols += `, checked_out, checked_out_at`
	} else {
		cols += `, 0, NULL`
	}
	if caps.HasEntryClassification {
		cols += `, entry_type, entry_value`
	} else {
		cols += `, NULL, NULL`
	}
	return cols
}

func scanGuest(sc interface{ Scan(...any) error }) (model.Guest, error) {
	var (
		g          model.Guest
		contact    sql.NullString
		inAt       sql.NullTime
		outAt      sql.NullTime
		entryType  sql.NullString
		entryValue sql.NullFloat64
	)
	if err := sc.Scan(&g.ID, &g.GuestListID, &g.Name, &contact, &g.CheckedIn, &inAt,
		&g.CheckedOut, &outAt, &entryType, &entryValue); err != nil {
		return model.Guest{}, err
	}
	g.Contact = nullString(contact)
	g.CheckedInAt = nullTime(inAt)
	g.CheckedOutAt = nullTime(outAt)
	if entryType.Valid {
		t := model.EntryType(entryType.String)
		g.EntryType = &t
	}
	g.EntryValue = nullFloat(entryValue)
	return g, nil
}

// Get loads one guest or returns ErrNotFound.
func (r *GuestRepo) Get(ctx context.Context, id uint64, caps Capabilities) (*model.Guest, error) {
	g, err := scanGuest(r.db.QueryRowContext(ctx, `SELECT `+guestColumns(caps)+` FROM guests WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// ListByGuestLists returns the guests of the given lists, ordered by id.
func (r *GuestRepo) ListByGuestLists(ctx context.Context, listIDs []uint64, caps Capabilities) ([]model.Guest, error) {
	return r.listByGuestLists(ctx, r.db, listIDs, caps)
}

// ListByGuestListsTx is ListByGuestLists inside an existing transaction.
func (r *GuestRepo) ListByGuestListsTx(ctx context.Context, tx *sql.Tx, listIDs []uint64, caps Capabilities) ([]model.Guest, error) {
	return r.listByGuestLists(ctx, tx, listIDs, caps)
}

func (r *GuestRepo) listByGuestLists(ctx context.Context, q queryer, listIDs []uint64, caps Capabilities) ([]model.Guest, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(listIDs)
	rows, err := q.QueryContext(ctx, `SELECT `+guestColumns(caps)+` FROM guests WHERE guest_list_id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// MarkCheckedIn flips checked_in from 0 to 1 in a single conditional
// update, writing the entry classification when the deployment has the
// columns.  A guest who already checked out cannot check in again.  It
// reports false when nothing changed.
func (r *GuestRepo) MarkCheckedIn(ctx context.Context, id uint64, at time.Time, entry *Entry, caps Capabilities) (bool, error) {
	set := `checked_in = 1, checked_in_at = ?`
	args := []any{at}
	if caps.HasEntryClassification && entry != nil {
		set += `, entry_type = ?, entry_value = ?`
		args = append(args, string(entry.Type), entry.Value)
	}
	where := ` WHERE id = ? AND checked_in = 0`
	if caps.HasCheckoutTimestamp {
		where += ` AND checked_out = 0`
	}
	args = append(args, id)
	return affected(r.db.ExecContext(ctx, `UPDATE guests SET `+set+where, args...))
}

// MarkCheckedOut stamps checked_out/checked_out_at.  Callers must check
// Capabilities.HasCheckoutTimestamp first.
func (r *GuestRepo) MarkCheckedOut(ctx context.Context, id uint64, at time.Time) (bool, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE guests SET checked_out = 1, checked_out_at = ? WHERE id = ? AND checked_in = 1 AND checked_out = 0`, at, id))
}

// ClearCheckedInTx is the checkout proxy for deployments without checkout
// columns.
func (r *GuestRepo) ClearCheckedInTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	return affected(tx.ExecContext(ctx, `UPDATE guests SET checked_in = 0 WHERE id = ? AND checked_in = 1`, id))
}

// inClause builds "?,?,?" and the matching argument slice.
func inClause(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	buf := make([]byte, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '?')
		args[i] = id
	}
	return string(buf), args
}
