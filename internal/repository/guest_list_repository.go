package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// GuestListRepo provides access to guest lists and the owner check-in
// columns stored on them.
type GuestListRepo struct {
	db *sql.DB
}

// NewGuestListRepo returns a new GuestListRepo bound to the given database.
func NewGuestListRepo(db *sql.DB) *GuestListRepo { return &GuestListRepo{db: db} }

// ownerNameJoin resolves the owner's display name from whichever
// reservation table the list belongs to.
const ownerNameJoin = `
	LEFT JOIN table_reservations tr ON gl.reservation_kind = 'table' AND tr.id = gl.reservation_id
	LEFT JOIN bottle_reservations br ON gl.reservation_kind = 'bottle' AND br.id = gl.reservation_id`

// Get loads a guest list together with its owner's name.  Owner checkout
// columns are only read when caps reports them.
func (r *GuestListRepo) Get(ctx context.Context, id uint64, caps Capabilities) (*model.GuestList, error) {
	return r.get(ctx, r.db, id, caps)
}

// GetTx is Get inside an existing transaction.
func (r *GuestListRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64, caps Capabilities) (*model.GuestList, error) {
	return r.get(ctx, tx, id, caps)
}

func guestListColumns(caps Capabilities) string {
	checkout := `0, NULL`
	if caps.HasOwnerCheckout {
		checkout = `gl.owner_checked_out, gl.owner_checked_out_at`
	}
	return `gl.id, gl.reservation_id, gl.reservation_kind, gl.promoter_id, gl.share_token, gl.expires_at,
			COALESCE(tr.client_name, br.client_name, ''),
			gl.owner_checked_in, gl.owner_checked_in_at, ` + checkout
}

func scanGuestList(sc interface{ Scan(...any) error }) (model.GuestList, error) {
	var (
		gl          model.GuestList
		kind        string
		promoterID  sql.NullInt64
		expiresAt   sql.NullTime
		inAt, outAt sql.NullTime
	)
	if err := sc.Scan(
		&gl.ID, &gl.ReservationID, &kind, &promoterID, &gl.ShareToken, &expiresAt,
		&gl.OwnerName, &gl.OwnerCheckedIn, &inAt, &gl.OwnerCheckedOut, &outAt,
	); err != nil {
		return model.GuestList{}, err
	}
	gl.ReservationKind = model.ReservationKind(kind)
	gl.PromoterID = nullUint(promoterID)
	gl.ExpiresAt = nullTime(expiresAt)
	gl.OwnerCheckedInAt = nullTime(inAt)
	gl.OwnerCheckedOutAt = nullTime(outAt)
	return gl, nil
}

func (r *GuestListRepo) get(ctx context.Context, q queryer, id uint64, caps Capabilities) (*model.GuestList, error) {
	query := `SELECT ` + guestListColumns(caps) + ` FROM guest_lists gl` + ownerNameJoin + ` WHERE gl.id = ?`
	gl, err := scanGuestList(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &gl, nil
}

// ListByReservations returns the guest lists of the given reservations,
// ordered by id.
func (r *GuestListRepo) ListByReservations(ctx context.Context, kind model.ReservationKind, reservationIDs []uint64, caps Capabilities) ([]model.GuestList, error) {
	if len(reservationIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(reservationIDs)
	query := `SELECT ` + guestListColumns(caps) + ` FROM guest_lists gl` + ownerNameJoin + `
			  WHERE gl.reservation_kind = ? AND gl.reservation_id IN (` + placeholders + `)
			  ORDER BY gl.id`
	rows, err := r.db.QueryContext(ctx, query, append([]any{string(kind)}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GuestList
	for rows.Next() {
		gl, err := scanGuestList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, gl)
	}
	return out, rows.Err()
}

// ListByReservationTx returns every guest list attached to a reservation.
func (r *GuestListRepo) ListByReservationTx(ctx context.Context, tx *sql.Tx, kind model.ReservationKind, reservationID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM guest_lists WHERE reservation_kind = ? AND reservation_id = ? ORDER BY id`, string(kind), reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkOwnerCheckedIn flips owner_checked_in from 0 to 1 in one conditional
// update.  When the deployment tracks owner checkout, an owner who already
// left cannot be checked in again.
func (r *GuestListRepo) MarkOwnerCheckedIn(ctx context.Context, id uint64, at time.Time, caps Capabilities) (bool, error) {
	query := `UPDATE guest_lists SET owner_checked_in = 1, owner_checked_in_at = ? WHERE id = ? AND owner_checked_in = 0`
	if caps.HasOwnerCheckout {
		query += ` AND owner_checked_out = 0`
	}
	return affected(r.db.ExecContext(ctx, query, at, id))
}

// MarkOwnerCheckedOut stamps the owner checkout columns.  Callers must
// check Capabilities.HasOwnerCheckout first.
func (r *GuestListRepo) MarkOwnerCheckedOut(ctx context.Context, id uint64, at time.Time) (bool, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE guest_lists SET owner_checked_out = 1, owner_checked_out_at = ?
		 WHERE id = ? AND owner_checked_in = 1 AND owner_checked_out = 0`, at, id))
}

// ClearOwnerCheckedInTx is the owner checkout proxy for deployments without
// owner checkout columns.
func (r *GuestListRepo) ClearOwnerCheckedInTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	return affected(tx.ExecContext(ctx, `UPDATE guest_lists SET owner_checked_in = 0 WHERE id = ? AND owner_checked_in = 1`, id))
}
