package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// History page sizes: DefaultHistoryLimit applies when the filter sets
// none, MaxHistoryLimit bounds what a caller may ask for.
const (
	DefaultHistoryLimit = 200
	MaxHistoryLimit     = 1000
)

// CheckoutAuditRepo appends to and reads the checkout ledger.  The ledger
// is append-only: this type exposes no update or delete.
type CheckoutAuditRepo struct {
	db *sql.DB
}

// NewCheckoutAuditRepo returns a new CheckoutAuditRepo bound to the given database.
func NewCheckoutAuditRepo(db *sql.DB) *CheckoutAuditRepo { return &CheckoutAuditRepo{db: db} }

// Insert appends rec and returns its id.
func (r *CheckoutAuditRepo) Insert(ctx context.Context, rec *model.CheckoutAuditRecord) (uint64, error) {
	return r.insert(ctx, r.db, rec)
}

// InsertTx is Insert inside an existing transaction.
func (r *CheckoutAuditRepo) InsertTx(ctx context.Context, tx *sql.Tx, rec *model.CheckoutAuditRecord) (uint64, error) {
	return r.insert(ctx, tx, rec)
}

func (r *CheckoutAuditRepo) insert(ctx context.Context, q queryer, rec *model.CheckoutAuditRecord) (uint64, error) {
	status := rec.Status
	if status == "" {
		status = model.CheckoutStatusCompleted
	}
	var serviceDate any
	if rec.ServiceDate != nil {
		serviceDate = *rec.ServiceDate
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO checkout_audit
			(entity_kind, entity_id, name, checked_in_at, checked_out_at, event_id, guest_list_id,
			 reservation_id, venue_id, service_date, status, actor_user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.EntityKind), rec.EntityID, rec.Name, rec.CheckedInAt, rec.CheckedOutAt.UTC(),
		rec.EventID, rec.GuestListID, rec.ReservationID, rec.VenueID, serviceDate,
		status, rec.ActorUserID, rec.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = uint64(id)
	rec.Status = status
	return rec.ID, nil
}

// HasCheckout reports whether the ledger holds a checkout for the entity.
func (r *CheckoutAuditRepo) HasCheckout(ctx context.Context, kind model.EntityKind, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM checkout_audit WHERE entity_kind = ? AND entity_id = ? LIMIT 1`, string(kind), id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns ledger rows matching f, most recent checkout first.
func (r *CheckoutAuditRepo) List(ctx context.Context, f model.CheckoutFilter) ([]model.CheckoutAuditRecord, error) {
	var (
		conds []string
		args  []any
	)
	if f.EventID != nil {
		conds = append(conds, "event_id = ?")
		args = append(args, *f.EventID)
	}
	if f.GuestListID != nil {
		conds = append(conds, "guest_list_id = ?")
		args = append(args, *f.GuestListID)
	}
	if f.VenueID != nil {
		conds = append(conds, "venue_id = ?")
		args = append(args, *f.VenueID)
	}
	if f.Date != nil {
		conds = append(conds, "service_date = ?")
		args = append(args, *f.Date)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	query := `SELECT id, entity_kind, entity_id, name, checked_in_at, checked_out_at, event_id, guest_list_id,
					 reservation_id, venue_id, service_date, status, actor_user_id, created_at
			  FROM checkout_audit`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY checked_out_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CheckoutAuditRecord, 0)
	for rows.Next() {
		var (
			rec         model.CheckoutAuditRecord
			kind        string
			inAt        sql.NullTime
			serviceDate model.NullDate
			eventID     sql.NullInt64
			listID      sql.NullInt64
			resID       sql.NullInt64
			venueID     sql.NullInt64
			actor       sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.EntityID, &rec.Name, &inAt, &rec.CheckedOutAt,
			&eventID, &listID, &resID, &venueID, &serviceDate, &rec.Status, &actor, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.EntityKind = model.EntityKind(kind)
		rec.CheckedInAt = nullTime(inAt)
		rec.CheckedOutAt = rec.CheckedOutAt.UTC()
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.EventID = nullUint(eventID)
		rec.GuestListID = nullUint(listID)
		rec.ReservationID = nullUint(resID)
		rec.VenueID = nullUint(venueID)
		rec.ServiceDate = serviceDate.Ptr()
		rec.ActorUserID = nullUint(actor)
		out = append(out, rec)
	}
	return out, rows.Err()
}
