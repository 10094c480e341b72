// Package testutil builds throwaway SQLite databases with the production
// schema and inserts fixture rows for package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-checkin/internal/database"
	"github.com/iliyamo/venue-checkin/internal/model"
)

// NewDB returns a migrated SQLite database living in t.TempDir().
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "checkin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite"))
	return db
}

// Exec runs a statement and fails the test on error.
func Exec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	_, err := db.Exec(query, args...)
	require.NoError(t, err, query)
}

// Insert runs an INSERT and returns the new row id.
func Insert(t *testing.T, db *sql.DB, query string, args ...any) uint64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	require.NoError(t, err, query)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// Venue inserts a canonical venue with a fixed id.
func Venue(t *testing.T, db *sql.DB, id uint64, name string) {
	t.Helper()
	Exec(t, db, `INSERT INTO venues (id, name) VALUES (?, ?)`, id, name)
}

// Event inserts an event.  venueID and date may be nil.
func Event(t *testing.T, db *sql.DB, id uint64, venueID *uint64, venueName string, date *model.Date, typ model.EventType) {
	t.Helper()
	var d any
	if date != nil {
		d = *date
	}
	Exec(t, db, `INSERT INTO events (id, name, venue_id, venue_name, event_date, event_type) VALUES (?, ?, ?, ?, ?, ?)`,
		id, "Event", venueID, venueName, d, string(typ))
}

// Reservation inserts a table or bottle reservation with a fixed id.
func Reservation(t *testing.T, db *sql.DB, kind model.ReservationKind, id, venueID uint64, date model.Date, party int, client string, eventID *uint64) {
	t.Helper()
	table := "table_reservations"
	if kind == model.ReservationBottle {
		table = "bottle_reservations"
	}
	Exec(t, db, `INSERT INTO `+table+` (id, venue_id, reservation_date, party_size, client_name, event_id) VALUES (?, ?, ?, ?, ?, ?)`,
		id, venueID, date, party, client, eventID)
}

// GuestList inserts a guest list for a reservation and returns its id.
func GuestList(t *testing.T, db *sql.DB, kind model.ReservationKind, reservationID uint64, promoterID *uint64) uint64 {
	t.Helper()
	return Insert(t, db, `INSERT INTO guest_lists (reservation_id, reservation_kind, promoter_id, share_token, expires_at) VALUES (?, ?, ?, ?, ?)`,
		reservationID, string(kind), promoterID, "tok", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
}

// Guest inserts a guest and returns its id.
func Guest(t *testing.T, db *sql.DB, listID uint64, name string, checkedIn bool) uint64 {
	t.Helper()
	var at any
	if checkedIn {
		at = time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC)
	}
	return Insert(t, db, `INSERT INTO guests (guest_list_id, name, checked_in, checked_in_at) VALUES (?, ?, ?, ?)`,
		listID, name, boolInt(checkedIn), at)
}

// PromoterList inserts a promoter list and returns its id.
func PromoterList(t *testing.T, db *sql.DB, promoterID, eventID *uint64, kind model.PromoterListKind) uint64 {
	t.Helper()
	return Insert(t, db, `INSERT INTO promoter_lists (name, promoter_id, event_id, kind) VALUES (?, ?, ?, ?)`,
		"List", promoterID, eventID, string(kind))
}

// PromoterEntry inserts an entry on a promoter list and returns its id.
func PromoterEntry(t *testing.T, db *sql.DB, listID uint64, name string, status model.PromoterGuestStatus) uint64 {
	t.Helper()
	return Insert(t, db, `INSERT INTO promoter_list_guests (list_id, name, status) VALUES (?, ?, ?)`,
		listID, name, string(status))
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Count returns SELECT COUNT(*) for the given query.
func Count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n), query)
	return n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
