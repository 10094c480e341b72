package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-checkin/internal/database"
	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/testutil"
)

var (
	day   = model.NewDate(2025, 3, 14)
	other = model.NewDate(2025, 3, 15)
)

func TestSchemaProbeFullSchema(t *testing.T) {
	db := testutil.NewDB(t)
	probe := repository.NewSchemaProbe(db, time.Minute)

	caps, err := probe.Capabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repository.Capabilities{
		HasEntryClassification: true,
		HasCheckoutTimestamp:   true,
		HasOwnerCheckout:       true,
		HasSecondaryCatalog:    true,
	}, caps)
}

func TestSchemaProbeOlderSchema(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "old.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	testutil.Exec(t, db, `CREATE TABLE guests (id INTEGER PRIMARY KEY, guest_list_id INTEGER, name TEXT, checked_in INTEGER, checked_in_at DATETIME)`)
	testutil.Exec(t, db, `CREATE TABLE guest_lists (id INTEGER PRIMARY KEY, owner_checked_in INTEGER)`)

	probe := repository.NewSchemaProbe(db, time.Minute)
	caps, err := probe.Capabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repository.Capabilities{}, caps)

	// cached until invalidated
	testutil.Exec(t, db, `ALTER TABLE guests ADD COLUMN entry_type TEXT`)
	testutil.Exec(t, db, `ALTER TABLE guests ADD COLUMN entry_value REAL`)
	caps, err = probe.Capabilities(context.Background())
	require.NoError(t, err)
	assert.False(t, caps.HasEntryClassification)

	probe.Invalidate()
	caps, err = probe.Capabilities(context.Background())
	require.NoError(t, err)
	assert.True(t, caps.HasEntryClassification)
}

func TestRelinkByVenueDateOverridesOtherEvents(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.Reservation(t, db, model.ReservationTable, 1, 7, day, 2, "Ana", nil)
	testutil.Reservation(t, db, model.ReservationTable, 2, 7, day, 2, "Bia", testutil.Ptr(uint64(50)))
	testutil.Reservation(t, db, model.ReservationTable, 3, 7, day, 2, "Caio", testutil.Ptr(uint64(99)))
	testutil.Reservation(t, db, model.ReservationTable, 4, 7, other, 2, "Duda", nil)
	testutil.Reservation(t, db, model.ReservationTable, 5, 8, day, 2, "Edu", nil)

	repo := repository.NewReservationRepo(db)
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	n, err := repo.RelinkByVenueDateTx(ctx, tx, model.ReservationTable, 7, day, 99)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.EqualValues(t, 2, n)

	for id, want := range map[uint64]*uint64{1: testutil.Ptr(uint64(99)), 2: testutil.Ptr(uint64(99)), 3: testutil.Ptr(uint64(99)), 4: nil, 5: nil} {
		res, err := repo.Get(ctx, model.ReservationTable, id)
		require.NoError(t, err)
		assert.Equal(t, want, res.EventID, "reservation %d", id)
	}
}

func TestListForScopeLegacyFallback(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.Reservation(t, db, model.ReservationBottle, 1, 7, day, 4, "Linked", testutil.Ptr(uint64(99)))
	testutil.Reservation(t, db, model.ReservationBottle, 2, 7, day, 4, "Unlinked", nil)
	testutil.Reservation(t, db, model.ReservationBottle, 3, 7, day, 4, "Elsewhere", testutil.Ptr(uint64(12)))

	repo := repository.NewReservationRepo(db)
	scope := model.Scope{EventID: 99, VenueID: testutil.Ptr(uint64(7)), Date: &day}

	got, err := repo.ListForScope(ctx, model.ReservationBottle, scope, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].ID)
	assert.Equal(t, uint64(2), got[1].ID)
	assert.Equal(t, "2025-03-14", got[1].Date.String())

	got, err = repo.ListForScope(ctx, model.ReservationBottle, scope, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)
}

func TestBackfillEventLinks(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.Event(t, db, 1, testutil.Ptr(uint64(7)), "", &day, model.EventOneTime)
	testutil.Event(t, db, 2, testutil.Ptr(uint64(8)), "", &day, model.EventOneTime)
	testutil.Event(t, db, 3, testutil.Ptr(uint64(8)), "", &day, model.EventOneTime)
	testutil.Reservation(t, db, model.ReservationTable, 10, 7, day, 2, "Unique", nil)
	testutil.Reservation(t, db, model.ReservationTable, 11, 8, day, 2, "Ambiguous", nil)
	testutil.Reservation(t, db, model.ReservationTable, 12, 9, day, 2, "Orphan", nil)

	repo := repository.NewReservationRepo(db)
	linked, ambiguous, err := repo.BackfillEventLinks(ctx, model.ReservationTable)
	require.NoError(t, err)
	assert.EqualValues(t, 1, linked)
	assert.EqualValues(t, 1, ambiguous)

	res, err := repo.Get(ctx, model.ReservationTable, 10)
	require.NoError(t, err)
	assert.Equal(t, testutil.Ptr(uint64(1)), res.EventID)

	res, err = repo.Get(ctx, model.ReservationTable, 11)
	require.NoError(t, err)
	assert.Nil(t, res.EventID)
}

func TestReservationUnknownKind(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := repository.NewReservationRepo(db).Get(context.Background(), model.ReservationKind("boat"), 1)
	assert.ErrorIs(t, err, repository.ErrUnknownKind)
}

func TestGuestMarkCheckedInIsConditional(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.Reservation(t, db, model.ReservationBottle, 20, 7, day, 3, "Owner", nil)
	listID := testutil.GuestList(t, db, model.ReservationBottle, 20, nil)
	guestID := testutil.Guest(t, db, listID, "Guest", false)

	caps := repository.Capabilities{HasEntryClassification: true, HasCheckoutTimestamp: true}
	repo := repository.NewGuestRepo(db)
	at := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
	value := 50.0

	ok, err := repo.MarkCheckedIn(ctx, guestID, at, &repository.Entry{Type: model.EntryPaid, Value: &value}, caps)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkCheckedIn(ctx, guestID, at, nil, caps)
	require.NoError(t, err)
	assert.False(t, ok)

	g, err := repo.Get(ctx, guestID, caps)
	require.NoError(t, err)
	assert.True(t, g.CheckedIn)
	require.NotNil(t, g.CheckedInAt)
	assert.True(t, at.Equal(*g.CheckedInAt))
	require.NotNil(t, g.EntryType)
	assert.Equal(t, model.EntryPaid, *g.EntryType)
	assert.Equal(t, &value, g.EntryValue)

	_, err = repo.Get(ctx, 404, caps)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGuestListOwnerName(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Reservation(t, db, model.ReservationTable, 10, 7, day, 3, "Marina", nil)
	listID := testutil.GuestList(t, db, model.ReservationTable, 10, testutil.Ptr(uint64(4)))

	gl, err := repository.NewGuestListRepo(db).Get(context.Background(), listID, repository.Capabilities{HasOwnerCheckout: true})
	require.NoError(t, err)
	assert.Equal(t, "Marina", gl.OwnerName)
	assert.Equal(t, model.ReservationTable, gl.ReservationKind)
	assert.Equal(t, testutil.Ptr(uint64(4)), gl.PromoterID)
	assert.False(t, gl.OwnerCheckedIn)
}

func TestPromoterEntriesForEvent(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Exec(t, db, `INSERT INTO promoter_events (promoter_id, event_id) VALUES (5, 99)`)
	direct := testutil.PromoterList(t, db, testutil.Ptr(uint64(6)), testutil.Ptr(uint64(99)), model.PromoterListCurated)
	viaPromoter := testutil.PromoterList(t, db, testutil.Ptr(uint64(5)), nil, model.PromoterListCurated)
	unrelated := testutil.PromoterList(t, db, testutil.Ptr(uint64(8)), nil, model.PromoterListCurated)
	testutil.PromoterEntry(t, db, direct, "A", model.PromoterGuestPending)
	testutil.PromoterEntry(t, db, viaPromoter, "B", model.PromoterGuestCheckedIn)
	testutil.PromoterEntry(t, db, unrelated, "C", model.PromoterGuestPending)

	got, err := repository.NewPromoterRepo(db).ListEntriesForEvent(context.Background(), 99)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)
	assert.Equal(t, testutil.Ptr(uint64(5)), got[1].PromoterID)
}

func TestCheckoutAuditListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewCheckoutAuditRepo(db)
	base := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)

	for i, ev := range []uint64{99, 99, 12} {
		_, err := repo.Insert(ctx, &model.CheckoutAuditRecord{
			EntityKind:   model.EntityGuest,
			EntityID:     uint64(i + 1),
			Name:         "Guest",
			CheckedOutAt: base.Add(time.Duration(i) * time.Minute),
			EventID:      testutil.Ptr(ev),
			VenueID:      testutil.Ptr(uint64(7)),
			ServiceDate:  &day,
			CreatedAt:    base,
		})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, model.CheckoutFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(3), all[0].EntityID, "newest first")
	assert.Equal(t, model.CheckoutStatusCompleted, all[0].Status)

	byEvent, err := repo.List(ctx, model.CheckoutFilter{EventID: testutil.Ptr(uint64(99)), Date: &day})
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	none, err := repo.List(ctx, model.CheckoutFilter{Date: &other})
	require.NoError(t, err)
	assert.Empty(t, none)

	has, err := repo.HasCheckout(ctx, model.EntityGuest, 2)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = repo.HasCheckout(ctx, model.EntityOwner, 2)
	require.NoError(t, err)
	assert.False(t, has)
}
