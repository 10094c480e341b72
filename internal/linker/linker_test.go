package linker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/testutil"
)

var day = model.NewDate(2025, 3, 14)

func TestRelinkIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Reservation(t, db, model.ReservationTable, 10, 7, day, 3, "Table", nil)
	testutil.Reservation(t, db, model.ReservationBottle, 20, 7, day, 8, "Bottle", testutil.Ptr(uint64(55)))
	l := New(db, repository.NewSchemaProbe(db, time.Minute), nil, nil)
	ctx := context.Background()

	n, err := l.Relink(ctx, 7, day, 99)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = l.Relink(ctx, 7, day, 99)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, 2, testutil.Count(t, db, `SELECT COUNT(*) FROM table_reservations WHERE event_id = 99`)+
		testutil.Count(t, db, `SELECT COUNT(*) FROM bottle_reservations WHERE event_id = 99`))
}

func TestLinkReservationCopiesNamesOnce(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Event(t, db, 99, testutil.Ptr(uint64(7)), "", &day, model.EventOneTime)
	testutil.Reservation(t, db, model.ReservationBottle, 20, 7, day, 4, "Marina", nil)
	listID := testutil.GuestList(t, db, model.ReservationBottle, 20, nil)
	testutil.Guest(t, db, listID, "Paulo", false)
	testutil.Guest(t, db, listID, "  paulo ", false)
	testutil.Guest(t, db, listID, "Rita", true)
	l := New(db, repository.NewSchemaProbe(db, time.Minute), nil, nil)
	ctx := context.Background()

	added, err := l.LinkReservation(ctx, model.ReservationBottle, 20, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, added, "owner plus two distinct guests")

	added, err = l.LinkReservation(ctx, model.ReservationBottle, 20, 99)
	require.NoError(t, err)
	assert.Zero(t, added)

	assert.Equal(t, 1, testutil.Count(t, db, `SELECT COUNT(*) FROM promoter_lists WHERE event_id = 99 AND kind = 'reservation'`))
	assert.Equal(t, 3, testutil.Count(t, db, `SELECT COUNT(*) FROM promoter_list_guests`))
	assert.Equal(t, 1, testutil.Count(t, db, `SELECT COUNT(*) FROM bottle_reservations WHERE id = 20 AND event_id = 99`))
}

func TestLinkReservationNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Event(t, db, 99, nil, "", nil, model.EventWeekly)
	l := New(db, repository.NewSchemaProbe(db, time.Minute), nil, nil)
	ctx := context.Background()

	_, err := l.LinkReservation(ctx, model.ReservationTable, 1, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	testutil.Reservation(t, db, model.ReservationTable, 1, 7, day, 2, "Ana", nil)
	_, err = l.LinkReservation(ctx, model.ReservationTable, 1, 12345)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = l.LinkReservation(ctx, model.ReservationKind("boat"), 1, 99)
	assert.ErrorIs(t, err, repository.ErrUnknownKind)
}

func TestBackfillBothKinds(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Event(t, db, 99, testutil.Ptr(uint64(7)), "", &day, model.EventOneTime)
	testutil.Reservation(t, db, model.ReservationTable, 10, 7, day, 3, "Table", nil)
	testutil.Reservation(t, db, model.ReservationBottle, 20, 7, day, 8, "Bottle", nil)
	l := New(db, repository.NewSchemaProbe(db, time.Minute), nil, nil)

	results, err := l.Backfill(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.EqualValues(t, 1, r.Linked, r.Kind)
		assert.Zero(t, r.Ambiguous, r.Kind)
	}
}
