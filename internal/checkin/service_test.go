package checkin

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/reward"
	"github.com/iliyamo/venue-checkin/internal/testutil"
)

var (
	day     = model.NewDate(2025, 3, 14)
	fullCap = repository.Capabilities{HasEntryClassification: true, HasCheckoutTimestamp: true, HasOwnerCheckout: true, HasSecondaryCatalog: true}
	fixedAt = time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)
)

type staticCaps struct{ caps repository.Capabilities }

func (s staticCaps) Capabilities(context.Context) (repository.Capabilities, error) { return s.caps, nil }

type refreshLog struct {
	mu           sync.Mutex
	guestLists   []uint64
	reservations []uint64
	events       []uint64
}

func (r *refreshLog) GuestListChanged(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guestLists = append(r.guestLists, id)
}

func (r *refreshLog) ReservationChanged(_ model.ReservationKind, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations = append(r.reservations, id)
}

func (r *refreshLog) EventChanged(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, id)
}

type fixture struct {
	db       *sql.DB
	svc      *Service
	refresh  *refreshLog
	listID   uint64
	promoted uint64 // guest list attributed to promoter 5
	guestID  uint64
}

func newFixture(t *testing.T, caps repository.Capabilities, opts ...Option) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.Reservation(t, db, model.ReservationBottle, 20, 7, day, 8, "Marina", testutil.Ptr(uint64(99)))
	testutil.Reservation(t, db, model.ReservationTable, 10, 7, day, 3, "Table", testutil.Ptr(uint64(99)))
	f := &fixture{db: db, refresh: &refreshLog{}}
	f.listID = testutil.GuestList(t, db, model.ReservationBottle, 20, nil)
	f.promoted = testutil.GuestList(t, db, model.ReservationTable, 10, testutil.Ptr(uint64(5)))
	f.guestID = testutil.Guest(t, db, f.listID, "Paulo", false)

	opts = append([]Option{WithClock(func() time.Time { return fixedAt }), WithRefresh(f.refresh)}, opts...)
	f.svc = NewService(db, staticCaps{caps}, opts...)
	return f
}

func TestCheckInGuestGuard(t *testing.T) {
	f := newFixture(t, fullCap)
	ctx := context.Background()

	res, err := f.svc.CheckInGuest(ctx, f.guestID, nil)
	require.NoError(t, err)
	assert.True(t, res.Guest.CheckedIn)
	require.NotNil(t, res.Guest.CheckedInAt)
	assert.True(t, fixedAt.Equal(*res.Guest.CheckedInAt))
	assert.Equal(t, []reward.Gift{}, res.GiftsAwarded)
	assert.Equal(t, []uint64{f.listID}, f.refresh.guestLists)

	_, err = f.svc.CheckInGuest(ctx, f.guestID, nil)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "already_checked_in", Code(err))

	_, err = f.svc.CheckInGuest(ctx, 404, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckInGuestConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t, fullCap)
	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CheckInGuest(context.Background(), f.guestID, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyCheckedIn):
				rejected++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, rejected)
}

func TestCheckInGuestEntryClassification(t *testing.T) {
	value := 80.0
	entry := &repository.Entry{Type: model.EntryPaid, Value: &value}

	t.Run("stored when supported", func(t *testing.T) {
		f := newFixture(t, fullCap)
		res, err := f.svc.CheckInGuest(context.Background(), f.guestID, entry)
		require.NoError(t, err)
		require.NotNil(t, res.Guest.EntryType)
		assert.Equal(t, model.EntryPaid, *res.Guest.EntryType)
	})

	t.Run("ignored when unsupported", func(t *testing.T) {
		f := newFixture(t, repository.Capabilities{HasCheckoutTimestamp: true})
		_, err := f.svc.CheckInGuest(context.Background(), f.guestID, entry)
		require.NoError(t, err)
		assert.Equal(t, 0, testutil.Count(t, f.db, `SELECT COUNT(*) FROM guests WHERE entry_type IS NOT NULL`))
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		f := newFixture(t, fullCap)
		_, err := f.svc.CheckInGuest(context.Background(), f.guestID, &repository.Entry{Type: "vip"})
		assert.ErrorIs(t, err, ErrInvalidEntry)
	})
}

func TestCheckOutGuestGuards(t *testing.T) {
	for name, caps := range map[string]repository.Capabilities{
		"checkout columns": fullCap,
		"ledger only":      {},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, caps)
			ctx := context.Background()

			_, err := f.svc.CheckOutGuest(ctx, f.guestID)
			assert.ErrorIs(t, err, ErrNotYetCheckedIn)

			_, err = f.svc.CheckInGuest(ctx, f.guestID, nil)
			require.NoError(t, err)

			g, err := f.svc.CheckOutGuest(ctx, f.guestID)
			require.NoError(t, err)
			assert.True(t, g.CheckedOut)
			require.NotNil(t, g.CheckedOutAt)

			_, err = f.svc.CheckOutGuest(ctx, f.guestID)
			assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
			assert.Equal(t, "already_checked_out", Code(err))

			_, err = f.svc.CheckInGuest(ctx, f.guestID, nil)
			assert.ErrorIs(t, err, ErrAlreadyCheckedIn, "checked-out guests cannot come back")

			assert.Equal(t, 1, testutil.Count(t, f.db, `SELECT COUNT(*) FROM checkout_audit`))
		})
	}
}

func TestCheckOutGuestLedgerRecord(t *testing.T) {
	f := newFixture(t, fullCap)
	ctx := WithActor(context.Background(), Actor{UserID: 31, Role: "staff"})

	_, err := f.svc.CheckInGuest(ctx, f.guestID, nil)
	require.NoError(t, err)
	_, err = f.svc.CheckOutGuest(ctx, f.guestID)
	require.NoError(t, err)

	rows, err := f.svc.ListCheckoutHistory(ctx, model.CheckoutFilter{EventID: testutil.Ptr(uint64(99))})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rec := rows[0]
	assert.Equal(t, model.EntityGuest, rec.EntityKind)
	assert.Equal(t, f.guestID, rec.EntityID)
	assert.Equal(t, "Paulo", rec.Name)
	assert.Equal(t, model.CheckoutStatusCompleted, rec.Status)
	assert.Equal(t, testutil.Ptr(f.listID), rec.GuestListID)
	assert.Equal(t, testutil.Ptr(uint64(20)), rec.ReservationID)
	assert.Equal(t, testutil.Ptr(uint64(7)), rec.VenueID)
	assert.Equal(t, testutil.Ptr(uint64(31)), rec.ActorUserID)
	require.NotNil(t, rec.ServiceDate)
	assert.Equal(t, "2025-03-14", rec.ServiceDate.String())
	assert.True(t, fixedAt.Equal(rec.CheckedOutAt))
}

func TestOwnerTransitions(t *testing.T) {
	for name, caps := range map[string]repository.Capabilities{
		"owner checkout columns": fullCap,
		"ledger only":            {},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, caps)
			ctx := context.Background()

			_, err := f.svc.CheckOutOwner(ctx, f.listID)
			assert.ErrorIs(t, err, ErrNotYetCheckedIn)

			res, err := f.svc.CheckInOwner(ctx, f.listID)
			require.NoError(t, err)
			assert.True(t, res.GuestList.OwnerCheckedIn)
			assert.Equal(t, "Marina", res.GuestList.OwnerName)

			_, err = f.svc.CheckInOwner(ctx, f.listID)
			assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

			gl, err := f.svc.CheckOutOwner(ctx, f.listID)
			require.NoError(t, err)
			assert.True(t, gl.OwnerCheckedOut)

			_, err = f.svc.CheckOutOwner(ctx, f.listID)
			assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
			_, err = f.svc.CheckInOwner(ctx, f.listID)
			assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

			assert.Equal(t, 1, testutil.Count(t, f.db, `SELECT COUNT(*) FROM checkout_audit WHERE entity_kind = 'owner'`))
		})
	}
}

func TestReservationTransitions(t *testing.T) {
	f := newFixture(t, fullCap)
	ctx := context.Background()

	_, err := f.svc.CheckOutReservation(ctx, model.ReservationTable, 10)
	assert.ErrorIs(t, err, ErrNotYetCheckedIn)

	res, err := f.svc.CheckInReservation(ctx, model.ReservationTable, 10)
	require.NoError(t, err)
	assert.True(t, res.Reservation.CheckedIn)

	_, err = f.svc.CheckInReservation(ctx, model.ReservationTable, 10)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	out, err := f.svc.CheckOutReservation(ctx, model.ReservationTable, 10)
	require.NoError(t, err)
	require.NotNil(t, out.CheckedOutAt)

	_, err = f.svc.CheckOutReservation(ctx, model.ReservationTable, 10)
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
	_, err = f.svc.CheckInReservation(ctx, model.ReservationTable, 10)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	// same id, other table: independent state
	_, err = f.svc.CheckInReservation(ctx, model.ReservationBottle, 20)
	require.NoError(t, err)
	_, err = f.svc.CheckInReservation(ctx, model.ReservationBottle, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.svc.CheckInReservation(ctx, model.ReservationKind("boat"), 10)
	assert.ErrorIs(t, err, repository.ErrUnknownKind)

	assert.Equal(t, []uint64{10, 10, 20}, f.refresh.reservations)
}

type countingAwarder struct {
	guestLists []uint64
	promoters  []uint64
	panics     bool
}

func (a *countingAwarder) AwardForPromoter(_ context.Context, promoterID, _ uint64) (reward.Result, error) {
	a.promoters = append(a.promoters, promoterID)
	if a.panics {
		panic("rules engine exploded")
	}
	return reward.Result{Success: true, Gifts: []reward.Gift{{ID: 9, Description: "drink voucher"}}}, nil
}

func (a *countingAwarder) AwardForGuestList(_ context.Context, id uint64) (reward.Result, error) {
	a.guestLists = append(a.guestLists, id)
	if a.panics {
		panic("rules engine exploded")
	}
	return reward.Result{Success: true, Gifts: []reward.Gift{{ID: 1, Description: "free bottle"}}}, nil
}

func TestRewardOnlyForPromoterAttributedLists(t *testing.T) {
	awarder := &countingAwarder{}
	f := newFixture(t, fullCap, WithRewards(reward.NewTrigger(awarder, nil, nil)))
	ctx := context.Background()
	promotedGuest := testutil.Guest(t, f.db, f.promoted, "Lia", false)

	res, err := f.svc.CheckInGuest(ctx, f.guestID, nil)
	require.NoError(t, err)
	assert.Empty(t, res.GiftsAwarded)

	res, err = f.svc.CheckInGuest(ctx, promotedGuest, nil)
	require.NoError(t, err)
	assert.Equal(t, []reward.Gift{{ID: 1, Description: "free bottle"}}, res.GiftsAwarded)

	owner, err := f.svc.CheckInOwner(ctx, f.promoted)
	require.NoError(t, err)
	assert.Len(t, owner.GiftsAwarded, 1)

	assert.Equal(t, []uint64{f.promoted, f.promoted}, awarder.guestLists)
}

func TestRewardFailureDoesNotFailCheckIn(t *testing.T) {
	awarder := &countingAwarder{panics: true}
	f := newFixture(t, fullCap, WithRewards(reward.NewTrigger(awarder, nil, nil)))
	promotedGuest := testutil.Guest(t, f.db, f.promoted, "Lia", false)

	res, err := f.svc.CheckInGuest(context.Background(), promotedGuest, nil)
	require.NoError(t, err)
	assert.True(t, res.Guest.CheckedIn)
	assert.Equal(t, []reward.Gift{}, res.GiftsAwarded)
	assert.Equal(t, 1, testutil.Count(t, f.db, `SELECT COUNT(*) FROM guests WHERE id = ? AND checked_in = 1`, promotedGuest))
}

func TestCheckInPromoterGuest(t *testing.T) {
	awarder := &countingAwarder{}
	f := newFixture(t, fullCap, WithRewards(reward.NewTrigger(awarder, nil, nil)))
	ctx := context.Background()
	list := testutil.PromoterList(t, f.db, testutil.Ptr(uint64(5)), testutil.Ptr(uint64(99)), model.PromoterListCurated)
	pending := testutil.PromoterEntry(t, f.db, list, "Rafa", model.PromoterGuestPending)
	noShow := testutil.PromoterEntry(t, f.db, list, "Nina", model.PromoterGuestNoShow)

	res, err := f.svc.CheckInPromoterGuest(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, model.PromoterGuestCheckedIn, res.Guest.Status)
	assert.Len(t, res.GiftsAwarded, 1)

	_, err = f.svc.CheckInPromoterGuest(ctx, pending)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	_, err = f.svc.CheckInPromoterGuest(ctx, noShow)
	require.NoError(t, err)

	_, err = f.svc.CheckInPromoterGuest(ctx, 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Equal(t, []uint64{5, 5}, awarder.promoters)
	assert.Equal(t, []uint64{99, 99}, f.refresh.events)
}

func TestFailedTransitionsLeaveLedgerUntouched(t *testing.T) {
	f := newFixture(t, fullCap)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = f.svc.CheckOutGuest(ctx, f.guestID)
		_, _ = f.svc.CheckOutOwner(ctx, f.listID)
		_, _ = f.svc.CheckOutReservation(ctx, model.ReservationBottle, 20)
	}
	assert.Equal(t, 0, testutil.Count(t, f.db, `SELECT COUNT(*) FROM checkout_audit`))
}

func TestEveryCheckoutAppendsOneLedgerRow(t *testing.T) {
	for name, caps := range map[string]repository.Capabilities{
		"checkout columns": fullCap,
		"ledger only":      {},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, caps)
			ctx := context.Background()

			_, err := f.svc.CheckInGuest(ctx, f.guestID, nil)
			require.NoError(t, err)
			_, err = f.svc.CheckInOwner(ctx, f.listID)
			require.NoError(t, err)
			_, err = f.svc.CheckInReservation(ctx, model.ReservationBottle, 20)
			require.NoError(t, err)

			_, err = f.svc.CheckOutGuest(ctx, f.guestID)
			require.NoError(t, err)
			_, err = f.svc.CheckOutOwner(ctx, f.listID)
			require.NoError(t, err)
			_, err = f.svc.CheckOutReservation(ctx, model.ReservationBottle, 20)
			require.NoError(t, err)

			rows, err := f.svc.ListCheckoutHistory(ctx, model.CheckoutFilter{})
			require.NoError(t, err)
			require.Len(t, rows, 3)
			kinds := make([]model.EntityKind, 0, len(rows))
			for _, r := range rows {
				kinds = append(kinds, r.EntityKind)
			}
			assert.ElementsMatch(t, []model.EntityKind{model.EntityGuest, model.EntityOwner, model.EntityBottleReservation}, kinds)
		})
	}
}

func TestLedgerFailureKeepsEntityCheckedIn(t *testing.T) {
	f := newFixture(t, repository.Capabilities{})
	ctx := context.Background()

	_, err := f.svc.CheckInGuest(ctx, f.guestID, nil)
	require.NoError(t, err)
	_, err = f.svc.CheckInOwner(ctx, f.listID)
	require.NoError(t, err)
	_, err = f.svc.CheckInReservation(ctx, model.ReservationTable, 10)
	require.NoError(t, err)

	testutil.Exec(t, f.db, `CREATE TRIGGER fail_ledger BEFORE INSERT ON checkout_audit BEGIN SELECT RAISE(ABORT, 'ledger down'); END`)

	_, err = f.svc.CheckOutGuest(ctx, f.guestID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.CheckOutOwner(ctx, f.listID)
	require.Error(t, err)
	_, err = f.svc.CheckOutReservation(ctx, model.ReservationTable, 10)
	require.Error(t, err)

	assert.Equal(t, 1, testutil.Count(t, f.db, `SELECT COUNT(*) FROM guests WHERE id = ? AND checked_in = 1`, f.guestID))
	assert.Equal(t, 1, testutil.Count(t, f.db, `SELECT COUNT(*) FROM guest_lists WHERE id = ? AND owner_checked_in = 1`, f.listID))
	assert.Equal(t, 1, testutil.Count(t, f.db, `SELECT COUNT(*) FROM table_reservations WHERE id = 10 AND checked_in = 1`))

	// still inside, so neither a second arrival nor a phantom re-entry
	_, err = f.svc.CheckInGuest(ctx, f.guestID, nil)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	_, err = f.svc.CheckInReservation(ctx, model.ReservationTable, 10)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	testutil.Exec(t, f.db, `DROP TRIGGER fail_ledger`)
	_, err = f.svc.CheckOutGuest(ctx, f.guestID)
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.Count(t, f.db, `SELECT COUNT(*) FROM checkout_audit`))
}
