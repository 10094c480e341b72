package checkin

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
)

// CheckInReservation checks in a table or bottle reservation as a whole.
func (s *Service) CheckInReservation(ctx context.Context, kind model.ReservationKind, id uint64) (_ *ReservationResult, err error) {
	entity := model.ReservationEntity(kind)
	defer s.record(entity, "checkin", &err)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", repository.ErrUnknownKind, kind)
	}
	res, err := s.reservations.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	left, err := s.checkedOutByLedger(ctx, entity, id, res.CheckedIn)
	if err != nil {
		return nil, err
	}
	if res.CheckedIn || left {
		return nil, ErrAlreadyCheckedIn
	}

	ok, err := s.reservations.MarkCheckedIn(ctx, kind, id, s.clock())
	if err != nil {
		return nil, fmt.Errorf("check in %s reservation %d: %w", kind, id, err)
	}
	if !ok {
		if _, err := s.reservations.Get(ctx, kind, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCheckedIn
	}
	if res, err = s.reservations.Get(ctx, kind, id); err != nil {
		return nil, err
	}
	s.refresh.ReservationChanged(kind, id)
	s.log.Info("checkin: reservation checked in", "kind", kind, "reservation_id", id)
	return &ReservationResult{Reservation: res}, nil
}

// CheckOutReservation checks out a reservation.  Reservations carry no
// checkout columns, so the checked_in flag is cleared and the ledger
// records the departure in the same transaction.
func (s *Service) CheckOutReservation(ctx context.Context, kind model.ReservationKind, id uint64) (_ *ReservationResult, err error) {
	entity := model.ReservationEntity(kind)
	defer s.record(entity, "checkout", &err)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", repository.ErrUnknownKind, kind)
	}
	res, err := s.reservations.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	left, err := s.checkedOutByLedger(ctx, entity, id, res.CheckedIn)
	if err != nil {
		return nil, err
	}
	if err := checkoutGuard(res.CheckedIn, left); err != nil {
		return nil, err
	}

	at := s.clock()
	rec := &model.CheckoutAuditRecord{
		EntityKind:   entity,
		EntityID:     id,
		Name:         res.ClientName,
		CheckedInAt:  res.CheckedInAt,
		CheckedOutAt: at,
	}
	s.withReservation(rec, res)
	ok, err := s.clearWithLedger(ctx, rec, func(tx *sql.Tx) (bool, error) {
		return s.reservations.ClearCheckedInTx(ctx, tx, kind, id)
	})
	if err != nil {
		return nil, fmt.Errorf("check out %s reservation %d: %w", kind, id, err)
	}
	if !ok {
		// Another request checked it out between the read and the write.
		return nil, ErrAlreadyCheckedOut
	}

	s.refresh.ReservationChanged(kind, id)

	out, err := s.reservations.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("checkin: reservation checked out", "kind", kind, "reservation_id", id)
	return &ReservationResult{Reservation: out, CheckedOutAt: &at}, nil
}
