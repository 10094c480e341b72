package checkin

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/reward"
)

// CheckInOwner checks in the holder of the reservation a guest list
// belongs to.
func (s *Service) CheckInOwner(ctx context.Context, guestListID uint64) (_ *OwnerResult, err error) {
	defer s.record(model.EntityOwner, "checkin", &err)
	caps, err := s.probe.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	gl, err := s.guestLists.Get(ctx, guestListID, caps)
	if err != nil {
		return nil, err
	}
	left, err := s.ownerCheckedOut(ctx, gl, caps)
	if err != nil {
		return nil, err
	}
	if gl.OwnerCheckedIn || left {
		return nil, ErrAlreadyCheckedIn
	}

	ok, err := s.guestLists.MarkOwnerCheckedIn(ctx, guestListID, s.clock(), caps)
	if err != nil {
		return nil, fmt.Errorf("check in owner of list %d: %w", guestListID, err)
	}
	if !ok {
		if _, err := s.guestLists.Get(ctx, guestListID, caps); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCheckedIn
	}
	if gl, err = s.guestLists.Get(ctx, guestListID, caps); err != nil {
		return nil, err
	}

	gifts := []reward.Gift{}
	if gl.PromoterID != nil {
		gifts = s.rewards.ForGuestList(ctx, gl.ID)
	}
	s.refresh.GuestListChanged(gl.ID)
	s.log.Info("checkin: owner checked in", "guest_list_id", guestListID)
	return &OwnerResult{GuestList: gl, GiftsAwarded: gifts}, nil
}

// CheckOutOwner checks out the holder of a guest list's reservation and
// appends a ledger record.
func (s *Service) CheckOutOwner(ctx context.Context, guestListID uint64) (_ *model.GuestList, err error) {
	defer s.record(model.EntityOwner, "checkout", &err)
	caps, err := s.probe.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	gl, err := s.guestLists.Get(ctx, guestListID, caps)
	if err != nil {
		return nil, err
	}
	left, err := s.ownerCheckedOut(ctx, gl, caps)
	if err != nil {
		return nil, err
	}
	if err := checkoutGuard(gl.OwnerCheckedIn, left); err != nil {
		return nil, err
	}

	at := s.clock()
	listID := gl.ID
	rec := &model.CheckoutAuditRecord{
		EntityKind:   model.EntityOwner,
		EntityID:     gl.ID,
		Name:         gl.OwnerName,
		CheckedInAt:  gl.OwnerCheckedInAt,
		CheckedOutAt: at,
		GuestListID:  &listID,
	}
	res, err := s.reservations.Get(ctx, gl.ReservationKind, gl.ReservationID)
	if err != nil {
		s.log.Warn("checkin: reservation lookup failed", "guest_list_id", guestListID, "error", err)
	}
	s.withReservation(rec, res)

	var ok bool
	if caps.HasOwnerCheckout {
		ok, err = s.guestLists.MarkOwnerCheckedOut(ctx, guestListID, at)
	} else {
		ok, err = s.clearWithLedger(ctx, rec, func(tx *sql.Tx) (bool, error) {
			return s.guestLists.ClearOwnerCheckedInTx(ctx, tx, guestListID)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("check out owner of list %d: %w", guestListID, err)
	}
	if !ok {
		current, err := s.guestLists.Get(ctx, guestListID, caps)
		if err != nil {
			return nil, err
		}
		left, err := s.ownerCheckedOut(ctx, current, caps)
		if err != nil {
			return nil, err
		}
		if err := checkoutGuard(current.OwnerCheckedIn, left); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCheckedOut
	}

	if caps.HasOwnerCheckout {
		s.appendLedger(ctx, rec)
	}
	s.refresh.GuestListChanged(gl.ID)

	out, err := s.guestLists.Get(ctx, guestListID, caps)
	if err != nil {
		return nil, err
	}
	if !caps.HasOwnerCheckout {
		out.OwnerCheckedOut = true
		out.OwnerCheckedOutAt = &at
	}
	s.log.Info("checkin: owner checked out", "guest_list_id", guestListID)
	return out, nil
}

func (s *Service) ownerCheckedOut(ctx context.Context, gl *model.GuestList, caps repository.Capabilities) (bool, error) {
	if caps.HasOwnerCheckout {
		return gl.OwnerCheckedOut, nil
	}
	return s.checkedOutByLedger(ctx, model.EntityOwner, gl.ID, gl.OwnerCheckedIn)
}
