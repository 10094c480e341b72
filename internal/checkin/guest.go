package checkin

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/reward"
)

// CheckInGuest moves a guest from NotArrived to CheckedIn, recording the
// entry classification when the deployment stores it.  Gifts are awarded
// when the guest's list is attributed to a promoter.
func (s *Service) CheckInGuest(ctx context.Context, guestID uint64, entry *repository.Entry) (_ *GuestResult, err error) {
	defer s.record(model.EntityGuest, "checkin", &err)
	if entry != nil && !entry.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntry, entry.Type)
	}
	caps, err := s.probe.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.guests.Get(ctx, guestID, caps)
	if err != nil {
		return nil, err
	}
	if g.CheckedIn || g.CheckedOut {
		return nil, ErrAlreadyCheckedIn
	}
	if !caps.HasCheckoutTimestamp {
		left, err := s.checkedOutByLedger(ctx, model.EntityGuest, guestID, false)
		if err != nil {
			return nil, err
		}
		if left {
			return nil, ErrAlreadyCheckedIn
		}
	}

	ok, err := s.guests.MarkCheckedIn(ctx, guestID, s.clock(), entry, caps)
	if err != nil {
		return nil, fmt.Errorf("check in guest %d: %w", guestID, err)
	}
	if !ok {
		// Lost a race with another check-in, or the row vanished.
		if _, err := s.guests.Get(ctx, guestID, caps); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCheckedIn
	}
	if g, err = s.guests.Get(ctx, guestID, caps); err != nil {
		return nil, err
	}

	gifts := []reward.Gift{}
	gl, err := s.guestLists.Get(ctx, g.GuestListID, caps)
	switch {
	case err != nil:
		s.log.Warn("checkin: guest list lookup for reward failed", "guest_list_id", g.GuestListID, "error", err)
	case gl.PromoterID != nil:
		gifts = s.rewards.ForGuestList(ctx, gl.ID)
	}
	s.refresh.GuestListChanged(g.GuestListID)
	s.log.Info("checkin: guest checked in", "guest_id", guestID, "guest_list_id", g.GuestListID)
	return &GuestResult{Guest: g, GiftsAwarded: gifts}, nil
}

// CheckOutGuest moves a guest from CheckedIn to CheckedOut and appends a
// ledger record.
func (s *Service) CheckOutGuest(ctx context.Context, guestID uint64) (_ *model.Guest, err error) {
	defer s.record(model.EntityGuest, "checkout", &err)
	caps, err := s.probe.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.guests.Get(ctx, guestID, caps)
	if err != nil {
		return nil, err
	}
	if err := s.guestCheckoutGuard(ctx, g, caps); err != nil {
		return nil, err
	}

	at := s.clock()
	rec := &model.CheckoutAuditRecord{
		EntityKind:   model.EntityGuest,
		EntityID:     g.ID,
		Name:         g.Name,
		CheckedInAt:  g.CheckedInAt,
		CheckedOutAt: at,
	}
	listID := g.GuestListID
	rec.GuestListID = &listID
	_, res := s.owningReservation(ctx, g.GuestListID, caps)
	s.withReservation(rec, res)

	var ok bool
	if caps.HasCheckoutTimestamp {
		ok, err = s.guests.MarkCheckedOut(ctx, guestID, at)
	} else {
		ok, err = s.clearWithLedger(ctx, rec, func(tx *sql.Tx) (bool, error) {
			return s.guests.ClearCheckedInTx(ctx, tx, guestID)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("check out guest %d: %w", guestID, err)
	}
	if !ok {
		current, err := s.guests.Get(ctx, guestID, caps)
		if err != nil {
			return nil, err
		}
		if err := s.guestCheckoutGuard(ctx, current, caps); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCheckedOut
	}

	if caps.HasCheckoutTimestamp {
		s.appendLedger(ctx, rec)
	}
	s.refresh.GuestListChanged(g.GuestListID)

	out, err := s.guests.Get(ctx, guestID, caps)
	if err != nil {
		return nil, err
	}
	if !caps.HasCheckoutTimestamp {
		out.CheckedOut = true
		out.CheckedOutAt = &at
	}
	s.log.Info("checkin: guest checked out", "guest_id", guestID, "guest_list_id", g.GuestListID)
	return out, nil
}

func (s *Service) guestCheckoutGuard(ctx context.Context, g *model.Guest, caps repository.Capabilities) error {
	if caps.HasCheckoutTimestamp {
		return checkoutGuard(g.CheckedIn, g.CheckedOut)
	}
	left, err := s.checkedOutByLedger(ctx, model.EntityGuest, g.ID, g.CheckedIn)
	if err != nil {
		return err
	}
	return checkoutGuard(g.CheckedIn, left)
}
