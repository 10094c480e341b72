package checkin

import (
	"context"
	"fmt"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/reward"
)

// CheckInPromoterGuest checks in an entry of a promoter list.  Pending and
// no-show entries can check in; there is no checkout for these entries.
func (s *Service) CheckInPromoterGuest(ctx context.Context, entryID uint64) (_ *PromoterGuestResult, err error) {
	defer s.record(model.EntityPromoterGuest, "checkin", &err)
	e, err := s.promoters.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e.Status == model.PromoterGuestCheckedIn {
		return nil, ErrAlreadyCheckedIn
	}
	ok, err := s.promoters.MarkEntryCheckedIn(ctx, entryID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("check in promoter guest %d: %w", entryID, err)
	}
	if !ok {
		if _, err := s.promoters.GetEntry(ctx, entryID); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyCheckedIn
	}
	if e, err = s.promoters.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}

	gifts := []reward.Gift{}
	if e.PromoterID != nil && e.EventID != nil {
		gifts = s.rewards.ForPromoter(ctx, *e.PromoterID, *e.EventID)
	}
	if e.EventID != nil {
		s.refresh.EventChanged(*e.EventID)
	}
	s.log.Info("checkin: promoter guest checked in", "entry_id", entryID, "list_id", e.ListID)
	return &PromoterGuestResult{Guest: e, GiftsAwarded: gifts}, nil
}
