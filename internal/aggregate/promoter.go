package aggregate

import (
	"context"

	"github.com/iliyamo/venue-checkin/internal/model"
)

type entryLister interface {
	ListEntriesForEvent(ctx context.Context, eventID uint64) ([]model.PromoterGuestEntry, error)
}

// PromoterSource reports promoter-list entries: lists linked to the event
// plus unlinked lists of promoters working it.
type PromoterSource struct {
	promoters entryLister
}

func (s *PromoterSource) Name() string { return SourcePromoter }

func (s *PromoterSource) Collect(ctx context.Context, scope model.Scope) ([]model.Attendee, error) {
	entries, err := s.promoters.ListEntriesForEvent(ctx, scope.EventID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Attendee, 0, len(entries))
	for _, e := range entries {
		checked := e.Status == model.PromoterGuestCheckedIn
		row := model.Attendee{
			ID:          e.ID,
			Kind:        model.AttendeePromoterGuest,
			Name:        e.Name,
			Contact:     e.Contact,
			CheckedIn:   checked,
			CheckedInAt: e.CheckedInAt,
			PromoterID:  e.PromoterID,
			Totals:      model.Totals{Total: 1},
		}
		if checked {
			row.Totals.CheckedIn = 1
		}
		out = append(out, row)
	}
	return out, nil
}
