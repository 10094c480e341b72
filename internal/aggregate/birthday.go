package aggregate

import (
	"context"

	"github.com/iliyamo/venue-checkin/internal/model"
)

type birthdayLister interface {
	ListByVenueDate(ctx context.Context, venueID uint64, date model.Date) ([]model.BirthdayReservation, error)
}

// BirthdaySource reports birthday packages at the scope's venue and date.
type BirthdaySource struct {
	birthdays birthdayLister
}

func (s *BirthdaySource) Name() string { return SourceBirthday }

func (s *BirthdaySource) Collect(ctx context.Context, scope model.Scope) ([]model.Attendee, error) {
	if !scope.HasVenueDate() {
		return []model.Attendee{}, nil
	}
	rows, err := s.birthdays.ListByVenueDate(ctx, *scope.VenueID, *scope.Date)
	if err != nil {
		return nil, err
	}
	out := make([]model.Attendee, 0, len(rows))
	for _, b := range rows {
		total := max(1, b.GuestCount)
		checked := 0
		if b.CheckedIn {
			checked = total
		}
		out = append(out, model.Attendee{
			ID:          b.ID,
			Kind:        model.AttendeeBirthday,
			Name:        b.CelebrantName,
			Contact:     b.Contact,
			CheckedIn:   b.CheckedIn,
			CheckedInAt: b.CheckedInAt,
			Totals:      model.Totals{Total: total, CheckedIn: checked},
		})
	}
	return out, nil
}
