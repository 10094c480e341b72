package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/venue-checkin/internal/metrics"
	"github.com/iliyamo/venue-checkin/internal/model"
)

// SourceStats sums the totals of one source.
type SourceStats struct {
	Total     int `json:"total"`
	CheckedIn int `json:"checkedIn"`
}

// Stats is the statistics block of a consolidated view.
type Stats struct {
	TableGuests          SourceStats `json:"tableGuests"`
	RestaurantGuestLists SourceStats `json:"restaurantGuestLists"`
	PromoterGuests       SourceStats `json:"promoterGuests"`
	BirthdayGuests       SourceStats `json:"birthdayGuests"`
	VIPGuests            SourceStats `json:"vipGuests"`
	TotalGeral           int         `json:"totalGeral"`
	CheckinGeral         int         `json:"checkinGeral"`
}

// Sources holds the raw rows of each source.  Lists are never nil so they
// serialize as [].
type Sources struct {
	TableGuests          []model.Attendee `json:"tableGuests"`
	RestaurantGuestLists []model.Attendee `json:"restaurantGuestLists"`
	PromoterGuests       []model.Attendee `json:"promoterGuests"`
	BirthdayGuests       []model.Attendee `json:"birthdayGuests"`
	VIPGuests            []model.Attendee `json:"vipGuests"`
}

// View is the consolidated check-in snapshot of one event.
type View struct {
	Event   model.Event `json:"event"`
	Sources Sources     `json:"sources"`
	Stats   Stats       `json:"stats"`
}

// EventLoader loads the event being consolidated.
type EventLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// VenueResolver fills in a missing venue reference.  It never fails.
type VenueResolver interface {
	Resolve(ctx context.Context, ev *model.Event) *uint64
}

// Relinker rebinds reservations at a venue and date to an event.
type Relinker interface {
	Relink(ctx context.Context, venueID uint64, date model.Date, eventID uint64) (int64, error)
}

// Service builds consolidated views.
type Service struct {
	events   EventLoader
	resolver VenueResolver
	linker   Relinker
	sources  []Source
	metrics  *metrics.CheckinMetrics
	log      *slog.Logger
}

// NewService wires a Service.  m may be nil.
func NewService(events EventLoader, resolver VenueResolver, linker Relinker, sources []Source, m *metrics.CheckinMetrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{events: events, resolver: resolver, linker: linker, sources: sources, metrics: m, log: log}
}

// Consolidate returns the consolidated view of eventID.  date is only
// used when the event has no date of its own, as weekly events do.  The
// only error returned is a failure to load the event; every source
// degrades to an empty list on its own.
func (s *Service) Consolidate(ctx context.Context, eventID uint64, date *model.Date) (*View, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveConsolidation(time.Since(start)) }()

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	scope := model.Scope{EventID: ev.ID, VenueID: s.resolver.Resolve(ctx, ev), Date: ev.Date}
	if scope.Date == nil {
		scope.Date = date
	}

	// Relink must commit before any source reads.
	if scope.HasVenueDate() {
		if _, err := s.linker.Relink(ctx, *scope.VenueID, *scope.Date, ev.ID); err != nil {
			s.log.Error("aggregate: relink failed", "event_id", ev.ID, "error", err)
			s.metrics.RecordSideEffectFailure("relink")
		}
	}

	results := make([][]model.Attendee, len(s.sources))
	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			results[i] = s.collect(ctx, src, scope)
			return nil
		})
	}
	_ = g.Wait() // collect never returns an error

	view := &View{Event: *ev}
	byName := make(map[string][]model.Attendee, len(s.sources))
	for i, src := range s.sources {
		byName[src.Name()] = results[i]
	}
	view.Sources = Sources{
		TableGuests:          nonNil(byName[SourceTable]),
		RestaurantGuestLists: nonNil(byName[SourceRestaurant]),
		PromoterGuests:       nonNil(byName[SourcePromoter]),
		BirthdayGuests:       nonNil(byName[SourceBirthday]),
		VIPGuests:            nonNil(byName[SourceVIP]),
	}
	view.Stats = computeStats(view.Sources)
	return view, nil
}

// collect runs one source, turning errors and panics into an empty list.
func (s *Service) collect(ctx context.Context, src Source, scope model.Scope) (rows []model.Attendee) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("aggregate: source panicked", "source", src.Name(), "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			s.metrics.RecordSourceFailure(src.Name())
			rows = []model.Attendee{}
		}
	}()
	rows, err := src.Collect(ctx, scope)
	if err != nil {
		s.log.Warn("aggregate: source failed", "source", src.Name(), "event_id", scope.EventID, "error", err)
		s.metrics.RecordSourceFailure(src.Name())
		return []model.Attendee{}
	}
	return nonNil(rows)
}

func computeStats(src Sources) Stats {
	st := Stats{
		TableGuests:          sum(src.TableGuests),
		RestaurantGuestLists: sum(src.RestaurantGuestLists),
		PromoterGuests:       sum(src.PromoterGuests),
		BirthdayGuests:       sum(src.BirthdayGuests),
		VIPGuests:            sum(src.VIPGuests),
	}
	for _, s := range []SourceStats{st.TableGuests, st.RestaurantGuestLists, st.PromoterGuests, st.BirthdayGuests, st.VIPGuests} {
		st.TotalGeral += s.Total
		st.CheckinGeral += s.CheckedIn
	}
	return st
}

func sum(rows []model.Attendee) SourceStats {
	var s SourceStats
	for _, r := range rows {
		s.Total += r.Totals.Total
		s.CheckedIn += r.Totals.CheckedIn
	}
	return s
}

func nonNil(rows []model.Attendee) []model.Attendee {
	if rows == nil {
		return []model.Attendee{}
	}
	return rows
}
