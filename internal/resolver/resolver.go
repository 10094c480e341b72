// Package resolver fills in the venue reference of events that only carry
// a free-text venue name.
package resolver

import (
	"context"
	"log/slog"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
)

// DefaultAliases maps informal venue names onto canonical catalog names.
// Keys are compared after Normalize.
var DefaultAliases = map[string]string{
	"rooftop":     "Rooftop Lounge",
	"the rooftop": "Rooftop Lounge",
	"main club":   "Club Central",
	"central":     "Club Central",
}

// Catalog lists the venue catalogs names are matched against.
type Catalog interface {
	ListCanonical(ctx context.Context) ([]model.Venue, error)
	ListSecondary(ctx context.Context) ([]model.Venue, error)
}

// EventWriter persists a resolved reference.  It must only write while the
// event's reference is unset.
type EventWriter interface {
	SetVenueIfUnset(ctx context.Context, eventID, venueID uint64) (bool, error)
}

// CapabilitySource reports the deployment's optional schema.
type CapabilitySource interface {
	Capabilities(ctx context.Context) (repository.Capabilities, error)
}

// Resolver matches event venue names against the catalogs.
type Resolver struct {
	catalog Catalog
	events  EventWriter
	caps    CapabilitySource
	aliases map[string]string
	log     *slog.Logger
}

// New returns a Resolver.  A nil aliases map uses DefaultAliases.
func New(catalog Catalog, events EventWriter, caps CapabilitySource, aliases map[string]string, log *slog.Logger) *Resolver {
	if aliases == nil {
		aliases = DefaultAliases
	}
	if log == nil {
		log = slog.Default()
	}
	normalized := make(map[string]string, len(aliases))
	for k, v := range aliases {
		normalized[Normalize(k)] = v
	}
	return &Resolver{catalog: catalog, events: events, caps: caps, aliases: normalized, log: log}
}

// Resolve returns the event's venue id, resolving and persisting it when
// the event has none.  It returns nil when nothing matches.  Failures are
// logged and treated as "no match".
func (r *Resolver) Resolve(ctx context.Context, ev *model.Event) *uint64 {
	if ev.VenueID != nil {
		return ev.VenueID
	}
	name := Normalize(ev.VenueName)
	if name == "" {
		return nil
	}
	id, source, ok := r.match(ctx, name)
	if !ok {
		r.log.Info("resolver: no venue matched", "event_id", ev.ID, "venue_name", ev.VenueName)
		return nil
	}
	if _, err := r.events.SetVenueIfUnset(ctx, ev.ID, id); err != nil {
		// The match is still good for this request.
		r.log.Warn("resolver: persist venue failed", "event_id", ev.ID, "venue_id", id, "error", err)
	} else {
		r.log.Info("resolver: venue resolved", "event_id", ev.ID, "venue_id", id, "source", source)
	}
	ev.VenueID = &id
	return ev.VenueID
}

func (r *Resolver) match(ctx context.Context, name string) (uint64, string, bool) {
	canonical, err := r.catalog.ListCanonical(ctx)
	if err != nil {
		r.log.Warn("resolver: list venues failed", "error", err)
	}
	if id, ok := find(canonical, name); ok {
		return id, "canonical", true
	}

	caps, err := r.caps.Capabilities(ctx)
	if err != nil {
		r.log.Warn("resolver: capability probe failed", "error", err)
	}
	if caps.HasSecondaryCatalog {
		secondary, err := r.catalog.ListSecondary(ctx)
		if err != nil {
			r.log.Warn("resolver: list secondary catalog failed", "error", err)
		}
		if id, ok := find(secondary, name); ok {
			return id, "secondary", true
		}
	}

	if target, ok := r.aliases[name]; ok {
		if id, ok := find(canonical, Normalize(target)); ok {
			return id, "alias", true
		}
	}
	return 0, "", false
}

func find(venues []model.Venue, name string) (uint64, bool) {
	for _, v := range venues {
		if Normalize(v.Name) == name {
			return v.ID, true
		}
	}
	return 0, false
}
