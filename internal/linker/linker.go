// Package linker binds table and bottle-service reservations to events.
package linker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/iliyamo/venue-checkin/internal/metrics"
	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/resolver"
)

var reservationKinds = []model.ReservationKind{model.ReservationTable, model.ReservationBottle}

// Linker rewrites reservation event references.
type Linker struct {
	db           *sql.DB
	events       *repository.EventRepo
	reservations *repository.ReservationRepo
	guestLists   *repository.GuestListRepo
	guests       *repository.GuestRepo
	promoters    *repository.PromoterRepo
	probe        *repository.SchemaProbe
	metrics      *metrics.CheckinMetrics
	log          *slog.Logger
}

// New returns a Linker using db for its transactions.  m may be nil.
func New(db *sql.DB, probe *repository.SchemaProbe, m *metrics.CheckinMetrics, log *slog.Logger) *Linker {
	if log == nil {
		log = slog.Default()
	}
	return &Linker{
		db:           db,
		events:       repository.NewEventRepo(db),
		reservations: repository.NewReservationRepo(db),
		guestLists:   repository.NewGuestListRepo(db),
		guests:       repository.NewGuestRepo(db),
		promoters:    repository.NewPromoterRepo(db),
		probe:        probe,
		metrics:      m,
		log:          log,
	}
}

// Relink points every table and bottle reservation at venueID/date to
// eventID in one transaction, taking them from whatever event they were
// linked to before.  Rows already on eventID are not touched.  It returns
// the number of rows that changed.
func (l *Linker) Relink(ctx context.Context, venueID uint64, date model.Date, eventID uint64) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("linker: begin: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	var total int64
	for _, kind := range reservationKinds {
		n, err := l.reservations.RelinkByVenueDateTx(ctx, tx, kind, venueID, date, eventID)
		if err != nil {
			return 0, fmt.Errorf("linker: relink %s reservations: %w", kind, err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("linker: commit: %w", err)
	}
	if total > 0 {
		l.log.Info("linker: reservations relinked", "event_id", eventID, "venue_id", venueID, "date", date.String(), "count", total)
		l.metrics.RecordRelinked(total)
	}
	return total, nil
}

// LinkReservation links one reservation to eventID and copies its owner and
// guest-list names onto the event's reservation list.  Names already on
// that list are skipped.  It returns how many names were added.
func (l *Linker) LinkReservation(ctx context.Context, kind model.ReservationKind, reservationID, eventID uint64) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", repository.ErrUnknownKind, kind)
	}
	ok, err := l.events.Exists(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("event %d: %w", eventID, repository.ErrNotFound)
	}
	// Probe before opening the transaction; the probe uses its own connection.
	caps, err := l.probe.Capabilities(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("linker: begin: %w", err)
	}
	defer tx.Rollback()

	if err := l.reservations.SetEventTx(ctx, tx, kind, reservationID, eventID); err != nil {
		return 0, err
	}
	res, err := l.reservations.GetTx(ctx, tx, kind, reservationID)
	if err != nil {
		return 0, err
	}
	listIDs, err := l.guestLists.ListByReservationTx(ctx, tx, kind, reservationID)
	if err != nil {
		return 0, fmt.Errorf("linker: guest lists: %w", err)
	}
	guests, err := l.guests.ListByGuestListsTx(ctx, tx, listIDs, caps)
	if err != nil {
		return 0, fmt.Errorf("linker: guests: %w", err)
	}
	listID, err := l.promoters.FindOrCreateReservationListTx(ctx, tx, eventID)
	if err != nil {
		return 0, fmt.Errorf("linker: reservation list: %w", err)
	}
	names, err := l.promoters.EntryNamesTx(ctx, tx, listID)
	if err != nil {
		return 0, fmt.Errorf("linker: list entries: %w", err)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[resolver.Normalize(n)] = struct{}{}
	}

	type person struct {
		name    string
		contact *string
	}
	people := make([]person, 0, len(guests)+1)
	people = append(people, person{res.ClientName, res.ClientPhone})
	for _, g := range guests {
		people = append(people, person{g.Name, g.Contact})
	}

	added := 0
	for _, p := range people {
		key := resolver.Normalize(p.name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if err := l.promoters.InsertEntryTx(ctx, tx, listID, p.name, p.contact); err != nil {
			return 0, fmt.Errorf("linker: insert entry: %w", err)
		}
		seen[key] = struct{}{}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("linker: commit: %w", err)
	}
	l.log.Info("linker: reservation linked", "kind", kind, "reservation_id", reservationID, "event_id", eventID, "linked_guests", added)
	return added, nil
}

// BackfillResult reports what Backfill did per reservation kind.
type BackfillResult struct {
	Kind      model.ReservationKind `json:"kind"`
	Linked    int64                 `json:"linked"`
	Ambiguous int64                 `json:"ambiguous"`
}

// Backfill assigns event_id to unlinked reservations whose venue and date
// match exactly one event.  Reservations matching several events are left
// alone and counted as ambiguous.
func (l *Linker) Backfill(ctx context.Context) ([]BackfillResult, error) {
	out := make([]BackfillResult, 0, len(reservationKinds))
	for _, kind := range reservationKinds {
		linked, ambiguous, err := l.reservations.BackfillEventLinks(ctx, kind)
		if err != nil {
			return out, err
		}
		l.log.Info("linker: backfill done", "kind", kind, "linked", linked, "ambiguous", ambiguous)
		out = append(out, BackfillResult{Kind: kind, Linked: linked, Ambiguous: ambiguous})
	}
	return out, nil
}
