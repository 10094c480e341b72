package realtime

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/venue-checkin/internal/metrics"
	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/queue"
	"github.com/iliyamo/venue-checkin/internal/repository"
)

// emitTimeout bounds one lookup plus emit on a dispatcher worker.
const emitTimeout = 5 * time.Second

// Submitter queues work without blocking.  *queue.Dispatcher satisfies it.
type Submitter interface {
	Submit(t queue.Task) error
}

// Refresher turns "this entity changed" into a room refresh.  Each call
// returns immediately; the room lookup and emit run on the dispatcher.
type Refresher struct {
	dispatcher   Submitter
	emitter      Emitter
	guestLists   *repository.GuestListRepo
	reservations *repository.ReservationRepo
	events       *repository.EventRepo
	metrics      *metrics.CheckinMetrics
	log          *slog.Logger
	now          func() time.Time
}

// NewRefresher returns a Refresher resolving rooms through db.  m may be
// nil.
func NewRefresher(db *sql.DB, d Submitter, e Emitter, m *metrics.CheckinMetrics, log *slog.Logger) *Refresher {
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{
		dispatcher:   d,
		emitter:      e,
		guestLists:   repository.NewGuestListRepo(db),
		reservations: repository.NewReservationRepo(db),
		events:       repository.NewEventRepo(db),
		metrics:      m,
		log:          log,
		now:          time.Now,
	}
}

// GuestListChanged refreshes the room of the reservation owning the list.
func (r *Refresher) GuestListChanged(guestListID uint64) {
	r.submit("guest_list", func(ctx context.Context) (*model.Reservation, error) {
		gl, err := r.guestLists.Get(ctx, guestListID, repository.Capabilities{})
		if err != nil {
			return nil, err
		}
		return r.reservations.Get(ctx, gl.ReservationKind, gl.ReservationID)
	})
}

// ReservationChanged refreshes the room of a reservation.
func (r *Refresher) ReservationChanged(kind model.ReservationKind, id uint64) {
	r.submit("reservation", func(ctx context.Context) (*model.Reservation, error) {
		return r.reservations.Get(ctx, kind, id)
	})
}

// EventChanged refreshes the room of an event that has a venue and date.
func (r *Refresher) EventChanged(eventID uint64) {
	r.submit("event", func(ctx context.Context) (*model.Reservation, error) {
		ev, err := r.events.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if ev.VenueID == nil || ev.Date == nil {
			return nil, repository.ErrNotFound
		}
		// only the venue and date matter for the room
		return &model.Reservation{VenueID: *ev.VenueID, Date: *ev.Date}, nil
	})
}

func (r *Refresher) submit(reason string, locate func(ctx context.Context) (*model.Reservation, error)) {
	err := r.dispatcher.Submit(func(base context.Context) {
		ctx, cancel := context.WithTimeout(base, emitTimeout)
		defer cancel()

		res, err := locate(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return // orphaned reference, nothing to refresh
		}
		if err != nil {
			r.log.Warn("realtime: room lookup failed", "reason", reason, "error", err)
			r.metrics.RecordSideEffectFailure("refresh")
			return
		}
		ev := NewRefreshEvent(res.VenueID, res.Date, reason, r.now())
		if err := r.emitter.Emit(ctx, ev); err != nil {
			r.log.Warn("realtime: emit failed", "room", ev.Room, "error", err)
			r.metrics.RecordSideEffectFailure("refresh")
		}
	})
	if err != nil {
		r.metrics.RecordSideEffectFailure("refresh")
	}
}
