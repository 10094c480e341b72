// Package realtime signals that a venue/date room's check-in data changed
// so connected clients refetch it.  Signals are fire-and-forget.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/queue"
)

// Room returns the room key for a venue on a date.
func Room(venueID uint64, date model.Date) string {
	return fmt.Sprintf("venue:%d:%s", venueID, date.String())
}

// NewRefreshEvent builds the payload for a room refresh.
func NewRefreshEvent(venueID uint64, date model.Date, reason string, now time.Time) queue.RefreshEvent {
	return queue.RefreshEvent{
		ID:        uuid.NewString(),
		Event:     queue.RefreshEventName,
		Room:      Room(venueID, date),
		VenueID:   venueID,
		Date:      date.String(),
		Reason:    reason,
		EmittedAt: now.UTC(),
	}
}

// Emitter delivers refresh events to a transport.
type Emitter interface {
	Emit(ctx context.Context, ev queue.RefreshEvent) error
	Close() error
}

// LogEmitter writes refresh events to the log.  It is the default when no
// broker is configured.
type LogEmitter struct {
	log *slog.Logger
}

// NewLogEmitter returns a LogEmitter.
func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(_ context.Context, ev queue.RefreshEvent) error {
	e.log.Info("realtime: refresh", "event", ev.Event, "room", ev.Room, "reason", ev.Reason, "id", ev.ID)
	return nil
}

func (e *LogEmitter) Close() error { return nil }
