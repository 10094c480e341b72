// Package queue defines the refresh payload exchanged over the message
// broker, the in-process dispatcher that runs side effects after a
// mutation commits, and the broker consumer behind the watch command.
package queue

import "time"

// RefreshEventName is the event clients listen for to refetch a room.
const RefreshEventName = "checkins:refresh"

// RefreshEvent is published when check-in data for a venue/date room
// changed.  It carries no attendee data; subscribers refetch the
// consolidated view.
type RefreshEvent struct {
	ID        string    `json:"id"`         // message id, unique per emission
	Event     string    `json:"event"`      // always RefreshEventName
	Room      string    `json:"room"`       // venue:{venue_id}:{YYYY-MM-DD}
	VenueID   uint64    `json:"venue_id"`
	Date      string    `json:"date"`       // YYYY-MM-DD
	Reason    string    `json:"reason"`     // guest_list, reservation, event
	EmittedAt time.Time `json:"emitted_at"`
}
