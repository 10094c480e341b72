package model

// EventType distinguishes one-off events from recurring weekly ones.
type EventType string

const (
	EventOneTime EventType = "one_time"
	EventWeekly  EventType = "weekly"
)

// Event is a scheduled occurrence that check-in data consolidates against.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name.
//  VenueID   – resolved venue reference; nil until the resolver (or an
//              upstream writer) sets it.  Never cleared once set.
//  VenueName – free-text venue name as typed by whoever created the event.
//  Date      – calendar date; nil for weekly events.
//  Type      – one_time or weekly.
type Event struct {
	ID        uint64    `json:"id"`         // events.id
	Name      string    `json:"name"`       // events.name
	VenueID   *uint64   `json:"venue_id"`   // events.venue_id (nullable)
	VenueName string    `json:"venue_name"` // events.venue_name
	Date      *Date     `json:"date"`       // events.event_date (nullable)
	Type      EventType `json:"type"`       // events.event_type
}
