package model

// Venue is a physical location hosting events.  Its canonical name is the
// source of truth when an event only carries free text.
type Venue struct {
	ID   uint64 // venues.id
	Name string // venues.name
}
