package model

import "time"

// AttendeeKind tags rows of the consolidated view by where they came from.
type AttendeeKind string

const (
	AttendeeTableReservation  AttendeeKind = "table_reservation"
	AttendeeBottleReservation AttendeeKind = "bottle_reservation"
	AttendeeOwner             AttendeeKind = "owner"
	AttendeeGuest             AttendeeKind = "guest"
	AttendeePromoterGuest     AttendeeKind = "promoter_guest"
	AttendeeBirthday          AttendeeKind = "birthday"
	AttendeeVIP               AttendeeKind = "vip"
	AttendeeVIPGuest          AttendeeKind = "vip_guest"
)

// Totals is the headcount represented by a row and how many of those
// people are inside.  Someone who checked in and later checked out is no
// longer inside.
type Totals struct {
	Total     int `json:"total"`
	CheckedIn int `json:"checked_in"`
}

// Attendee is the common shape every source normalizes its rows into.
// GuestListID is nil for reservations reported without a guest list.
type Attendee struct {
	ID            uint64       `json:"id"`
	Kind          AttendeeKind `json:"kind"`
	Name          string       `json:"name"`
	Contact       *string      `json:"contact,omitempty"`
	CheckedIn     bool         `json:"checked_in"`
	CheckedInAt   *time.Time   `json:"checked_in_at"`
	CheckedOut    bool         `json:"checked_out,omitempty"`
	GuestListID   *uint64      `json:"guest_list_id"`
	ReservationID *uint64      `json:"reservation_id,omitempty"`
	PromoterID    *uint64      `json:"promoter_id,omitempty"`
	Totals        Totals       `json:"totals"`
	Guests        []Attendee   `json:"guests,omitempty"`
}

// BirthdayReservation is a birthday package booked at a venue for a date.
type BirthdayReservation struct {
	ID            uint64
	VenueID       uint64
	Date          Date
	CelebrantName string
	Contact       *string
	GuestCount    int
	CheckedIn     bool
	CheckedInAt   *time.Time
}

// VIPReservation is a camarote booking with its own nested guest list.
type VIPReservation struct {
	ID          uint64
	VenueID     uint64
	Date        Date
	HolderName  string
	Contact     *string
	CheckedIn   bool
	CheckedInAt *time.Time
}

// Scope is what every attendee source filters on: the event plus the
// venue and date it was resolved to.  VenueID and Date are nil when they
// could not be resolved; venue-scoped sources then return nothing.
type Scope struct {
	EventID uint64
	VenueID *uint64
	Date    *Date
}

// HasVenueDate reports whether both VenueID and Date are known.
func (s Scope) HasVenueDate() bool { return s.VenueID != nil && s.Date != nil }
