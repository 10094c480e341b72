package model

import "time"

// ReservationKind identifies which reservation table a row lives in.
type ReservationKind string

const (
	// ReservationTable is a dinner table reservation.
	ReservationTable ReservationKind = "table"
	// ReservationBottle is a bottle-service party.
	ReservationBottle ReservationKind = "bottle"
)

// Valid reports whether k names a known reservation table.
func (k ReservationKind) Valid() bool {
	return k == ReservationTable || k == ReservationBottle
}

// Reservation is a table or bottle-service booking.  Both kinds share the
// same shape and live in table_reservations and bottle_reservations
// respectively.
//
// Fields:
//  ID          – primary key identifier.
//  Kind        – which table the row belongs to.
//  VenueID     – venue where the reservation happens.
//  Date        – reservation date.
//  PartySize   – declared number of people, owner included.
//  ClientName  – reservation holder.
//  ClientPhone – holder contact, if any.
//  EventID     – linked event; nil for rows that predate event linkage.
//  CheckedIn   – reservation-level arrival flag.
//  CheckedInAt – when the reservation was checked in.
type Reservation struct {
	ID          uint64          `json:"id"`
	Kind        ReservationKind `json:"kind"`
	VenueID     uint64          `json:"venue_id"`
	Date        Date            `json:"date"`
	PartySize   int             `json:"party_size"`
	ClientName  string          `json:"client_name"`
	ClientPhone *string         `json:"client_phone,omitempty"`
	EventID     *uint64         `json:"event_id"`
	CheckedIn   bool            `json:"checked_in"`
	CheckedInAt *time.Time      `json:"checked_in_at"`
}
