package model

import "time"

// PromoterGuestStatus is the lifecycle of an entry on a promoter list.
type PromoterGuestStatus string

const (
	PromoterGuestPending   PromoterGuestStatus = "pending"
	PromoterGuestCheckedIn PromoterGuestStatus = "checked_in"
	PromoterGuestNoShow    PromoterGuestStatus = "no_show"
)

// PromoterListKind separates lists curated by a promoter from the
// event-scoped lists filled when a reservation is linked to an event.
type PromoterListKind string

const (
	PromoterListCurated     PromoterListKind = "promoter"
	PromoterListReservation PromoterListKind = "reservation"
)

// PromoterGuestEntry is one name on a promoter-curated list.
type PromoterGuestEntry struct {
	ID          uint64              `json:"id"`
	ListID      uint64              `json:"list_id"`
	PromoterID  *uint64             `json:"promoter_id,omitempty"`
	EventID     *uint64             `json:"event_id,omitempty"`
	Name        string              `json:"name"`
	Contact     *string             `json:"contact,omitempty"`
	Status      PromoterGuestStatus `json:"status"`
	CheckedInAt *time.Time          `json:"checked_in_at"`
}
