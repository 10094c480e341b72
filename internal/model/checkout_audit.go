package model

import "time"

// EntityKind names the kind of entity a check-in transition applies to.
type EntityKind string

const (
	EntityGuest             EntityKind = "guest"
	EntityOwner             EntityKind = "owner"
	EntityTableReservation  EntityKind = "table_reservation"
	EntityBottleReservation EntityKind = "bottle_reservation"
	EntityPromoterGuest     EntityKind = "promoter_guest"
)

// ReservationEntity maps a reservation kind onto its ledger entity kind.
// Table and bottle ids overlap, so the ledger keeps them apart.
func ReservationEntity(k ReservationKind) EntityKind {
	if k == ReservationBottle {
		return EntityBottleReservation
	}
	return EntityTableReservation
}

// CheckoutStatusCompleted is the only status an audit row ever carries.
const CheckoutStatusCompleted = "completed"

// CheckoutAuditRecord is one append-only ledger row written when an entity
// checks out.  Rows are never updated or deleted.
type CheckoutAuditRecord struct {
	ID            uint64     `json:"id"`
	EntityKind    EntityKind `json:"entity_kind"`
	EntityID      uint64     `json:"entity_id"`
	Name          string     `json:"name"`
	CheckedInAt   *time.Time `json:"checked_in_at"`
	CheckedOutAt  time.Time  `json:"checked_out_at"`
	EventID       *uint64    `json:"event_id,omitempty"`
	GuestListID   *uint64    `json:"guest_list_id,omitempty"`
	ReservationID *uint64    `json:"reservation_id,omitempty"`
	VenueID       *uint64    `json:"venue_id,omitempty"`
	ServiceDate   *Date      `json:"service_date,omitempty"`
	Status        string     `json:"status"`
	ActorUserID   *uint64    `json:"actor_user_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CheckoutFilter narrows ListCheckoutHistory.  Nil fields are ignored;
// a non-positive Limit means the repository default.
type CheckoutFilter struct {
	EventID     *uint64
	GuestListID *uint64
	VenueID     *uint64
	Date        *Date
	Limit       int
}
