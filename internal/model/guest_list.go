package model

import "time"

// GuestList is a shareable, expiring collection of named attendees tied to
// one reservation.  The reservation holder ("owner") is tracked on the list
// itself rather than as a guest row.
type GuestList struct {
	ID                uint64          `json:"id"`
	ReservationID     uint64          `json:"reservation_id"`
	ReservationKind   ReservationKind `json:"reservation_kind"`
	PromoterID        *uint64         `json:"promoter_id,omitempty"`
	ShareToken        string          `json:"share_token"`
	ExpiresAt         *time.Time      `json:"expires_at"`
	OwnerName         string          `json:"owner_name"`
	OwnerCheckedIn    bool            `json:"owner_checked_in"`
	OwnerCheckedInAt  *time.Time      `json:"owner_checked_in_at"`
	OwnerCheckedOut   bool            `json:"owner_checked_out"`
	OwnerCheckedOutAt *time.Time      `json:"owner_checked_out_at"`
}
