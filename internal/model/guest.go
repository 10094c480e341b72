package model

import "time"

// EntryType classifies how a guest got in.
type EntryType string

const (
	EntryFree EntryType = "free"
	EntryPaid EntryType = "paid"
)

// Valid reports whether t is a known classification.
func (t EntryType) Valid() bool { return t == EntryFree || t == EntryPaid }

// Guest is one named attendee on a guest list.  Checkout and entry
// classification columns are optional in older deployments; when absent
// the corresponding fields stay zero.
type Guest struct {
	ID           uint64     `json:"id"`
	GuestListID  uint64     `json:"guest_list_id"`
	Name         string     `json:"name"`
	Contact      *string    `json:"contact,omitempty"`
	CheckedIn    bool       `json:"checked_in"`
	CheckedInAt  *time.Time `json:"checked_in_at"`
	CheckedOut   bool       `json:"checked_out"`
	CheckedOutAt *time.Time `json:"checked_out_at"`
	EntryType    *EntryType `json:"entry_type,omitempty"`
	EntryValue   *float64   `json:"entry_value,omitempty"`
}
