package checkin

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by every state-guard failure.
var ErrInvalidTransition = errors.New("invalid state transition")

var (
	ErrAlreadyCheckedIn  = fmt.Errorf("%w: already checked in", ErrInvalidTransition)
	ErrNotYetCheckedIn   = fmt.Errorf("%w: not yet checked in", ErrInvalidTransition)
	ErrAlreadyCheckedOut = fmt.Errorf("%w: already checked out", ErrInvalidTransition)
)

// ErrInvalidEntry is returned for an unknown entry classification.
var ErrInvalidEntry = errors.New("invalid entry type")

// Code returns the machine-readable code of a transition error, or "" for
// anything else.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyCheckedIn):
		return "already_checked_in"
	case errors.Is(err, ErrNotYetCheckedIn):
		return "not_yet_checked_in"
	case errors.Is(err, ErrAlreadyCheckedOut):
		return "already_checked_out"
	}
	return ""
}
