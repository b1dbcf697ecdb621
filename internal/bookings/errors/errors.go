package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")
)

// Rejection reasons, in the order the validator checks them.
var (
	ErrVenueRequired     = errors.New("venue must be selected")
	ErrRoomRequired      = errors.New("room must be selected")
	ErrPartySizeRequired = errors.New("party size must be selected")

	ErrOffGrid           = errors.New("time is outside the bookable slots")
	ErrEndNotAfterStart  = errors.New("end before or equal to start")
	ErrExceedsMaxLength  = errors.New("exceeds maximum booking length")
	ErrDateInPast        = errors.New("date in the past")
	ErrTimePassedToday   = errors.New("time already passed today")
	ErrOwnerConflict     = errors.New("owner already booked this slot")
	ErrRoomConflict      = errors.New("room already booked for this slot")
	ErrIncompleteRow     = errors.New("incomplete row")
	ErrOwnerDuplicated   = errors.New("owner duplicated")
	ErrInvalidIdentity   = errors.New("invalid identity")
	ErrDuplicateID       = errors.New("duplicate identifier")
	ErrParticipantsCount = errors.New("participant count mismatch")
)

// RejectedBooking is the single outcome of a failed validation. Row is the
// 1-based participant row the reason applies to, or 0.
type RejectedBooking struct {
	Reason error
	Row    int
}

func Reject(reason error) *RejectedBooking {
	return &RejectedBooking{Reason: reason}
}

func RejectRow(reason error, row int) *RejectedBooking {
	return &RejectedBooking{Reason: reason, Row: row}
}

func (r *RejectedBooking) Error() string {
	if r.Row > 0 {
		return fmt.Sprintf("%s at row #%d", r.Reason, r.Row)
	}
	return r.Reason.Error()
}

func (r *RejectedBooking) Unwrap() error {
	return r.Reason
}

func IsRejected(err error) bool {
	var rejected *RejectedBooking
	return errors.As(err, &rejected)
}
