package model

import "errors"

// Domain errors. Callers match with errors.Is; the HTTP layer owns the
// status-code mapping.
var (
	// ErrSlotConflict means the slot is already held by a pending or
	// confirmed appointment (the caller lost the race).
	ErrSlotConflict = errors.New("slot already booked")

	// ErrSlotNotOffered means the slot is not in the provider's declared
	// availability for that date.
	ErrSlotNotOffered = errors.New("slot not offered")

	// ErrOutOfRange means the date is in the past or beyond the booking
	// horizon.
	ErrOutOfRange = errors.New("date outside bookable range")

	// ErrInvalidTransition means the requested action has no edge from the
	// appointment's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotQualified means the staff member cannot perform the service.
	ErrNotQualified = errors.New("staff not qualified for service")

	// ErrStaffRequired means several staff qualify and the caller must pick one.
	ErrStaffRequired = errors.New("staff selection required")

	ErrServiceInactive     = errors.New("service inactive")
	ErrBusinessNotApproved = errors.New("business not approved")

	// ErrNotAllowed means the acting party owns neither side of the
	// appointment for the requested action.
	ErrNotAllowed = errors.New("not allowed")

	ErrNotFound = errors.New("not found")
)
