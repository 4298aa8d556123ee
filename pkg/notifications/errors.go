package notifications

import "errors"

var (
	// ErrNotFound is returned when a notification does not exist or belongs to
	// another recipient. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("notification not found")

	// ErrInvalidTransition is returned when a lifecycle event is not allowed
	// from the notification's current status.
	ErrInvalidTransition = errors.New("invalid notification status transition")

	// ErrInvalidInput is returned for malformed arguments (empty recipient,
	// empty type, payload that is not valid JSON).
	ErrInvalidInput = errors.New("invalid notification input")

	// ErrStorage wraps any persistence failure surfaced by the service.
	ErrStorage = errors.New("notification storage failure")
)
