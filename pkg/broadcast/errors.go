package broadcast

import "errors"

var (
	// ErrBusClosed is returned when subscribing to a closed bus.
	ErrBusClosed = errors.New("broadcast: bus is closed")

	// ErrEmptyRecipient is returned when a subscription has no recipient id.
	ErrEmptyRecipient = errors.New("broadcast: recipient id is required")

	// ErrNilHandler is returned when Subscribe is called without a handler.
	ErrNilHandler = errors.New("broadcast: handler is nil")

	// ErrSlowConsumer is returned by a channel subscription that could not
	// accept a message within the slow-consumer timeout. The subscription is
	// closed right after.
	ErrSlowConsumer = errors.New("broadcast: slow consumer")

	// ErrSubscriptionClosed is returned by a channel subscription that is
	// shutting down while a message is being delivered.
	ErrSubscriptionClosed = errors.New("broadcast: subscription closed")
)

// HandlerPanicError wraps a value recovered from a panicking handler.
type HandlerPanicError struct {
	Value any
}

func (e HandlerPanicError) Error() string {
	return "broadcast: handler panicked"
}
