package notifications

import (
	"fmt"
	"time"
)

// Event triggers a lifecycle transition.
type Event string

const (
	EventRead    Event = "read"
	EventArchive Event = "archive"
)

// transitions is keyed by [from][event]. Archived has no outgoing edges.
var transitions = map[Status]map[Event]Status{
	StatusUnread: {
		EventRead:    StatusRead,
		EventArchive: StatusArchived,
	},
	StatusRead: {
		EventArchive: StatusArchived,
	},
}

// Next returns the status reached by firing event from the given status.
func Next(from Status, event Event) (Status, error) {
	to, ok := transitions[from][event]
	if !ok {
		return from, fmt.Errorf("%w: no transition from %q on %q", ErrInvalidTransition, from, event)
	}
	return to, nil
}

// Sources returns every status the event may leave, in a stable order.
// SQL storage uses it to guard UPDATE statements.
func Sources(event Event) []Status {
	var out []Status
	for _, s := range []Status{StatusUnread, StatusRead, StatusArchived} {
		if _, ok := transitions[s][event]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Target returns the status an event leads to, regardless of the source.
func Target(event Event) Status {
	switch event {
	case EventRead:
		return StatusRead
	case EventArchive:
		return StatusArchived
	}
	return ""
}

// Apply moves n through event, stamping the transition time t.
// It reports false, with n untouched, when n already sits in the event's
// target status, so repeated read/archive requests are idempotent.
func Apply(n *Notification, event Event, t time.Time) (bool, error) {
	if n.Status == Target(event) {
		return false, nil
	}
	to, err := Next(n.Status, event)
	if err != nil {
		return false, err
	}
	n.Status = to
	switch to {
	case StatusRead:
		n.ReadAt = &t
	case StatusArchived:
		n.ArchivedAt = &t
	}
	return true, nil
}
