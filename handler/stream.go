package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/sse"
)

// ErrStreamStarted wraps errors returned after the event stream began.
// The status line is already sent, so they cannot be rendered as JSON.
var ErrStreamStarted = errors.New("handler: stream already started")

// StreamContext is handed to a stream function once the event-stream
// headers are sent.
type StreamContext interface {
	Context() context.Context
	Retry(d time.Duration) error
	Comment(text string) error
	Data(v any) error
}

type streamContext struct {
	ctx context.Context
	*sse.Writer
}

func (s streamContext) Context() context.Context { return s.ctx }

type streamResponse struct {
	fn func(StreamContext) error
}

// Stream returns a Response that switches the connection to Server-Sent
// Events and runs fn until it returns. fn owns the connection and should
// return when its context is done.
func Stream(fn func(StreamContext) error) Response {
	return streamResponse{fn: fn}
}

func (s streamResponse) Render(w http.ResponseWriter, r *http.Request) error {
	writer, err := sse.NewWriter(w)
	if err != nil {
		return errors.Join(ErrStreamStarted, err)
	}
	if err := s.fn(streamContext{ctx: r.Context(), Writer: writer}); err != nil {
		return errors.Join(ErrStreamStarted, err)
	}
	return nil
}
