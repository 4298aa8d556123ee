// Package sse writes Server-Sent Events frames to an http.ResponseWriter.
//
// Only the frames a one-way notification stream needs are supported:
// a reconnect hint (retry), comments used as heartbeats, and JSON data
// events. Every frame is flushed as soon as it is written.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("sse: streaming unsupported")

// Writer emits SSE frames. It is not safe for concurrent use; a stream is
// owned by the goroutine serving the request.
type Writer struct {
	w  io.Writer
	rc *http.ResponseController
}

// NewWriter prepares w for streaming: it sets the event-stream headers,
// lifts the server write deadline and sends the status line.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	// A long-lived stream must outlive http.Server.WriteTimeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return nil, fmt.Errorf("sse: clear write deadline: %w", err)
	}

	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		if errors.Is(err, http.ErrNotSupported) {
			return nil, ErrStreamingUnsupported
		}
		return nil, fmt.Errorf("sse: flush headers: %w", err)
	}
	return &Writer{w: w, rc: rc}, nil
}

// Retry tells the client how long to wait before reconnecting.
func (s *Writer) Retry(d time.Duration) error {
	return s.write(fmt.Sprintf("retry: %d\n\n", d.Milliseconds()))
}

// Comment writes a comment frame. Clients ignore it, proxies see traffic.
func (s *Writer) Comment(text string) error {
	var b strings.Builder
	for line := range strings.Lines(text) {
		b.WriteString(": ")
		b.WriteString(strings.TrimRight(line, "\r\n"))
		b.WriteByte('\n')
	}
	if text == "" {
		b.WriteString(":\n")
	}
	b.WriteByte('\n')
	return s.write(b.String())
}

// Data writes v as a JSON encoded data event.
func (s *Writer) Data(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: encode event: %w", err)
	}
	// Compact JSON never contains raw newlines, so one data line suffices.
	return s.write("data: " + string(payload) + "\n\n")
}

func (s *Writer) write(frame string) error {
	if _, err := io.WriteString(s.w, frame); err != nil {
		return fmt.Errorf("sse: write: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("sse: flush: %w", err)
	}
	return nil
}
