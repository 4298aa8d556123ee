package notifications

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/pkg/broadcast"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

type subscription = broadcast.Subscription[notifications.Notification]

// stream subscribes the caller before any byte is written, so an
// unauthenticated or rejected request never holds a subscription.
func (m *Module) stream(ctx handler.Context, _ struct{}) handler.Response {
	recipientID, err := caller(ctx)
	if err != nil {
		return handler.JSONError(err)
	}

	sub, err := m.bus.Listen(ctx, recipientID)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "stream rejected",
			logger.RecipientID(recipientID),
			logger.Error(err),
		)
		return handler.JSONError(handler.NewHTTPError(http.StatusServiceUnavailable, "stream unavailable"))
	}

	return closing{
		Response: handler.Stream(func(s handler.StreamContext) error {
			m.serve(s, sub)
			return nil
		}),
		close: sub.Close,
	}
}

// closing releases the subscription on every exit path of Render,
// including a failure to start the stream.
type closing struct {
	handler.Response
	close func()
}

func (c closing) Render(w http.ResponseWriter, r *http.Request) error {
	defer c.close()
	return c.Response.Render(w, r)
}

// serve pumps events and heartbeats until the client leaves, the server
// shuts down or the bus drops the subscription. A failed write means the
// client is gone.
func (m *Module) serve(s handler.StreamContext, sub *subscription) {
	ctx := s.Context()
	log := m.logger.With(logger.RecipientID(sub.Recipient()), logger.SubscriptionID(sub.ID()))
	started := time.Now()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	reason := "client disconnected"
	defer func() {
		log.LogAttrs(ctx, slog.LevelDebug, "stream closed",
			slog.String("reason", reason),
			logger.Duration(time.Since(started)),
		)
	}()

	if err := s.Retry(m.retry); err != nil {
		reason = "write failed"
		return
	}
	if err := s.Comment("connected"); err != nil {
		reason = "write failed"
		return
	}
	log.LogAttrs(ctx, slog.LevelDebug, "stream opened")

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			reason = "subscription closed"
			return
		case n, ok := <-sub.Messages():
			if !ok {
				reason = "subscription closed"
				return
			}
			if err := s.Data(n); err != nil {
				reason = "write failed"
				return
			}
		case t := <-ticker.C:
			if err := s.Comment("ping " + t.UTC().Format(time.RFC3339)); err != nil {
				reason = "write failed"
				return
			}
		}
	}
}
