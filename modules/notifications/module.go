// Package notifications mounts the notification HTTP API: history,
// summary counts, lifecycle transitions and the live event stream.
package notifications

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/pkg/broadcast"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

// Listener opens live subscriptions for a recipient.
type Listener interface {
	Listen(ctx context.Context, recipientID string) (*broadcast.Subscription[notifications.Notification], error)
}

// Config holds stream settings.
type Config struct {
	Heartbeat time.Duration `env:"STREAM_HEARTBEAT_INTERVAL" envDefault:"25s"`
	Retry     time.Duration `env:"STREAM_RETRY" envDefault:"3s"`
}

// Module serves the notification API of the authenticated caller.
type Module struct {
	svc          *notifications.Service
	bus          Listener
	logger       *slog.Logger
	heartbeat    time.Duration
	retry        time.Duration
	middlewares  []func(http.Handler) http.Handler
	streamAuth   []func(http.Handler) http.Handler
	errorHandler handler.ErrorHandler[handler.Context]
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the module logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithConfig applies stream settings. Zero values keep the defaults.
func WithConfig(cfg Config) Option {
	return func(m *Module) {
		if cfg.Heartbeat > 0 {
			m.heartbeat = cfg.Heartbeat
		}
		if cfg.Retry > 0 {
			m.retry = cfg.Retry
		}
	}
}

// WithMiddleware adds middlewares to every route, typically authentication.
// The stream uses them too unless WithStreamMiddleware is set.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(m *Module) {
		m.middlewares = append(m.middlewares, mw...)
	}
}

// WithStreamMiddleware replaces the middlewares of the stream route only,
// for example an authenticator that also reads the token from the query
// string. Query tokens stay confined to the stream.
func WithStreamMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(m *Module) {
		m.streamAuth = append(m.streamAuth, mw...)
	}
}

// WithErrorHandler overrides how request errors are rendered.
func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(m *Module) {
		if h != nil {
			m.errorHandler = h
		}
	}
}

// New creates the module.
func New(svc *notifications.Service, bus Listener, opts ...Option) *Module {
	m := &Module{
		svc:       svc,
		bus:       bus,
		logger:    slog.Default(),
		heartbeat: 25 * time.Second,
		retry:     3 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("notifications_api"))
	if m.errorHandler == nil {
		m.errorHandler = handler.NewErrorHandler(m.logger)
	}
	return m
}

// Handle returns the module router. Mount it under /api/v1/notifications.
//
//	r.Mount("/api/v1/notifications", notificationsapi.New(svc, bus,
//		notificationsapi.WithMiddleware(bearerAuth),
//		notificationsapi.WithStreamMiddleware(bearerOrQueryAuth),
//	).Handle())
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	streamMW := m.streamAuth
	if len(streamMW) == 0 {
		streamMW = m.middlewares
	}
	r.With(streamMW...).Get("/stream", wrap(m, m.stream))

	r.Group(func(r chi.Router) {
		r.Use(m.middlewares...)
		r.Get("/", wrap(m, m.list))
		r.Get("/summary", wrap(m, m.summary))
		r.Post("/read-all", wrap(m, m.markAllRead))
		r.Get("/{id}", wrap(m, m.get))
		r.Post("/{id}/read", wrap(m, m.markRead))
		r.Post("/{id}/archive", wrap(m, m.archive))
		r.Delete("/{id}", wrap(m, m.remove))
	})

	return r
}
