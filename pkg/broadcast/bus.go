package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

const (
	DefaultBufferSize          = 32
	DefaultSlowConsumerTimeout = time.Second
)

// Handler receives one published message. A non-nil error marks the
// delivery as failed; it is logged and never propagated to the publisher.
type Handler[T any] func(ctx context.Context, msg T) error

// Observer receives bus measurements. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Subscribed()
	Unsubscribed()
	Published(delivered, failed int)
	Dropped()
}

type noopObserver struct{}

func (noopObserver) Subscribed()        {}
func (noopObserver) Unsubscribed()      {}
func (noopObserver) Published(int, int) {}
func (noopObserver) Dropped()           {}

type options struct {
	bufferSize  int
	slowTimeout time.Duration
	logger      *slog.Logger
	observer    Observer
}

// Option configures a Bus.
type Option func(*options)

// WithBufferSize sets the channel buffer of subscriptions created by Listen.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithSlowConsumerTimeout sets how long Listen subscriptions may block a
// publisher before they are dropped.
func WithSlowConsumerTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.slowTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// Bus fans messages out to the subscribers of one recipient.
// The zero value is not usable; create instances with New.
type Bus[T any] struct {
	opts options

	mu     sync.RWMutex
	subs   map[string]map[string]*registration[T] // recipientID -> subscriptionID -> registration
	closed bool
}

// New creates an empty bus.
func New[T any](opts ...Option) *Bus[T] {
	o := options{
		bufferSize:  DefaultBufferSize,
		slowTimeout: DefaultSlowConsumerTimeout,
		logger:      slog.Default(),
		observer:    noopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(logger.Component("broadcast"))

	return &Bus[T]{
		opts: o,
		subs: make(map[string]map[string]*registration[T]),
	}
}

// registration is one subscriber. Its mutex serializes invocations with
// each other and with unsubscribe.
type registration[T any] struct {
	id        string
	recipient string
	handler   Handler[T]
	onClose   func()

	mu     sync.Mutex
	closed bool
}

func (r *registration[T]) invoke(ctx context.Context, msg T) (invoked bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, nil
	}

	invoked = true
	defer func() {
		if v := recover(); v != nil {
			err = HandlerPanicError{Value: v}
		}
	}()
	return invoked, r.handler(ctx, msg)
}

// shutdown waits for a running invocation and blocks all later ones.
func (r *registration[T]) shutdown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Subscribe registers handler for messages published to recipientID.
// The returned function removes the registration; it is idempotent and safe
// to call concurrently with Publish. Once it returns, handler is never
// invoked again. Calling it from inside handler deadlocks.
func (b *Bus[T]) Subscribe(recipientID string, handler Handler[T]) (func(), error) {
	reg, err := newRegistration(recipientID, handler, nil)
	if err != nil {
		return nil, err
	}
	if err := b.add(reg); err != nil {
		return nil, err
	}
	return func() { b.unregister(reg) }, nil
}

func newRegistration[T any](recipientID string, handler Handler[T], onClose func()) (*registration[T], error) {
	if recipientID == "" {
		return nil, ErrEmptyRecipient
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	return &registration[T]{
		id:        uuid.NewString(),
		recipient: recipientID,
		handler:   handler,
		onClose:   onClose,
	}, nil
}

func (b *Bus[T]) add(reg *registration[T]) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	set, ok := b.subs[reg.recipient]
	if !ok {
		set = make(map[string]*registration[T])
		b.subs[reg.recipient] = set
	}
	set[reg.id] = reg
	b.mu.Unlock()

	b.opts.observer.Subscribed()
	b.opts.logger.Debug("subscriber registered",
		logger.RecipientID(reg.recipient),
		logger.SubscriptionID(reg.id),
	)
	return nil
}

func (b *Bus[T]) unregister(reg *registration[T]) {
	b.mu.Lock()
	set := b.subs[reg.recipient]
	_, found := set[reg.id]
	if found {
		delete(set, reg.id)
		if len(set) == 0 {
			delete(b.subs, reg.recipient)
		}
	}
	b.mu.Unlock()

	reg.shutdown()

	if found {
		b.opts.observer.Unsubscribed()
		b.opts.logger.Debug("subscriber removed",
			logger.RecipientID(reg.recipient),
			logger.SubscriptionID(reg.id),
		)
	}
}

// Publish delivers msg to every current subscriber of recipientID and
// returns how many of them accepted it. Zero subscribers is not an error.
// Subscribers are invoked one after another on the calling goroutine;
// delivery stops early when ctx is done.
func (b *Bus[T]) Publish(ctx context.Context, recipientID string, msg T) int {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0
	}
	set := b.subs[recipientID]
	targets := make([]*registration[T], 0, len(set))
	for _, reg := range set {
		targets = append(targets, reg)
	}
	b.mu.RUnlock()

	delivered, failed := 0, 0
	for _, reg := range targets {
		if ctx.Err() != nil {
			break
		}
		invoked, err := reg.invoke(ctx, msg)
		switch {
		case !invoked:
		case err != nil:
			failed++
			b.opts.logger.LogAttrs(ctx, slog.LevelWarn, "subscriber delivery failed",
				logger.RecipientID(recipientID),
				logger.SubscriptionID(reg.id),
				logger.Error(err),
			)
		default:
			delivered++
		}
	}

	b.opts.observer.Published(delivered, failed)
	return delivered
}

// SubscriberCount returns the number of live subscribers of recipientID.
func (b *Bus[T]) SubscriberCount(recipientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[recipientID])
}

// Recipients returns the number of recipients with at least one subscriber.
func (b *Bus[T]) Recipients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close removes every subscriber and rejects new ones. Channel subscriptions
// are closed so that their consumers observe Done. Close is idempotent.
func (b *Bus[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	regs := make([]*registration[T], 0, len(b.subs))
	for _, set := range b.subs {
		for _, reg := range set {
			regs = append(regs, reg)
		}
	}
	clear(b.subs)
	b.mu.Unlock()

	for _, reg := range regs {
		// onClose unblocks a handler waiting on a full channel before we
		// wait for it in shutdown.
		if reg.onClose != nil {
			reg.onClose()
		}
		reg.shutdown()
		b.opts.observer.Unsubscribed()
	}

	b.opts.logger.Info("bus closed", slog.Int("subscribers", len(regs)))
	return nil
}
