package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Subscription is a channel-backed subscriber created by Listen.
// It closes itself when its context ends, when the bus closes, or when it
// falls behind by more than the slow-consumer timeout.
type Subscription[T any] struct {
	id        string
	recipient string
	messages  chan T
	done      chan struct{}

	closeOnce   sync.Once
	unsubscribe func()
}

// Listen subscribes a buffered channel to recipientID. The caller must read
// Messages until Done is closed, and should call Close when finished.
func (b *Bus[T]) Listen(ctx context.Context, recipientID string) (*Subscription[T], error) {
	sub := &Subscription[T]{
		recipient: recipientID,
		messages:  make(chan T, b.opts.bufferSize),
		done:      make(chan struct{}),
	}

	reg, err := newRegistration(recipientID, sub.handler(b), sub.Close)
	if err != nil {
		return nil, err
	}
	sub.id = reg.id
	sub.unsubscribe = func() { b.unregister(reg) }
	if err := b.add(reg); err != nil {
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

func (s *Subscription[T]) handler(b *Bus[T]) Handler[T] {
	return func(ctx context.Context, msg T) error {
		select {
		case s.messages <- msg:
			return nil
		default:
		}

		timer := time.NewTimer(b.opts.slowTimeout)
		defer timer.Stop()

		select {
		case s.messages <- msg:
			return nil
		case <-s.done:
			return ErrSubscriptionClosed
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			b.opts.observer.Dropped()
			b.opts.logger.WarnContext(ctx, "dropping slow subscriber",
				logger.RecipientID(s.recipient),
				logger.SubscriptionID(s.id),
			)
			// Close waits for this invocation to return.
			go s.Close()
			return ErrSlowConsumer
		}
	}
}

// ID returns the subscription identifier.
func (s *Subscription[T]) ID() string { return s.id }

// Recipient returns the recipient the subscription listens to.
func (s *Subscription[T]) Recipient() string { return s.recipient }

// Messages returns the delivery channel. It is closed after Done, once no
// more sends can happen; buffered messages are still readable.
func (s *Subscription[T]) Messages() <-chan T { return s.messages }

// Done is closed when the subscription stops receiving messages.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Close unregisters the subscription from the bus. It is idempotent and
// safe to call from any goroutine except a Handler of the same subscription.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.unsubscribe()
		close(s.messages)
	})
}
