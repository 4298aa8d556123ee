// Package broadcast is an in-process, recipient-keyed event bus.
//
// A Bus delivers each published message to every handler currently
// registered for the message's recipient. Delivery is fire-and-forget: there
// is no history and no replay, a recipient with no subscribers simply drops
// the message, and a failing or panicking handler never affects the others.
//
// Two ways to subscribe are offered. Subscribe registers a callback and
// returns an idempotent unsubscribe function; once it returns the callback is
// never invoked again. Listen builds a buffered channel on top of Subscribe
// for consumers that run their own select loop, such as streaming HTTP
// handlers:
//
//	bus := broadcast.New[notifications.Notification](
//	    broadcast.WithBufferSize(32),
//	    broadcast.WithSlowConsumerTimeout(time.Second),
//	)
//	defer bus.Close()
//
//	sub, err := bus.Listen(ctx, recipientID)
//	if err != nil {
//	    return err
//	}
//	defer sub.Close()
//
//	for {
//	    select {
//	    case <-ctx.Done():
//	        return nil
//	    case <-sub.Done():
//	        return nil
//	    case n := <-sub.Messages():
//	        // write n to the client
//	    }
//	}
//
// Invocations of a single subscriber are serialized, so messages from one
// publishing goroutine arrive in publish order. A handler must not call its
// own unsubscribe function synchronously: unsubscribe waits for the running
// invocation to finish.
//
// The bus is process-local. Running several replicas requires routing each
// recipient to one replica or putting a broker in front of Publish.
package broadcast
