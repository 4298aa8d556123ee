package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/ingest"
)

type fakeReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []int64
	closed    bool
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(values))}
	for i, v := range values {
		r.msgs <- kafka.Message{Topic: "notifications.requests", Offset: int64(i), Value: []byte(v)}
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg := <-r.msgs:
		return msg, nil
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func (r *fakeReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// fakeCreator fails for the recipients listed in failures, once per entry.
type fakeCreator struct {
	mu       sync.Mutex
	failures map[string]int
	calls    [][]string
	stored   []string
}

func (c *fakeCreator) CreateMany(_ context.Context, ids []string, typ string, _ any) ([]notifications.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]string(nil), ids...))

	var created []notifications.Notification
	for _, id := range ids {
		if c.failures[id] > 0 {
			c.failures[id]--
			return created, fmt.Errorf("%w: create", notifications.ErrStorage)
		}
		c.stored = append(c.stored, id)
		created = append(created, notifications.Notification{ID: "n-" + id, RecipientID: id, Type: typ})
	}
	return created, nil
}

func (c *fakeCreator) snapshot() (calls [][]string, stored []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.calls...), append([]string(nil), c.stored...)
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) MessageIngested(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func (r *countingRecorder) count(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[result]
}

type run struct {
	cancel context.CancelFunc
	done   chan error
}

func (r run) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func start(reader ingest.Reader, creator ingest.Creator, opts ...ingest.Option) run {
	ctx, cancel := context.WithCancel(context.Background())
	c := ingest.New(reader, creator, append([]ingest.Option{ingest.WithLogger(logger.Noop())}, opts...)...)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return run{cancel: cancel, done: done}
}

func TestConsumer_CreatesNotifications(t *testing.T) {
	t.Parallel()

	reader := newFakeReader(`{"recipientIds":["U1","U2"],"type":"order_status","payload":{"orderId":"A-1"}}`)
	creator := &fakeCreator{}
	rec := &countingRecorder{}
	r := start(reader, creator, ingest.WithRecorder(rec))

	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	r.stop(t)

	_, stored := creator.snapshot()
	assert.Equal(t, []string{"U1", "U2"}, stored)
	assert.Equal(t, 1, rec.count(ingest.ResultCreated))
	assert.True(t, reader.isClosed(), "reader is closed when Run returns")
}

func TestConsumer_InvalidMessagesAreCommitted(t *testing.T) {
	t.Parallel()

	reader := newFakeReader(
		`not json`,
		`{"recipientIds":[],"type":"order_status"}`,
		`{"recipientIds":["U1",""],"type":"order_status"}`,
		`{"recipientIds":["U1"]}`,
		fmt.Sprintf(`{"recipientIds":["%s"],"type":"order_status"}`, strings.Repeat("u", notifications.MaxRecipientIDLength+1)),
		fmt.Sprintf(`{"recipientIds":["U1"],"type":"%s"}`, strings.Repeat("t", notifications.MaxTypeLength+1)),
	)
	creator := &fakeCreator{}
	rec := &countingRecorder{}
	r := start(reader, creator, ingest.WithRecorder(rec))

	require.Eventually(t, func() bool { return len(reader.commits()) == 6 }, time.Second, 5*time.Millisecond)
	r.stop(t)

	calls, _ := creator.snapshot()
	assert.Empty(t, calls, "invalid requests never reach storage")
	assert.Equal(t, 6, rec.count(ingest.ResultInvalid))
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, reader.commits())
}

func TestConsumer_RetriesRemainingRecipients(t *testing.T) {
	t.Parallel()

	reader := newFakeReader(`{"recipientIds":["U1","U2","U3"],"type":"order_status"}`)
	creator := &fakeCreator{failures: map[string]int{"U2": 1}}
	rec := &countingRecorder{}
	r := start(reader, creator, ingest.WithRecorder(rec), ingest.WithRetry(3, time.Millisecond))

	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	r.stop(t)

	calls, stored := creator.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"U1", "U2", "U3"}, calls[0])
	assert.Equal(t, []string{"U2", "U3"}, calls[1], "U1 is not created twice")
	assert.Equal(t, []string{"U1", "U2", "U3"}, stored)
	assert.Equal(t, 1, rec.count(ingest.ResultCreated))
}

func TestConsumer_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	reader := newFakeReader(
		`{"recipientIds":["U1"],"type":"order_status"}`,
		`{"recipientIds":["U2"],"type":"order_status"}`,
	)
	creator := &fakeCreator{failures: map[string]int{"U1": 10}}
	rec := &countingRecorder{}
	r := start(reader, creator, ingest.WithRecorder(rec), ingest.WithRetry(2, time.Millisecond))

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	r.stop(t)

	calls, stored := creator.snapshot()
	assert.Len(t, calls, 3, "two attempts for the failing message, one for the next")
	assert.Equal(t, []string{"U2"}, stored)
	assert.Equal(t, 1, rec.count(ingest.ResultFailed))
	assert.Equal(t, 1, rec.count(ingest.ResultCreated))
}

type invalidCreator struct{}

func (invalidCreator) CreateMany(context.Context, []string, string, any) ([]notifications.Notification, error) {
	return nil, fmt.Errorf("%w: payload is not valid JSON", notifications.ErrInvalidInput)
}

func TestConsumer_InvalidInputIsNotRetried(t *testing.T) {
	t.Parallel()

	reader := newFakeReader(`{"recipientIds":["U1"],"type":"order_status"}`)
	rec := &countingRecorder{}
	r := start(reader, invalidCreator{}, ingest.WithRecorder(rec), ingest.WithRetry(5, time.Hour))

	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	r.stop(t)

	assert.Equal(t, 1, rec.count(ingest.ResultInvalid))
}

func TestConsumer_CancelDuringRetryLeavesMessageUncommitted(t *testing.T) {
	t.Parallel()

	reader := newFakeReader(`{"recipientIds":["U1"],"type":"order_status"}`)
	creator := &fakeCreator{failures: map[string]int{"U1": 10}}
	r := start(reader, creator, ingest.WithRetry(5, time.Hour))

	require.Eventually(t, func() bool {
		calls, _ := creator.snapshot()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond)
	r.stop(t)

	assert.Empty(t, reader.commits())
	assert.True(t, reader.isClosed())
}

type brokenReader struct {
	*fakeReader

	failMu sync.Mutex
	fails  int
}

func (r *brokenReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.failMu.Lock()
	if r.fails > 0 {
		r.fails--
		r.failMu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	r.failMu.Unlock()
	return r.fakeReader.FetchMessage(ctx)
}

func TestConsumer_FetchErrorsAreRetried(t *testing.T) {
	t.Parallel()

	reader := &brokenReader{fakeReader: newFakeReader(`{"recipientIds":["U1"],"type":"order_status"}`), fails: 2}
	creator := &fakeCreator{}
	r := start(reader, creator, ingest.WithRetry(1, time.Millisecond))

	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	r.stop(t)

	_, stored := creator.snapshot()
	assert.Equal(t, []string{"U1"}, stored)
}
