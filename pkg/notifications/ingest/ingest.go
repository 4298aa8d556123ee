// Package ingest turns notification requests published on a Kafka topic
// by other back-office services into stored and broadcast notifications.
//
// A message carries one request:
//
//	{"recipientIds": ["u-1", "u-2"], "type": "order_status", "payload": {"orderId": "A-1"}}
//
// Malformed messages are logged and committed so they never block the
// partition. Storage failures are retried a bounded number of times before
// the message is committed as failed.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

// Outcomes reported to the Recorder.
const (
	ResultCreated = "created"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

// Config is loaded from KAFKA_* environment variables. Ingest is disabled
// when no brokers are configured.
type Config struct {
	Brokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic         string        `env:"KAFKA_TOPIC" envDefault:"notifications.requests"`
	GroupID       string        `env:"KAFKA_GROUP_ID" envDefault:"notifyhub"`
	RetryAttempts int           `env:"KAFKA_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"KAFKA_RETRY_INTERVAL" envDefault:"1s"`
}

// Enabled reports whether a broker list is configured.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 }

// NewReader creates a consumer-group reader for cfg.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})
}

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Creator stores and publishes notifications.
type Creator interface {
	CreateMany(ctx context.Context, recipientIDs []string, typ string, payload any) ([]notifications.Notification, error)
}

// Recorder counts processed messages by outcome.
type Recorder interface {
	MessageIngested(result string)
}

type noopRecorder struct{}

func (noopRecorder) MessageIngested(string) {}

// Request is the message body.
type Request struct {
	RecipientIDs []string        `json:"recipientIds" validate:"required,min=1,dive,required,max=255"`
	Type         string          `json:"type" validate:"required,max=100"`
	Payload      json.RawMessage `json:"payload"`
}

// Consumer reads requests and creates notifications.
type Consumer struct {
	reader        Reader
	creator       Creator
	recorder      Recorder
	logger        *slog.Logger
	validate      *validator.Validate
	retryAttempts int
	retryInterval time.Duration
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithLogger sets the consumer logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Consumer) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithRetry sets how often a storage failure is retried and the delay
// between attempts.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(c *Consumer) {
		c.retryAttempts = max(attempts, 1)
		c.retryInterval = interval
	}
}

// New creates a consumer. The consumer owns reader and closes it when Run
// returns.
func New(reader Reader, creator Creator, opts ...Option) *Consumer {
	c := &Consumer{
		reader:        reader,
		creator:       creator,
		recorder:      noopRecorder{},
		logger:        slog.Default(),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		retryAttempts: 3,
		retryInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("ingest"))
	return c
}

// Run consumes until ctx is done. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("failed to close reader", logger.Error(err))
		}
	}()
	c.logger.Info("ingest consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("ingest consumer stopped")
				return nil
			}
			c.logger.LogAttrs(ctx, slog.LevelError, "kafka fetch failed", logger.Error(err))
			if !sleep(ctx, c.retryInterval) {
				return nil
			}
			continue
		}

		if !c.handle(ctx, msg) {
			// Cancelled mid-retry: leave the message uncommitted for redelivery.
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.LogAttrs(ctx, slog.LevelError, "kafka commit failed",
				logger.Topic(msg.Topic),
				slog.Int64("offset", msg.Offset),
				logger.Error(err),
			)
		}
	}
}

// handle processes one message. It returns false only when ctx ended
// before the message was settled.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	log := c.logger.With(
		logger.Topic(msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	var req Request
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "malformed notification request", logger.Error(err))
		c.recorder.MessageIngested(ResultInvalid)
		return true
	}
	if err := c.validate.Struct(req); err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "invalid notification request", logger.Error(err))
		c.recorder.MessageIngested(ResultInvalid)
		return true
	}

	remaining := req.RecipientIDs
	total := 0
	for attempt := 1; ; attempt++ {
		created, err := c.creator.CreateMany(ctx, remaining, req.Type, req.Payload)
		total += len(created)
		// Recipients that already got their notification are not retried.
		remaining = remaining[min(len(created), len(remaining)):]
		switch {
		case err == nil:
			log.LogAttrs(ctx, slog.LevelDebug, "notification request ingested",
				logger.EventType(req.Type),
				slog.Int("created", total),
			)
			c.recorder.MessageIngested(ResultCreated)
			return true
		case errors.Is(err, notifications.ErrInvalidInput):
			log.LogAttrs(ctx, slog.LevelWarn, "invalid notification request", logger.Error(err))
			c.recorder.MessageIngested(ResultInvalid)
			return true
		case ctx.Err() != nil:
			return false
		case attempt >= c.retryAttempts:
			log.LogAttrs(ctx, slog.LevelError, "notification request dropped after retries",
				slog.Int("attempts", attempt),
				slog.Int("created", total),
				slog.Int("remaining", len(remaining)),
				logger.Error(err),
			)
			c.recorder.MessageIngested(ResultFailed)
			return true
		}

		log.LogAttrs(ctx, slog.LevelWarn, "notification request failed, retrying",
			slog.Int("attempt", attempt),
			logger.Error(err),
		)
		if !sleep(ctx, c.retryInterval) {
			return false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
