package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Publisher delivers freshly created notifications to live subscribers.
// It returns how many subscribers accepted the event; zero is normal.
type Publisher interface {
	Publish(ctx context.Context, recipientID string, n Notification) int
}

// Recorder receives service-level measurements.
type Recorder interface {
	NotificationCreated(typ string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, Notification) int { return 0 }

type noopRecorder struct{}

func (noopRecorder) NotificationCreated(string) {}

// Service orchestrates notification storage and live delivery.
// Reads never touch the publisher: history and counts come from storage only.
type Service struct {
	storage   Storage
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder for the Service.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a notification service. A nil publisher disables live delivery.
func NewService(storage Storage, publisher Publisher, opts ...ServiceOption) *Service {
	if publisher == nil {
		publisher = noopPublisher{}
	}

	s := &Service{
		storage:   storage,
		publisher: publisher,
		recorder:  noopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("notifications"))
	return s
}

// Create persists a notification for one recipient, then publishes it.
func (s *Service) Create(ctx context.Context, recipientID, typ string, payload any) (Notification, error) {
	raw, err := s.validateCreate(recipientID, typ, payload)
	if err != nil {
		return Notification{}, err
	}

	// Store first so the notification is durable even if nobody is listening.
	n, err := s.storage.Create(ctx, recipientID, typ, raw)
	if err != nil {
		return Notification{}, s.storageError(ctx, "create", recipientID, err)
	}
	s.recorder.NotificationCreated(n.Type)
	s.publish(context.WithoutCancel(ctx), n)
	return n, nil
}

// CreateMany creates one notification per recipient. Recipients are processed
// in order; the first storage failure stops the fan-out. The records already
// created are published and returned together with the error, so callers can
// retry the remaining recipients.
func (s *Service) CreateMany(ctx context.Context, recipientIDs []string, typ string, payload any) ([]Notification, error) {
	if len(recipientIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrInvalidInput)
	}
	raw, err := s.validateCreate(recipientIDs[0], typ, payload)
	if err != nil {
		return nil, err
	}
	for _, id := range recipientIDs[1:] {
		if err := validateRecipientID(id); err != nil {
			return nil, err
		}
	}

	created := make([]Notification, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		n, createErr := s.storage.Create(ctx, recipientID, typ, raw)
		if createErr != nil {
			err = s.storageError(ctx, "create", recipientID, createErr)
			break
		}
		s.recorder.NotificationCreated(n.Type)
		created = append(created, n)
	}

	// Whatever was stored is delivered, even when the fan-out stopped early
	// or the caller went away after the write.
	publishCtx := context.WithoutCancel(ctx)
	for _, n := range created {
		s.publish(publishCtx, n)
	}
	return created, err
}

// Get returns a single notification owned by the recipient.
func (s *Service) Get(ctx context.Context, id, recipientID string) (Notification, error) {
	n, err := s.storage.Get(ctx, id, recipientID)
	if err != nil {
		return Notification{}, s.storageError(ctx, "get", recipientID, err)
	}
	return n, nil
}

// List returns one page of the recipient's history.
func (s *Service) List(ctx context.Context, recipientID string, opts ListOptions) (Page, error) {
	opts = opts.Normalize()
	if opts.Status != "" && !opts.Status.Valid() {
		return Page{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, opts.Status)
	}

	items, total, err := s.storage.List(ctx, recipientID, opts)
	if err != nil {
		return Page{}, s.storageError(ctx, "list", recipientID, err)
	}
	if items == nil {
		items = []Notification{}
	}
	return Page{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

// Summary returns unread counts for the recipient, optionally restricted to types.
func (s *Service) Summary(ctx context.Context, recipientID string, types []string) (Summary, error) {
	summary, err := s.storage.Summary(ctx, recipientID, compactTypes(types))
	if err != nil {
		return Summary{}, s.storageError(ctx, "summary", recipientID, err)
	}
	if summary.ByType == nil {
		summary.ByType = map[string]int{}
	}
	return summary, nil
}

// MarkRead moves one of the caller's notifications from unread to read.
func (s *Service) MarkRead(ctx context.Context, id, recipientID string) (Notification, error) {
	n, err := s.storage.MarkRead(ctx, id, recipientID)
	if err != nil {
		return Notification{}, s.storageError(ctx, "mark_read", recipientID, err)
	}
	return n, nil
}

// MarkAllRead moves every unread notification of the caller to read.
func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	count, err := s.storage.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, s.storageError(ctx, "mark_all_read", recipientID, err)
	}
	return count, nil
}

// Archive moves one of the caller's notifications to archived.
func (s *Service) Archive(ctx context.Context, id, recipientID string) (Notification, error) {
	n, err := s.storage.Archive(ctx, id, recipientID)
	if err != nil {
		return Notification{}, s.storageError(ctx, "archive", recipientID, err)
	}
	return n, nil
}

// Remove hard-deletes one of the caller's notifications.
func (s *Service) Remove(ctx context.Context, id, recipientID string) error {
	if err := s.storage.Remove(ctx, id, recipientID); err != nil {
		return s.storageError(ctx, "remove", recipientID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, n Notification) {
	delivered := s.publisher.Publish(ctx, n.RecipientID, n)
	s.logger.LogAttrs(ctx, slog.LevelDebug, "notification published",
		logger.NotificationID(n.ID),
		logger.RecipientID(n.RecipientID),
		logger.EventType(n.Type),
		slog.Int("subscribers", delivered),
	)
}

func (s *Service) validateCreate(recipientID, typ string, payload any) (json.RawMessage, error) {
	if err := validateRecipientID(recipientID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(typ) == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(typ) > MaxTypeLength {
		return nil, fmt.Errorf("%w: type exceeds %d characters", ErrInvalidInput, MaxTypeLength)
	}
	return EncodePayload(payload)
}

func validateRecipientID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: recipient id is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(id) > MaxRecipientIDLength {
		return fmt.Errorf("%w: recipient id exceeds %d characters", ErrInvalidInput, MaxRecipientIDLength)
	}
	return nil
}

// storageError passes domain errors through and hides everything else behind
// ErrStorage after logging the cause.
func (s *Service) storageError(ctx context.Context, op, recipientID string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidInput):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	s.logger.LogAttrs(ctx, slog.LevelError, "notification storage failure",
		slog.String("operation", op),
		logger.RecipientID(recipientID),
		logger.Error(err),
	)
	return fmt.Errorf("%w: %s", ErrStorage, op)
}

func compactTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
