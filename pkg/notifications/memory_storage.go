package notifications

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development, tests and single-node demos.
type MemoryStorage struct {
	notifications map[string][]Notification // recipientID -> notifications
	now           func() time.Time
	mu            sync.RWMutex
}

// MemoryStorageOption configures a MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithMemoryClock overrides the clock used for createdAt/readAt/archivedAt.
func WithMemoryClock(now func() time.Time) MemoryStorageOption {
	return func(s *MemoryStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	s := &MemoryStorage{
		notifications: make(map[string][]Notification),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStorage) Create(ctx context.Context, recipientID, typ string, payload json.RawMessage) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	n := Notification{
		ID:          NewID(now),
		RecipientID: recipientID,
		Type:        typ,
		Status:      StatusUnread,
		Payload:     bytes.Clone(payload),
		CreatedAt:   now,
	}
	s.notifications[recipientID] = append(s.notifications[recipientID], n)
	return n, nil
}

func (s *MemoryStorage) Get(ctx context.Context, id, recipientID string) (Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id, recipientID)
	if i < 0 {
		return Notification{}, ErrNotFound
	}
	return s.notifications[recipientID][i], nil
}

func (s *MemoryStorage) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, int, error) {
	opts = opts.Normalize()

	// A Caser is stateful and must not be shared between goroutines.
	fold := cases.Fold()
	search := fold.String(opts.Search)

	s.mu.RLock()
	filtered := make([]Notification, 0, len(s.notifications[recipientID]))
	for _, n := range s.notifications[recipientID] {
		if opts.Status != "" && n.Status != opts.Status {
			continue
		}
		if opts.Type != "" && n.Type != opts.Type {
			continue
		}
		if search != "" && !strings.Contains(fold.String(string(n.Payload)), search) {
			continue
		}
		filtered = append(filtered, n)
	}
	s.mu.RUnlock()

	slices.SortFunc(filtered, compareBy(opts.Sort))

	total := len(filtered)
	start := opts.Offset()
	if start >= total {
		return []Notification{}, total, nil
	}
	end := min(start+opts.Limit, total)
	return filtered[start:end], total, nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, id, recipientID string) (Notification, error) {
	return s.transition(id, recipientID, EventRead)
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	items := s.notifications[recipientID]
	count := 0
	for i := range items {
		if items[i].Status != StatusUnread {
			continue
		}
		if changed, _ := Apply(&items[i], EventRead, now); changed {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) Archive(ctx context.Context, id, recipientID string) (Notification, error) {
	return s.transition(id, recipientID, EventArchive)
}

func (s *MemoryStorage) Remove(ctx context.Context, id, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id, recipientID)
	if i < 0 {
		return ErrNotFound
	}
	s.notifications[recipientID] = slices.Delete(s.notifications[recipientID], i, i+1)
	if len(s.notifications[recipientID]) == 0 {
		delete(s.notifications, recipientID)
	}
	return nil
}

func (s *MemoryStorage) Summary(ctx context.Context, recipientID string, types []string) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{ByType: make(map[string]int)}
	for _, n := range s.notifications[recipientID] {
		if !n.IsUnread() {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, n.Type) {
			continue
		}
		summary.UnreadCount++
		summary.ByType[n.Type]++
	}
	return summary, nil
}

func (s *MemoryStorage) transition(id, recipientID string, event Event) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id, recipientID)
	if i < 0 {
		return Notification{}, ErrNotFound
	}
	n := &s.notifications[recipientID][i]
	if _, err := Apply(n, event, s.now().UTC()); err != nil {
		return Notification{}, err
	}
	return *n, nil
}

// indexOf must be called with s.mu held.
func (s *MemoryStorage) indexOf(id, recipientID string) int {
	return slices.IndexFunc(s.notifications[recipientID], func(n Notification) bool {
		return n.ID == id
	})
}

func compareBy(sort Sort) func(a, b Notification) int {
	return func(a, b Notification) int {
		var c int
		switch sort.Field {
		case SortByType:
			c = cmp.Compare(a.Type, b.Type)
		case SortByStatus:
			c = cmp.Compare(a.Status, b.Status)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if sort.Desc {
			return -c
		}
		return c
	}
}
