// Package storagetest holds the behaviour every notifications.Storage
// implementation must share. Implementations call Run from their own tests.
package storagetest

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

// Factory returns an empty storage that reads time from now.
type Factory func(t *testing.T, now func() time.Time) notifications.Storage

// Clock is a manually advanced clock. Every call to Now moves it forward
// one second so that records get distinct, ordered creation times.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock() *Clock {
	return &Clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func payload(v string) json.RawMessage {
	return json.RawMessage(v)
}

// Run executes the shared storage suite.
func Run(t *testing.T, factory Factory) {
	t.Run("create and get", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		n, err := s.Create(ctx, "alice", "order_status", payload(`{"orderId":"o-1"}`))
		require.NoError(t, err)
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, "alice", n.RecipientID)
		assert.Equal(t, notifications.StatusUnread, n.Status)
		assert.Nil(t, n.ReadAt)
		assert.Nil(t, n.ArchivedAt)
		assert.False(t, n.CreatedAt.IsZero())

		got, err := s.Get(ctx, n.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, n.Type, got.Type)
		assert.True(t, n.CreatedAt.Equal(got.CreatedAt))
		assert.JSONEq(t, `{"orderId":"o-1"}`, string(got.Payload))

		_, err = s.Get(ctx, n.ID, "bob")
		assert.ErrorIs(t, err, notifications.ErrNotFound)
		_, err = s.Get(ctx, "missing", "alice")
		assert.ErrorIs(t, err, notifications.ErrNotFound)
	})

	t.Run("mark read", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		n, err := s.Create(ctx, "alice", "order_status", payload(`{}`))
		require.NoError(t, err)

		read, err := s.MarkRead(ctx, n.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusRead, read.Status)
		require.NotNil(t, read.ReadAt)

		again, err := s.MarkRead(ctx, n.ID, "alice")
		require.NoError(t, err, "marking a read notification is a no-op")
		assert.Equal(t, notifications.StatusRead, again.Status)
		require.NotNil(t, again.ReadAt)
		assert.True(t, read.ReadAt.Equal(*again.ReadAt))
	})

	t.Run("mark read of another recipient is not found", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		n, err := s.Create(ctx, "alice", "order_status", payload(`{}`))
		require.NoError(t, err)

		_, err = s.MarkRead(ctx, n.ID, "bob")
		assert.ErrorIs(t, err, notifications.ErrNotFound)

		got, err := s.Get(ctx, n.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusUnread, got.Status)
	})

	t.Run("archive", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		unread, err := s.Create(ctx, "alice", "order_status", payload(`{}`))
		require.NoError(t, err)
		read, err := s.Create(ctx, "alice", "order_status", payload(`{}`))
		require.NoError(t, err)
		_, err = s.MarkRead(ctx, read.ID, "alice")
		require.NoError(t, err)

		for _, id := range []string{unread.ID, read.ID} {
			archived, err := s.Archive(ctx, id, "alice")
			require.NoError(t, err)
			assert.Equal(t, notifications.StatusArchived, archived.Status)
			require.NotNil(t, archived.ArchivedAt)

			again, err := s.Archive(ctx, id, "alice")
			require.NoError(t, err, "archive is idempotent")
			require.NotNil(t, again.ArchivedAt)
			assert.True(t, archived.ArchivedAt.Equal(*again.ArchivedAt))
		}

		_, err = s.MarkRead(ctx, unread.ID, "alice")
		assert.ErrorIs(t, err, notifications.ErrInvalidTransition)

		_, err = s.Archive(ctx, unread.ID, "bob")
		assert.ErrorIs(t, err, notifications.ErrNotFound)
	})

	t.Run("mark all read", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		for range 3 {
			_, err := s.Create(ctx, "alice", "order_status", payload(`{}`))
			require.NoError(t, err)
		}
		_, err := s.Create(ctx, "bob", "order_status", payload(`{}`))
		require.NoError(t, err)
		archived, err := s.Create(ctx, "alice", "order_status", payload(`{}`))
		require.NoError(t, err)
		_, err = s.Archive(ctx, archived.ID, "alice")
		require.NoError(t, err)

		count, err := s.MarkAllRead(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		count, err = s.MarkAllRead(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		bob, err := s.Summary(ctx, "bob", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, bob.UnreadCount)

		got, err := s.Get(ctx, archived.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusArchived, got.Status)
	})

	t.Run("concurrent mark all read flips each row once", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		const total = 20
		for range total {
			_, err := s.Create(ctx, "alice", "order_status", payload(`{}`))
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		sum := 0
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := s.MarkAllRead(ctx, "alice")
				assert.NoError(t, err)
				mu.Lock()
				sum += n
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, total, sum)
	})

	t.Run("remove", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		n, err := s.Create(ctx, "alice", "order_status", payload(`{}`))
		require.NoError(t, err)

		assert.ErrorIs(t, s.Remove(ctx, n.ID, "bob"), notifications.ErrNotFound)
		require.NoError(t, s.Remove(ctx, n.ID, "alice"))
		assert.ErrorIs(t, s.Remove(ctx, n.ID, "alice"), notifications.ErrNotFound)

		_, err = s.Get(ctx, n.ID, "alice")
		assert.ErrorIs(t, err, notifications.ErrNotFound)
	})

	t.Run("summary", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		empty, err := s.Summary(ctx, "alice", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, empty.UnreadCount)

		for _, typ := range []string{"order_status", "order_status", "contact_message", "low_stock"} {
			_, err := s.Create(ctx, "alice", typ, payload(`{}`))
			require.NoError(t, err)
		}
		read, err := s.Create(ctx, "alice", "low_stock", payload(`{}`))
		require.NoError(t, err)
		_, err = s.MarkRead(ctx, read.ID, "alice")
		require.NoError(t, err)

		all, err := s.Summary(ctx, "alice", nil)
		require.NoError(t, err)
		assert.Equal(t, 4, all.UnreadCount)
		assert.Equal(t, map[string]int{"order_status": 2, "contact_message": 1, "low_stock": 1}, all.ByType)

		some, err := s.Summary(ctx, "alice", []string{"order_status", "unknown"})
		require.NoError(t, err)
		assert.Equal(t, 2, some.UnreadCount)
		assert.Equal(t, map[string]int{"order_status": 2}, some.ByType)
	})

	t.Run("list", func(t *testing.T) {
		s := factory(t, NewClock().Now)
		ctx := context.Background()

		seed := []struct {
			typ     string
			payload string
		}{
			{"order_status", `{"orderId":"A-100","status":"Shipped"}`},
			{"contact_message", `{"from":"Jane","subject":"Refund"}`},
			{"order_status", `{"orderId":"A-101","status":"Paid"}`},
			{"low_stock", `{"sku":"SKU_1","left":2}`},
			{"order_status", `{"orderId":"A-102","status":"shipped"}`},
		}
		ids := make([]string, 0, len(seed))
		for _, sd := range seed {
			n, err := s.Create(ctx, "alice", sd.typ, payload(sd.payload))
			require.NoError(t, err)
			ids = append(ids, n.ID)
		}
		_, err := s.Create(ctx, "bob", "order_status", payload(`{"orderId":"B-1"}`))
		require.NoError(t, err)
		_, err = s.MarkRead(ctx, ids[0], "alice")
		require.NoError(t, err)
		_, err = s.Archive(ctx, ids[3], "alice")
		require.NoError(t, err)

		listIDs := func(items []notifications.Notification) []string {
			out := make([]string, 0, len(items))
			for _, n := range items {
				out = append(out, n.ID)
			}
			return out
		}

		t.Run("defaults to newest first across all statuses", func(t *testing.T) {
			items, total, err := s.List(ctx, "alice", notifications.ListOptions{})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			assert.Equal(t, []string{ids[4], ids[3], ids[2], ids[1], ids[0]}, listIDs(items))
		})

		t.Run("ascending by creation", func(t *testing.T) {
			items, _, err := s.List(ctx, "alice", notifications.ListOptions{
				Sort: notifications.Sort{Field: notifications.SortByCreatedAt},
			})
			require.NoError(t, err)
			assert.Equal(t, ids, listIDs(items))
		})

		t.Run("filters by status and type", func(t *testing.T) {
			items, total, err := s.List(ctx, "alice", notifications.ListOptions{
				Status: notifications.StatusUnread,
				Type:   "order_status",
			})
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Equal(t, []string{ids[4], ids[2]}, listIDs(items))
		})

		t.Run("search is a case-insensitive payload substring", func(t *testing.T) {
			items, total, err := s.List(ctx, "alice", notifications.ListOptions{Search: "SHIPPED"})
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Equal(t, []string{ids[4], ids[0]}, listIDs(items))
		})

		t.Run("search treats wildcards literally", func(t *testing.T) {
			_, total, err := s.List(ctx, "alice", notifications.ListOptions{Search: "sku_1"})
			require.NoError(t, err)
			assert.Equal(t, 1, total)

			_, total, err = s.List(ctx, "alice", notifications.ListOptions{Search: "%"})
			require.NoError(t, err)
			assert.Equal(t, 0, total)
		})

		t.Run("sorts by type with id tie-break", func(t *testing.T) {
			items, _, err := s.List(ctx, "alice", notifications.ListOptions{
				Sort: notifications.Sort{Field: notifications.SortByType},
			})
			require.NoError(t, err)
			assert.Equal(t, []string{ids[1], ids[3], ids[0], ids[2], ids[4]}, listIDs(items))
		})

		t.Run("paginates", func(t *testing.T) {
			first, total, err := s.List(ctx, "alice", notifications.ListOptions{Page: 1, Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			assert.Equal(t, []string{ids[4], ids[3]}, listIDs(first))

			last, _, err := s.List(ctx, "alice", notifications.ListOptions{Page: 3, Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, []string{ids[0]}, listIDs(last))

			beyond, total, err := s.List(ctx, "alice", notifications.ListOptions{Page: 9, Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			assert.Empty(t, beyond)
			assert.NotNil(t, beyond)
		})

		t.Run("huge pages are out of range", func(t *testing.T) {
			for _, opts := range []notifications.ListOptions{
				{Page: 1<<60 + 1, Limit: 16},
				{Page: math.MaxInt, Limit: 10},
				{Page: math.MaxInt, Limit: notifications.MaxLimit},
			} {
				items, total, err := s.List(ctx, "alice", opts)
				require.NoError(t, err)
				assert.Equal(t, 5, total)
				assert.Empty(t, items)
			}
		})

		t.Run("unknown recipient has no history", func(t *testing.T) {
			items, total, err := s.List(ctx, "carol", notifications.ListOptions{})
			require.NoError(t, err)
			assert.Equal(t, 0, total)
			assert.Empty(t, items)
		})
	})
}
