package notifications_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

func TestNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    notifications.Status
		event   notifications.Event
		want    notifications.Status
		wantErr bool
	}{
		{notifications.StatusUnread, notifications.EventRead, notifications.StatusRead, false},
		{notifications.StatusUnread, notifications.EventArchive, notifications.StatusArchived, false},
		{notifications.StatusRead, notifications.EventArchive, notifications.StatusArchived, false},
		{notifications.StatusRead, notifications.EventRead, notifications.StatusRead, true},
		{notifications.StatusArchived, notifications.EventRead, notifications.StatusArchived, true},
		{notifications.StatusArchived, notifications.EventArchive, notifications.StatusArchived, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			t.Parallel()
			got, err := notifications.Next(tt.from, tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, notifications.ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSources(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []notifications.Status{notifications.StatusUnread}, notifications.Sources(notifications.EventRead))
	assert.Equal(t,
		[]notifications.Status{notifications.StatusUnread, notifications.StatusRead},
		notifications.Sources(notifications.EventArchive),
	)
	assert.Empty(t, notifications.Sources(notifications.Event("restore")))
}

func TestApply(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("read stamps readAt", func(t *testing.T) {
		t.Parallel()
		n := notifications.Notification{Status: notifications.StatusUnread}
		changed, err := notifications.Apply(&n, notifications.EventRead, at)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, notifications.StatusRead, n.Status)
		require.NotNil(t, n.ReadAt)
		assert.Equal(t, at, *n.ReadAt)
		assert.Nil(t, n.ArchivedAt)
	})

	t.Run("repeated event is a no-op", func(t *testing.T) {
		t.Parallel()
		first := at.Add(-time.Hour)
		n := notifications.Notification{Status: notifications.StatusArchived, ArchivedAt: &first}
		changed, err := notifications.Apply(&n, notifications.EventArchive, at)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, first, *n.ArchivedAt)
	})

	t.Run("archived cannot be read", func(t *testing.T) {
		t.Parallel()
		n := notifications.Notification{Status: notifications.StatusArchived}
		changed, err := notifications.Apply(&n, notifications.EventRead, at)
		assert.ErrorIs(t, err, notifications.ErrInvalidTransition)
		assert.False(t, changed)
		assert.Equal(t, notifications.StatusArchived, n.Status)
		assert.Nil(t, n.ReadAt)
	})

	t.Run("archiving a read notification keeps readAt", func(t *testing.T) {
		t.Parallel()
		readAt := at.Add(-time.Minute)
		n := notifications.Notification{Status: notifications.StatusRead, ReadAt: &readAt}
		changed, err := notifications.Apply(&n, notifications.EventArchive, at)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, readAt, *n.ReadAt)
		assert.Equal(t, at, *n.ArchivedAt)
	})
}
