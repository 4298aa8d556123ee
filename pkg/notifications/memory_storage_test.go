package notifications_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	storagetest.Run(t, func(t *testing.T, now func() time.Time) notifications.Storage {
		return notifications.NewMemoryStorage(notifications.WithMemoryClock(now))
	})
}

func TestMemoryStorage_OwnsPayload(t *testing.T) {
	t.Parallel()
	store := notifications.NewMemoryStorage()
	ctx := context.Background()

	payload := json.RawMessage(`{"order":"A-1"}`)
	n, err := store.Create(ctx, "U1", "order_status", payload)
	require.NoError(t, err)

	copy(payload, `{"order":"B-2"}`)

	got, err := store.Get(ctx, n.ID, "U1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"order":"A-1"}`, string(got.Payload))

	items, _, err := store.List(ctx, "U1", notifications.ListOptions{}.Normalize())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"order":"A-1"}`, string(items[0].Payload))
}
