package notifications_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

func TestEncodePayload(t *testing.T) {
	t.Parallel()

	t.Run("nil and blank become an empty object", func(t *testing.T) {
		t.Parallel()
		for _, v := range []any{nil, []byte(nil), json.RawMessage("  ")} {
			got, err := notifications.EncodePayload(v)
			require.NoError(t, err)
			assert.Equal(t, `{}`, string(got))
		}
	})

	t.Run("raw JSON is compacted", func(t *testing.T) {
		t.Parallel()
		got, err := notifications.EncodePayload(json.RawMessage("{ \"orderId\" : \"O1\" }"))
		require.NoError(t, err)
		assert.Equal(t, `{"orderId":"O1"}`, string(got))
	})

	t.Run("values are marshalled", func(t *testing.T) {
		t.Parallel()
		got, err := notifications.EncodePayload(map[string]any{"orderId": "O1", "total": 12})
		require.NoError(t, err)
		assert.JSONEq(t, `{"orderId":"O1","total":12}`, string(got))
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		_, err := notifications.EncodePayload([]byte(`{"broken"`))
		assert.ErrorIs(t, err, notifications.ErrInvalidInput)

		_, err = notifications.EncodePayload(make(chan int))
		assert.ErrorIs(t, err, notifications.ErrInvalidInput)
	})
}

func TestNewID(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	prev := ""
	for range 100 {
		id := notifications.NewID(now)
		assert.Len(t, id, 26)
		assert.Greater(t, id, prev, "ids within one millisecond stay ordered")
		prev = id
	}
}
