package notifications_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

func TestParseSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    notifications.Sort
		wantErr bool
	}{
		{"", notifications.DefaultSort, false},
		{"createdAt.desc", notifications.Sort{Field: notifications.SortByCreatedAt, Desc: true}, false},
		{"createdAt.asc", notifications.Sort{Field: notifications.SortByCreatedAt}, false},
		{"type", notifications.Sort{Field: notifications.SortByType, Desc: true}, false},
		{"status.ASC", notifications.Sort{Field: notifications.SortByStatus}, false},
		{"payload.asc", notifications.DefaultSort, true},
		{"type.sideways", notifications.DefaultSort, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := notifications.ParseSort(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, notifications.ErrInvalidInput)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSort_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "createdAt.desc", notifications.DefaultSort.String())
	assert.Equal(t, "type.asc", notifications.Sort{Field: notifications.SortByType}.String())
}

func TestListOptions_Normalize(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()
		got := notifications.ListOptions{Search: "  refund "}.Normalize()
		assert.Equal(t, 1, got.Page)
		assert.Equal(t, notifications.DefaultLimit, got.Limit)
		assert.Equal(t, notifications.DefaultSort, got.Sort)
		assert.Equal(t, "refund", got.Search)
		assert.Equal(t, 0, got.Offset())
	})

	t.Run("clamps limit", func(t *testing.T) {
		t.Parallel()
		got := notifications.ListOptions{Page: 3, Limit: 1000}.Normalize()
		assert.Equal(t, notifications.MaxLimit, got.Limit)
		assert.Equal(t, 200, got.Offset())
	})

	t.Run("negative page becomes first page", func(t *testing.T) {
		t.Parallel()
		got := notifications.ListOptions{Page: -2, Limit: 5}.Normalize()
		assert.Equal(t, 1, got.Page)
		assert.Equal(t, 5, got.Limit)
	})

	t.Run("huge page keeps the offset positive", func(t *testing.T) {
		t.Parallel()
		got := notifications.ListOptions{Page: math.MaxInt, Limit: 10}.Normalize()
		assert.Equal(t, math.MaxInt/10, got.Page)
		assert.Positive(t, got.Offset())
		assert.LessOrEqual(t, got.Offset(), math.MaxInt-got.Limit)

		got = notifications.ListOptions{Page: 1<<60 + 1, Limit: 16}.Normalize()
		assert.Positive(t, got.Offset())
	})

	t.Run("offset saturates without normalizing", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, math.MaxInt, notifications.ListOptions{Page: math.MaxInt, Limit: 10}.Offset())
		assert.Equal(t, 0, notifications.ListOptions{Page: 5}.Offset())
	})
}
