package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/sqlstore"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/storagetest"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(context.Background(), db.DB, sqlstore.DialectSQLite, logger.Noop()))
	return db
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, now func() time.Time) notifications.Storage {
		return sqlstore.New(openDB(t), sqlstore.WithClock(now))
	})
}

func TestMigrate(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	t.Run("is repeatable", func(t *testing.T) {
		require.NoError(t, sqlstore.Migrate(ctx, db.DB, sqlstore.DialectSQLite, logger.Noop()))
	})

	t.Run("rejects unknown dialect", func(t *testing.T) {
		err := sqlstore.Migrate(ctx, db.DB, "oracle", logger.Noop())
		assert.ErrorIs(t, err, sqlstore.ErrMigrationFailed)
	})

	t.Run("enforces the status set", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `INSERT INTO notifications (id, recipient_id, type, status, payload, created_at)
			VALUES ('x', 'alice', 't', 'deleted', '{}', CURRENT_TIMESTAMP)`)
		assert.Error(t, err)
	})
}

func TestStore_Ping(t *testing.T) {
	store := sqlstore.New(openDB(t))
	assert.NoError(t, store.Ping(context.Background()))
}

func TestStore_PayloadRoundTrip(t *testing.T) {
	store := sqlstore.New(openDB(t))
	ctx := context.Background()

	n, err := store.Create(ctx, "alice", "contact_message", []byte(`{"from":"Jane","tags":["vip"],"n":1}`))
	require.NoError(t, err)

	items, total, err := store.List(ctx, "alice", notifications.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, n.ID, items[0].ID)
	assert.JSONEq(t, `{"from":"Jane","tags":["vip"],"n":1}`, string(items[0].Payload))
	assert.Equal(t, time.UTC, items[0].CreatedAt.Location())
}
