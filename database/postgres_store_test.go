package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgresStateStore(t *testing.T) *PostgresStateStore {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping postgres store tests - TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL, DefaultDatabaseConfig())
	if err != nil {
		t.Skipf("Skipping postgres store tests - database not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db, Schema))
	_, err = db.ExecContext(ctx, `DELETE FROM ipo_notification_state WHERE company_name LIKE 'test-%'`)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.ExecContext(context.Background(), `DELETE FROM ipo_notification_state WHERE company_name LIKE 'test-%'`)
	})

	return NewPostgresStateStore(db)
}

func TestPostgresStateStoreRoundTrip(t *testing.T) {
	store := setupPostgresStateStore(t)
	ctx := context.Background()

	original := models.NewNotificationStore()
	original.GetOrCreate("test-Acme Ltd").MarkOpen()
	require.NoError(t, store.Save(ctx, original))

	loaded := store.Load(ctx)
	require.Nil(t, loaded.Err)
	state, found := loaded.Store.Lookup("test-Acme Ltd")
	require.True(t, found)
	assert.Equal(t, models.NotificationState{NotifiedOpen: true}, state)
}

func TestPostgresStateStoreNeverClearsLatches(t *testing.T) {
	store := setupPostgresStateStore(t)
	ctx := context.Background()

	latched := models.NewNotificationStore()
	entry := latched.GetOrCreate("test-Beta Corp")
	entry.MarkOpen()
	entry.MarkLastDay()
	require.NoError(t, store.Save(ctx, latched))

	stale := models.NewNotificationStore()
	stale.GetOrCreate("test-Beta Corp")
	require.NoError(t, store.Save(ctx, stale))

	state, found := store.Load(ctx).Store.Lookup("test-Beta Corp")
	require.True(t, found)
	assert.True(t, state.NotifiedOpen)
	assert.True(t, state.NotifiedLastDay)
}

func TestPostgresStateStorePing(t *testing.T) {
	store := setupPostgresStateStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
