package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/sirupsen/logrus"
)

const (
	selectNotificationStatesQuery = `SELECT company_name, notified_open, notified_last_day FROM ipo_notification_state`

	// Flags are ORed with the stored values so a concurrent or stale writer can never clear a latch
	upsertNotificationStateQuery = `
		INSERT INTO ipo_notification_state (company_name, notified_open, notified_last_day, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (company_name) DO UPDATE SET
			notified_open = ipo_notification_state.notified_open OR EXCLUDED.notified_open,
			notified_last_day = ipo_notification_state.notified_last_day OR EXCLUDED.notified_last_day,
			updated_at = NOW()`
)

// PostgresStateStore keeps the notification store in the ipo_notification_state table
type PostgresStateStore struct {
	db *sql.DB
}

// NewPostgresStateStore creates a store over an open connection pool
func NewPostgresStateStore(db *sql.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

// Name implements StateStore
func (s *PostgresStateStore) Name() string {
	return "postgres"
}

// Ping implements StateStore
func (s *PostgresStateStore) Ping(ctx context.Context) error {
	return HealthCheck(ctx, s.db)
}

// Load implements StateStore
func (s *PostgresStateStore) Load(ctx context.Context) shared.LoadResult {
	logger := logrus.WithFields(logrus.Fields{
		"component": "PostgresStateStore",
		"method":    "Load",
	})

	store, err := s.loadAll(ctx)
	if err != nil {
		serviceErr := shared.NewServiceError(shared.ErrorCategoryDatabase, shared.CodeQueryFailed,
			"failed to load notification states", "PostgresStateStore", "Load", true, err)
		logger.WithFields(serviceErr.Fields()).Warn("Notification states unreadable, starting with empty notification store")
		return shared.LoadResult{Store: models.NewNotificationStore(), Err: serviceErr}
	}

	logger.WithField("entry_count", len(store)).Debug("Loaded notification store")
	return shared.LoadResult{Store: store}
}

func (s *PostgresStateStore) loadAll(ctx context.Context) (models.NotificationStore, error) {
	rows, err := s.db.QueryContext(ctx, selectNotificationStatesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification states: %w", err)
	}
	defer rows.Close()

	store := models.NewNotificationStore()
	for rows.Next() {
		var name string
		var state models.NotificationState
		if err := rows.Scan(&name, &state.NotifiedOpen, &state.NotifiedLastDay); err != nil {
			return nil, fmt.Errorf("failed to scan notification state: %w", err)
		}
		store[name] = &state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification states: %w", err)
	}
	return store, nil
}

// Save implements StateStore. All rows are written in one transaction.
func (s *PostgresStateStore) Save(ctx context.Context, store models.NotificationStore) error {
	fail := func(message string, cause error) error {
		return shared.NewServiceError(shared.ErrorCategoryDatabase, shared.CodeRecordFailed, message, "PostgresStateStore", "Save", true, cause)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertNotificationStateQuery)
	if err != nil {
		return fail("failed to prepare upsert", err)
	}
	defer stmt.Close()

	for _, name := range store.Names() {
		state := store[name]
		if state == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, name, state.NotifiedOpen, state.NotifiedLastDay); err != nil {
			return fail(fmt.Sprintf("failed to upsert notification state for %s", name), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fail("failed to commit notification states", err)
	}

	logrus.WithFields(logrus.Fields{
		"component":   "PostgresStateStore",
		"entry_count": len(store),
	}).Debug("Saved notification store")
	return nil
}
