package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/fenilmodi00/ipo-alert-bot/config"
	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
)

// Schema creates the notification state table used by the postgres backend
//
//go:embed schema.sql
var Schema string

// StateStore persists the notification store between runs.
// Load never fails: an unreadable store yields an empty one with Err explaining why.
type StateStore interface {
	Name() string
	Load(ctx context.Context) shared.LoadResult
	Save(ctx context.Context, store models.NotificationStore) error
	Ping(ctx context.Context) error
}

// OpenStateStore builds the store selected by STATE_BACKEND. The returned close function
// releases any connection the store holds and is safe to call once.
func OpenStateStore(ctx context.Context, cfg *config.Config) (StateStore, func(), error) {
	switch cfg.StateBackend {
	case config.StateBackendFile, "":
		return NewFileStateStore(cfg.StatusFile), func() {}, nil
	case config.StateBackendPostgres:
		db, err := Connect(ctx, cfg.DatabaseURL, DefaultDatabaseConfig())
		if err != nil {
			return nil, nil, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeQueryFailed, "database", "OpenStateStore", true)
		}
		if err := Migrate(ctx, db, Schema); err != nil {
			db.Close()
			return nil, nil, shared.WrapError(err, shared.ErrorCategoryDatabase, shared.CodeQueryFailed, "database", "OpenStateStore", false)
		}
		return NewPostgresStateStore(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}
