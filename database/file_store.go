package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/sirupsen/logrus"
)

// FileStateStore keeps the notification store in a JSON file keyed by company name
type FileStateStore struct {
	path string
}

// NewFileStateStore creates a file-backed store at path
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Name implements StateStore
func (s *FileStateStore) Name() string {
	return "file"
}

// Ping implements StateStore. A missing status file is healthy; the first Save creates it.
func (s *FileStateStore) Ping(ctx context.Context) error {
	file, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return shared.NewServiceError(shared.ErrorCategoryResource, shared.CodeReadFailed,
			"status file is not readable", "FileStateStore", "Ping", false, err)
	}
	return file.Close()
}

// Load implements StateStore
func (s *FileStateStore) Load(ctx context.Context) shared.LoadResult {
	logger := logrus.WithFields(logrus.Fields{
		"component": "FileStateStore",
		"method":    "Load",
		"path":      s.path,
	})

	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("Status file not found, starting with empty notification store")
			return s.empty(shared.ErrorCategoryResource, shared.CodeNotFound, "status file does not exist", err)
		}
		logger.WithError(err).Warn("Status file unreadable, starting with empty notification store")
		return s.empty(shared.ErrorCategoryResource, shared.CodeReadFailed, "status file could not be read", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(content, &entries); err != nil {
		logger.WithError(err).Warn("Status file is not a valid notification store, starting with empty notification store")
		return s.empty(shared.ErrorCategoryValidation, shared.CodeCorrupt, "status file is not a JSON object of notification states", err)
	}

	store := models.NewNotificationStore()
	for name, raw := range entries {
		var state *models.NotificationState
		if err := json.Unmarshal(raw, &state); err != nil {
			logger.WithField("company_name", name).WithError(err).Warn("Skipping malformed status entry")
			continue
		}
		if state == nil {
			continue
		}
		store[name] = state
	}

	logger.WithField("entry_count", len(store)).Debug("Loaded notification store")
	return shared.LoadResult{Store: store}
}

// Save implements StateStore. The file is written to a temporary sibling and renamed into place
// so a crash mid-write never leaves a truncated store behind.
func (s *FileStateStore) Save(ctx context.Context, store models.NotificationStore) error {
	fail := func(message string, cause error) error {
		return shared.NewServiceError(shared.ErrorCategoryResource, shared.CodeRecordFailed, message, "FileStateStore", "Save", false, cause)
	}

	if store == nil {
		store = models.NewNotificationStore()
	}

	content, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fail("failed to encode notification store", err)
	}
	content = append(content, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(fmt.Sprintf("failed to create directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fail("failed to create temporary status file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fail("failed to write temporary status file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fail("failed to sync temporary status file", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("failed to close temporary status file", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fail("failed to set status file permissions", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fail("failed to replace status file", err)
	}

	logrus.WithFields(logrus.Fields{
		"component":   "FileStateStore",
		"path":        s.path,
		"entry_count": len(store),
	}).Debug("Saved notification store")
	return nil
}

func (s *FileStateStore) empty(category shared.ErrorCategory, code, message string, cause error) shared.LoadResult {
	return shared.LoadResult{
		Store: models.NewNotificationStore(),
		Err:   shared.NewServiceError(category, code, message, "FileStateStore", "Load", false, cause),
	}
}
