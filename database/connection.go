package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DatabaseConfig holds database connection pool configuration
type DatabaseConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// DefaultDatabaseConfig returns pool settings sized for a single run-once process
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// Connect opens and pings a PostgreSQL connection pool
func Connect(ctx context.Context, dbURL string, config DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, config.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component":          "database",
		"max_open_conns":     config.MaxOpenConns,
		"max_idle_conns":     config.MaxIdleConns,
		"conn_max_lifetime":  config.ConnMaxLifetime,
		"conn_max_idle_time": config.ConnMaxIdleTime,
	}).Info("Connected to database")

	return db, nil
}

// Migrate executes each statement of schema. Failed statements are logged and skipped so
// re-running against an existing database is harmless.
func Migrate(ctx context.Context, db *sql.DB, schema string) error {
	if db == nil {
		return fmt.Errorf("database connection not established")
	}

	statements := parseSQLStatements(schema)
	failed := 0
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			failed++
			logrus.WithField("component", "database").Warnf("Migration statement failed (continuing): %v", err)
		}
	}
	if failed == len(statements) && failed > 0 {
		return fmt.Errorf("all %d migration statements failed", failed)
	}

	logrus.WithFields(logrus.Fields{
		"component":  "database",
		"statements": len(statements),
		"failed":     failed,
	}).Info("Database migration completed")
	return nil
}

// HealthCheck pings the database and logs pool statistics
func HealthCheck(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database connection not established")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	stats := db.Stats()
	logrus.WithFields(logrus.Fields{
		"component":            "database",
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
	}).Debug("Database connection pool health check")

	return nil
}

// parseSQLStatements splits SQL into statements on line-ending semicolons, dropping comment lines
func parseSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)

		if strings.HasSuffix(line, ";") {
			if stmt := strings.TrimSpace(strings.TrimSuffix(current.String(), ";")); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}
