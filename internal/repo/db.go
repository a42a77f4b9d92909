// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

// MemoryDSN is used when no database path is configured. The store lives as
// long as the process and is held by a single pooled connection.
const MemoryDSN = "file:hl7monitor?mode=memory&cache=shared"

// connPragmas run on every connection the pool opens. Transactions take the
// write lock at BEGIN so concurrent writers queue on busy_timeout instead of
// failing when a read lock is upgraded.
var connPragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=foreign_keys(1)",
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
	"_txlock=immediate",
}

// withPragmas appends connPragmas to dsn's query string.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(connPragmas, "&")
}

// OpenSQLite opens (or creates) a SQLite database with per-connection
// PRAGMAs and registers the OpenTelemetry tracing plugin. An empty path or
// ":memory:" selects MemoryDSN.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := strings.TrimSpace(path)
	memory := dsn == "" || dsn == ":memory:"
	if memory {
		dsn = MemoryDSN
	} else if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
		// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(withPragmas(dsn)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// DB spans join the request trace when a provider is installed.
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if memory {
		// Shared-cache tables lock with SQLITE_LOCKED, which busy_timeout
		// never retries. The store also dies with its last connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		return db, nil
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// AutoMigrate creates or updates every table owned by the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Message{},
		&domain.EventDefinition{},
		&domain.ErrorDefinition{},
		&domain.SolutionStep{},
		&domain.PatientVisit{},
		&domain.KpiSample{},
		&domain.Idempotency{},
	)
}
