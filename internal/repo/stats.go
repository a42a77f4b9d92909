// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

// tableStats returns the row count of model and the greatest value of the
// timestamp column col, or nil when the table is empty.
func tableStats(ctx context.Context, db *gorm.DB, model any, col string) (count int64, maxAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(model)
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest value (avoid MAX() -> TEXT in SQLite)
	var row struct {
		At time.Time
	}
	if err = db.WithContext(ctx).Model(model).Select(col + " AS at").Order(col + " DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.At, nil
}

// MessagesStats returns the size of the message log and the latest ingestion
// time.
func MessagesStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return tableStats(ctx, db, &domain.Message{}, "created_at")
}

// EventDefinitionsStats returns the catalog size and latest update time.
func EventDefinitionsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return tableStats(ctx, db, &domain.EventDefinition{}, "updated_at")
}

// ErrorDefinitionsStats returns the catalog size and latest update time.
// Step changes bump the parent's updated_at, so they are covered too.
func ErrorDefinitionsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return tableStats(ctx, db, &domain.ErrorDefinition{}, "updated_at")
}
