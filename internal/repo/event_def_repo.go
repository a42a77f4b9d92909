// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// EventDefinition catalog.
//
// Error semantics:
//   - Missing rows surface as gorm.ErrRecordNotFound (ErrNotFound).
//   - Duplicate codes surface as the raw unique-violation error; callers
//     detect it with IsUniqueViolation.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

// ListEventDefinitions returns all event definitions in creation order.
func ListEventDefinitions(ctx context.Context, db *gorm.DB) ([]domain.EventDefinition, error) {
	out := []domain.EventDefinition{}
	err := db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// GetEventDefinition fetches one definition by id.
func GetEventDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.EventDefinition, error) {
	var d domain.EventDefinition
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// FindEventDefinitionByName fetches the first definition with the given
// name. Messages carry event names, so this is how a message is resolved to
// its event code.
func FindEventDefinitionByName(ctx context.Context, db *gorm.DB, name string) (*domain.EventDefinition, error) {
	var d domain.EventDefinition
	err := db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at ASC, id ASC").
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateEventDefinition inserts d. CreatedAt/UpdatedAt default to now (UTC).
func CreateEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return db.WithContext(ctx).Create(d).Error
}

// SaveEventDefinition writes every column of d and bumps UpdatedAt.
func SaveEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error {
	d.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.EventDefinition{}).
		Where("id = ?", d.ID).
		Updates(map[string]any{
			"name":        d.Name,
			"code":        d.Code,
			"description": d.Description,
			"updated_at":  d.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEventDefinition removes the row with id, or returns ErrNotFound when
// nothing was deleted.
func DeleteEventDefinition(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.EventDefinition{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EventCodeTaken reports whether another definition (not exceptID) already
// uses code.
func EventCodeTaken(ctx context.Context, db *gorm.DB, code, exceptID string) (bool, error) {
	var n int64
	q := db.WithContext(ctx).Model(&domain.EventDefinition{}).Where("code = ?", code)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}
