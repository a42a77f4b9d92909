// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ErrorDefinition catalog and its owned SolutionStep rows.
//
// Steps are always loaded ordered by position. Step writes replace the whole
// sequence so that the stored order stays dense.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

func preloadSteps(db *gorm.DB) *gorm.DB {
	return db.Preload("SolutionSteps", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

// ListErrorDefinitions returns all error definitions with their steps, in
// creation order.
func ListErrorDefinitions(ctx context.Context, db *gorm.DB) ([]domain.ErrorDefinition, error) {
	out := []domain.ErrorDefinition{}
	err := preloadSteps(db.WithContext(ctx)).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// ListErrorDefinitionsByCode returns the definitions whose associated codes
// contain code.
func ListErrorDefinitionsByCode(ctx context.Context, db *gorm.DB, code string) ([]domain.ErrorDefinition, error) {
	out := []domain.ErrorDefinition{}
	err := preloadSteps(db.WithContext(ctx)).
		Where("EXISTS (SELECT 1 FROM json_each(CAST(error_definitions.associated_event_codes AS TEXT)) WHERE json_each.value = ?)", code).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetErrorDefinition fetches one definition with its steps.
func GetErrorDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.ErrorDefinition, error) {
	var d domain.ErrorDefinition
	if err := preloadSteps(db.WithContext(ctx)).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateErrorDefinition inserts d together with its steps.
func CreateErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	for i := range d.SolutionSteps {
		d.SolutionSteps[i].ErrorDefinitionID = d.ID
	}
	return db.WithContext(ctx).Create(d).Error
}

// SaveErrorDefinition writes name and codes of d and bumps UpdatedAt. Steps
// are not touched; use ReplaceSolutionSteps.
func SaveErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error {
	d.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.ErrorDefinition{}).
		Where("id = ?", d.ID).
		Updates(map[string]any{
			"name":                   d.Name,
			"associated_event_codes": d.AssociatedEventCodes,
			"updated_at":             d.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceSolutionSteps deletes every step of defID and inserts steps in their
// place. Run it inside a transaction.
func ReplaceSolutionSteps(ctx context.Context, db *gorm.DB, defID string, steps []domain.SolutionStep) error {
	tx := db.WithContext(ctx)
	if err := tx.Where("error_definition_id = ?", defID).Delete(&domain.SolutionStep{}).Error; err != nil {
		return err
	}
	if len(steps) > 0 {
		for i := range steps {
			steps[i].ErrorDefinitionID = defID
		}
		if err := tx.Create(&steps).Error; err != nil {
			return err
		}
	}
	return tx.Model(&domain.ErrorDefinition{}).
		Where("id = ?", defID).
		Update("updated_at", time.Now().UTC()).Error
}

// DeleteErrorDefinition removes the definition and its steps, or returns
// ErrNotFound when no definition has id.
func DeleteErrorDefinition(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&domain.ErrorDefinition{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// Also covers connections opened without foreign_keys=ON.
		return tx.Where("error_definition_id = ?", id).Delete(&domain.SolutionStep{}).Error
	})
}
