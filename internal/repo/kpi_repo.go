// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file keeps the success-rate history that feeds the
// KPI trend sparkline.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

// CreateKpiSample appends a sample taken at takenAt.
func CreateKpiSample(ctx context.Context, db *gorm.DB, rate float64, takenAt time.Time) (*domain.KpiSample, error) {
	s := &domain.KpiSample{SuccessRate: rate, TakenAt: takenAt.UTC()}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// RecentKpiSamples returns at most n of the newest samples, oldest first.
func RecentKpiSamples(ctx context.Context, db *gorm.DB, n int) ([]domain.KpiSample, error) {
	out := []domain.KpiSample{}
	if n <= 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Order("taken_at DESC, id DESC").
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// PruneKpiSamples deletes every sample older than the newest keep and reports
// how many rows went.
func PruneKpiSamples(ctx context.Context, db *gorm.DB, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	newest := db.Model(&domain.KpiSample{}).
		Select("id").
		Order("taken_at DESC, id DESC").
		Limit(keep)
	res := db.WithContext(ctx).
		Where("id NOT IN (?)", newest).
		Delete(&domain.KpiSample{})
	return res.RowsAffected, res.Error
}
