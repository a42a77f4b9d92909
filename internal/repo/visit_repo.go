// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores the externally supplied visit status of
// each patient.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

// UpsertPatientVisit sets the visit status for patient, replacing any
// previous value (last write wins).
func UpsertPatientVisit(ctx context.Context, db *gorm.DB, patient string, status domain.VisitStatus) (*domain.PatientVisit, error) {
	v := &domain.PatientVisit{Patient: patient, Status: status, UpdatedAt: time.Now().UTC()}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(v).Error
	if err != nil {
		return nil, err
	}
	return v, nil
}

// VisitStatuses returns the stored status for each of patients that has one.
func VisitStatuses(ctx context.Context, db *gorm.DB, patients []string) (map[string]domain.VisitStatus, error) {
	out := make(map[string]domain.VisitStatus, len(patients))
	if len(patients) == 0 {
		return out, nil
	}
	var rows []domain.PatientVisit
	if err := db.WithContext(ctx).Where("patient IN ?", patients).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Patient] = r.Status
	}
	return out, nil
}
