package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
)

// newTestDB opens a per-test in-memory store with the full schema and the
// fixture data loaded.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if _, err := repo.SeedFixtures(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

// gormRepo forwards every repository contract to the repo package.
type gormRepo struct{}

func (gormRepo) ListMessages(ctx context.Context, db *gorm.DB, patient string, f domain.MessageFilter) ([]domain.Message, error) {
	return repo.ListMessages(ctx, db, patient, f)
}
func (gormRepo) GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	return repo.GetMessage(ctx, db, id)
}
func (gormRepo) ListPatients(ctx context.Context, db *gorm.DB, facility string) ([]repo.PatientErrorRow, error) {
	return repo.ListPatients(ctx, db, facility)
}
func (gormRepo) VisitStatuses(ctx context.Context, db *gorm.DB, patients []string) (map[string]domain.VisitStatus, error) {
	return repo.VisitStatuses(ctx, db, patients)
}
func (gormRepo) UpsertPatientVisit(ctx context.Context, db *gorm.DB, patient string, status domain.VisitStatus) (*domain.PatientVisit, error) {
	return repo.UpsertPatientVisit(ctx, db, patient, status)
}
func (gormRepo) FindEventDefinitionByName(ctx context.Context, db *gorm.DB, name string) (*domain.EventDefinition, error) {
	return repo.FindEventDefinitionByName(ctx, db, name)
}
func (gormRepo) ListErrorDefinitionsByCode(ctx context.Context, db *gorm.DB, code string) ([]domain.ErrorDefinition, error) {
	return repo.ListErrorDefinitionsByCode(ctx, db, code)
}
func (gormRepo) StatusCounts(ctx context.Context, db *gorm.DB) (map[domain.MessageStatus]int64, error) {
	return repo.StatusCounts(ctx, db)
}
func (gormRepo) CreateKpiSample(ctx context.Context, db *gorm.DB, rate float64, at time.Time) (*domain.KpiSample, error) {
	return repo.CreateKpiSample(ctx, db, rate, at)
}
func (gormRepo) RecentKpiSamples(ctx context.Context, db *gorm.DB, n int) ([]domain.KpiSample, error) {
	return repo.RecentKpiSamples(ctx, db, n)
}
func (gormRepo) ListEventDefinitions(ctx context.Context, db *gorm.DB) ([]domain.EventDefinition, error) {
	return repo.ListEventDefinitions(ctx, db)
}
func (gormRepo) GetEventDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.EventDefinition, error) {
	return repo.GetEventDefinition(ctx, db, id)
}
func (gormRepo) CreateEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error {
	return repo.CreateEventDefinition(ctx, db, d)
}
func (gormRepo) SaveEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error {
	return repo.SaveEventDefinition(ctx, db, d)
}
func (gormRepo) DeleteEventDefinition(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteEventDefinition(ctx, db, id)
}
func (gormRepo) EventCodeTaken(ctx context.Context, db *gorm.DB, code, exceptID string) (bool, error) {
	return repo.EventCodeTaken(ctx, db, code, exceptID)
}
func (gormRepo) ListErrorDefinitions(ctx context.Context, db *gorm.DB) ([]domain.ErrorDefinition, error) {
	return repo.ListErrorDefinitions(ctx, db)
}
func (gormRepo) GetErrorDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.ErrorDefinition, error) {
	return repo.GetErrorDefinition(ctx, db, id)
}
func (gormRepo) CreateErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error {
	return repo.CreateErrorDefinition(ctx, db, d)
}
func (gormRepo) SaveErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error {
	return repo.SaveErrorDefinition(ctx, db, d)
}
func (gormRepo) ReplaceSolutionSteps(ctx context.Context, db *gorm.DB, defID string, steps []domain.SolutionStep) error {
	return repo.ReplaceSolutionSteps(ctx, db, defID, steps)
}
func (gormRepo) DeleteErrorDefinition(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteErrorDefinition(ctx, db, id)
}

func strp(s string) *string { return &s }

func ptrTime(s string) *time.Time {
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &ts
}

func msgIDs(ms []domain.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}
