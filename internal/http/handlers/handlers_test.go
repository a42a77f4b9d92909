package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
	"github.com/tbourn/hl7-monitor-backend/internal/services"
)

// ---------- test plumbing ----------

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
		t.Fatalf("migrate: %v", err)
	}
	if _, err := repo.SeedFixtures(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func doJSON(r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("error body: %v (%s)", err, w.Body.String())
	}
	return er
}

// Handlers.New expects interfaces in this package; we satisfy them with
// stubs whose behavior each test fills in.

type stubQuery struct {
	list     func(ctx context.Context, q services.MessageQuery) ([]domain.Message, error)
	patient  func(ctx context.Context, patient string, q services.MessageQuery) ([]domain.Message, error)
	get      func(ctx context.Context, id string) (*domain.Message, error)
	patients func(ctx context.Context, facility string) ([]domain.PatientSummary, error)
	visit    func(ctx context.Context, patient string, s domain.VisitStatus) (*domain.PatientVisit, error)
	solution func(ctx context.Context, id string) (*services.Solution, error)
}

func (s stubQuery) ListMessages(ctx context.Context, q services.MessageQuery) ([]domain.Message, error) {
	return s.list(ctx, q)
}
func (s stubQuery) ListMessagesForPatient(ctx context.Context, p string, q services.MessageQuery) ([]domain.Message, error) {
	return s.patient(ctx, p, q)
}
func (s stubQuery) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	return s.get(ctx, id)
}
func (s stubQuery) SummarizePatients(ctx context.Context, f string) ([]domain.PatientSummary, error) {
	return s.patients(ctx, f)
}
func (s stubQuery) SetVisitStatus(ctx context.Context, p string, v domain.VisitStatus) (*domain.PatientVisit, error) {
	return s.visit(ctx, p, v)
}
func (s stubQuery) SolutionFor(ctx context.Context, id string) (*services.Solution, error) {
	return s.solution(ctx, id)
}

type stubKpis struct {
	compute func(ctx context.Context) (*domain.KpiData, error)
	sample  func(ctx context.Context) (*domain.KpiSample, error)
}

func (s stubKpis) Compute(ctx context.Context) (*domain.KpiData, error)        { return s.compute(ctx) }
func (s stubKpis) RecordSample(ctx context.Context) (*domain.KpiSample, error) { return s.sample(ctx) }

// handlersOver wires real catalog services over db; query and KPI stubs can
// be supplied per test.
func handlersOver(db *gorm.DB, q QueryService, k KpiService) *Handlers {
	h := New(q, k,
		services.NewEventDefinitionService(db, catalogRepo{}),
		services.NewErrorDefinitionService(db, catalogRepo{}),
	)
	h.DB = db
	return h
}

// catalogRepo forwards the catalog repository contracts to the repo package.
type catalogRepo struct{}

func (catalogRepo) ListEventDefinitions(ctx context.Context, db *gorm.DB) ([]domain.EventDefinition, error) {
	return repo.ListEventDefinitions(ctx, db)
}
func (catalogRepo) GetEventDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.EventDefinition, error) {
	return repo.GetEventDefinition(ctx, db, id)
}
func (catalogRepo) CreateEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error {
	return repo.CreateEventDefinition(ctx, db, d)
}
func (catalogRepo) SaveEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error {
	return repo.SaveEventDefinition(ctx, db, d)
}
func (catalogRepo) DeleteEventDefinition(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteEventDefinition(ctx, db, id)
}
func (catalogRepo) EventCodeTaken(ctx context.Context, db *gorm.DB, code, exceptID string) (bool, error) {
	return repo.EventCodeTaken(ctx, db, code, exceptID)
}
func (catalogRepo) ListErrorDefinitions(ctx context.Context, db *gorm.DB) ([]domain.ErrorDefinition, error) {
	return repo.ListErrorDefinitions(ctx, db)
}
func (catalogRepo) GetErrorDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.ErrorDefinition, error) {
	return repo.GetErrorDefinition(ctx, db, id)
}
func (catalogRepo) CreateErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error {
	return repo.CreateErrorDefinition(ctx, db, d)
}
func (catalogRepo) SaveErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error {
	return repo.SaveErrorDefinition(ctx, db, d)
}
func (catalogRepo) ReplaceSolutionSteps(ctx context.Context, db *gorm.DB, defID string, steps []domain.SolutionStep) error {
	return repo.ReplaceSolutionSteps(ctx, db, defID, steps)
}
func (catalogRepo) DeleteErrorDefinition(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteErrorDefinition(ctx, db, id)
}
