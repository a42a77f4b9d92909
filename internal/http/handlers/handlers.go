// Package handlers exposes the monitor's HTTP endpoints.
//
// Handlers are transport-thin: they parse and validate request shape (bad
// JSON, bad dates -> 400), call a service, and translate the result or error
// into a response. Business rules and their validation errors (422) live in
// the services package.
package handlers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/services"
)

// QueryService answers read-only questions over the message log.
type QueryService interface {
	ListMessages(ctx context.Context, q services.MessageQuery) ([]domain.Message, error)
	ListMessagesForPatient(ctx context.Context, patient string, q services.MessageQuery) ([]domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	SummarizePatients(ctx context.Context, facility string) ([]domain.PatientSummary, error)
	SetVisitStatus(ctx context.Context, patient string, status domain.VisitStatus) (*domain.PatientVisit, error)
	SolutionFor(ctx context.Context, messageID string) (*services.Solution, error)
}

// KpiService computes dashboard tiles.
type KpiService interface {
	Compute(ctx context.Context) (*domain.KpiData, error)
	RecordSample(ctx context.Context) (*domain.KpiSample, error)
}

// EventCatalog manages event definitions.
type EventCatalog interface {
	List(ctx context.Context) ([]domain.EventDefinition, error)
	Create(ctx context.Context, name, code, description string) (*domain.EventDefinition, error)
	Update(ctx context.Context, id string, p services.EventDefinitionPatch) (*domain.EventDefinition, error)
	Delete(ctx context.Context, id string) error
}

// ErrorCatalog manages error definitions and their steps.
type ErrorCatalog interface {
	List(ctx context.Context) ([]domain.ErrorDefinition, error)
	Get(ctx context.Context, id string) (*domain.ErrorDefinition, error)
	Create(ctx context.Context, in services.ErrorDefinitionInput) (*domain.ErrorDefinition, error)
	Update(ctx context.Context, id string, p services.ErrorDefinitionPatch) (*domain.ErrorDefinition, error)
	ReplaceSteps(ctx context.Context, id string, steps []services.StepInput) (*domain.ErrorDefinition, error)
	ReorderSteps(ctx context.Context, id string, from, to int) (*domain.ErrorDefinition, error)
	ArrangeSteps(ctx context.Context, id string, stepIDs []string) (*domain.ErrorDefinition, error)
	DeleteStep(ctx context.Context, id, stepID string) (*domain.ErrorDefinition, error)
	Delete(ctx context.Context, id string) error
}

// Handlers groups every endpoint of the API.
type Handlers struct {
	query  QueryService
	kpis   KpiService
	events EventCatalog
	errors ErrorCatalog

	// DB backs ETag pre-checks and idempotency records; both are skipped
	// when nil.
	DB *gorm.DB
	// IdempotencyTTL is how long a create result can be replayed.
	IdempotencyTTL time.Duration
}

// New constructs Handlers bound to the given services.
func New(q QueryService, k KpiService, ev EventCatalog, er ErrorCatalog) *Handlers {
	return &Handlers{query: q, kpis: k, events: ev, errors: er, IdempotencyTTL: 24 * time.Hour}
}
