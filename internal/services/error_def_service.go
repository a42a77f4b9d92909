// Package services – ErrorDefinitionService
//
// This file implements CRUD over the error definition catalog and the
// management of each definition's remediation steps. Steps are owned by their
// definition; every write renumbers them 1..N following array position, so
// the stored order is always dense. Caller-supplied order values are ignored.
//
// Every mutation runs inside a transaction: the merged record is validated
// before anything is written, so a rejected update leaves the stored
// definition unchanged.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const catalogErrors = "errors"

// ErrorDefinitionRepo defines the repository contract required by
// ErrorDefinitionService.
type ErrorDefinitionRepo interface {
	ListErrorDefinitions(ctx context.Context, db *gorm.DB) ([]domain.ErrorDefinition, error)
	GetErrorDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.ErrorDefinition, error)
	CreateErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error
	SaveErrorDefinition(ctx context.Context, db *gorm.DB, d *domain.ErrorDefinition) error
	ReplaceSolutionSteps(ctx context.Context, db *gorm.DB, defID string, steps []domain.SolutionStep) error
	DeleteErrorDefinition(ctx context.Context, db *gorm.DB, id string) error
}

// StepInput is one submitted step. ID is optional; an ID already belonging to
// the definition is kept, anything else gets a fresh one.
type StepInput struct {
	ID          string
	Description string
}

// ErrorDefinitionInput holds the fields of a new error definition.
type ErrorDefinitionInput struct {
	Name                 string
	AssociatedEventCodes []string
	SolutionSteps        []StepInput
}

// ErrorDefinitionPatch carries the fields to change; nil means unchanged.
// A non-nil SolutionSteps replaces the whole sequence.
type ErrorDefinitionPatch struct {
	Name                 *string
	AssociatedEventCodes *[]string
	SolutionSteps        *[]StepInput
}

// ErrorDefinitionService manages the error catalog.
type ErrorDefinitionService struct {
	DB      *gorm.DB
	Repo    ErrorDefinitionRepo
	Timeout time.Duration
}

// NewErrorDefinitionService constructs the service with the default timeout.
func NewErrorDefinitionService(db *gorm.DB, r ErrorDefinitionRepo) *ErrorDefinitionService {
	return &ErrorDefinitionService{DB: db, Repo: r, Timeout: DefaultQueryTimeout}
}

// NormalizeCodes trims and upper-cases codes, dropping blanks and duplicates
// while keeping first-seen order.
func NormalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = NormalizeCode(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// List returns every error definition with its steps.
func (s *ErrorDefinitionService) List(ctx context.Context) (out []domain.ErrorDefinition, err error) {
	tr := otel.Tracer("services/ErrorDefinitionService")
	ctx, span := tr.Start(ctx, "List")
	defer func() { endSpan(span, err) }()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	out, err = s.Repo.ListErrorDefinitions(ctx, s.DB)
	if err == nil && out == nil {
		out = []domain.ErrorDefinition{}
	}
	return out, err
}

// Get returns one definition with its steps.
func (s *ErrorDefinitionService) Get(ctx context.Context, id string) (d *domain.ErrorDefinition, err error) {
	tr := otel.Tracer("services/ErrorDefinitionService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("error_def.id", id)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	d, err = s.Repo.GetErrorDefinition(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrErrorDefinitionNotFound
	}
	return d, err
}

// Create validates and stores a new error definition with its steps.
func (s *ErrorDefinitionService) Create(ctx context.Context, in ErrorDefinitionInput) (d *domain.ErrorDefinition, err error) {
	tr := otel.Tracer("services/ErrorDefinitionService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.Int("steps", len(in.SolutionSteps))))
	defer func() {
		recordMutation(catalogErrors, "create", err)
		endSpan(span, err)
	}()

	d = &domain.ErrorDefinition{
		ID:                   "err-def-" + uuid.NewString(),
		Name:                 strings.TrimSpace(in.Name),
		AssociatedEventCodes: NormalizeCodes(in.AssociatedEventCodes),
	}
	if err := validateErrorDefinition(d); err != nil {
		return nil, err
	}
	steps, err := buildSteps(in.SolutionSteps, nil)
	if err != nil {
		return nil, err
	}
	d.SolutionSteps = steps

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	if err := s.Repo.CreateErrorDefinition(ctx, s.DB, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Update merges p into the definition with id, validates the result and
// stores it.
func (s *ErrorDefinitionService) Update(ctx context.Context, id string, p ErrorDefinitionPatch) (d *domain.ErrorDefinition, err error) {
	tr := otel.Tracer("services/ErrorDefinitionService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("error_def.id", id)))
	defer func() {
		recordMutation(catalogErrors, "update", err)
		endSpan(span, err)
	}()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			cur.Name = strings.TrimSpace(*p.Name)
		}
		if p.AssociatedEventCodes != nil {
			cur.AssociatedEventCodes = NormalizeCodes(*p.AssociatedEventCodes)
		}
		if err := validateErrorDefinition(cur); err != nil {
			return err
		}
		var steps []domain.SolutionStep
		if p.SolutionSteps != nil {
			if steps, err = buildSteps(*p.SolutionSteps, cur.SolutionSteps); err != nil {
				return err
			}
		}

		if p.Name != nil || p.AssociatedEventCodes != nil {
			if err := s.Repo.SaveErrorDefinition(ctx, tx, cur); err != nil {
				return err
			}
		}
		if p.SolutionSteps != nil {
			if err := s.Repo.ReplaceSolutionSteps(ctx, tx, cur.ID, steps); err != nil {
				return err
			}
			cur.SolutionSteps = steps
		}
		d = cur
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrErrorDefinitionNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ReplaceSteps swaps the whole step sequence of the definition with id.
func (s *ErrorDefinitionService) ReplaceSteps(ctx context.Context, id string, steps []StepInput) (*domain.ErrorDefinition, error) {
	return s.Update(ctx, id, ErrorDefinitionPatch{SolutionSteps: &steps})
}

// ReorderSteps moves the step at index from to index to (0-based) and
// renumbers the sequence.
func (s *ErrorDefinitionService) ReorderSteps(ctx context.Context, id string, from, to int) (*domain.ErrorDefinition, error) {
	return s.mutateSteps(ctx, id, "reorder_steps", func(cur []domain.SolutionStep) ([]domain.SolutionStep, error) {
		out, err := domain.ReorderSteps(cur, from, to)
		if errors.Is(err, domain.ErrStepIndex) {
			return nil, invalid("from/to", "index out of range")
		}
		return out, err
	})
}

// ArrangeSteps puts the steps in the order given by stepIDs, which must name
// every current step exactly once.
func (s *ErrorDefinitionService) ArrangeSteps(ctx context.Context, id string, stepIDs []string) (*domain.ErrorDefinition, error) {
	return s.mutateSteps(ctx, id, "arrange_steps", func(cur []domain.SolutionStep) ([]domain.SolutionStep, error) {
		out, err := domain.ArrangeSteps(cur, stepIDs)
		if errors.Is(err, domain.ErrStepPermutation) {
			return nil, invalid("step_ids", "must list every current step id exactly once")
		}
		return out, err
	})
}

// DeleteStep removes one step and renumbers the rest.
func (s *ErrorDefinitionService) DeleteStep(ctx context.Context, id, stepID string) (*domain.ErrorDefinition, error) {
	return s.mutateSteps(ctx, id, "delete_step", func(cur []domain.SolutionStep) ([]domain.SolutionStep, error) {
		out, ok := domain.RemoveStep(cur, stepID)
		if !ok {
			return nil, ErrStepNotFound
		}
		return out, nil
	})
}

// Delete removes the definition with id and its steps. An absent id fails
// with ErrErrorDefinitionNotFound on every call.
func (s *ErrorDefinitionService) Delete(ctx context.Context, id string) (err error) {
	tr := otel.Tracer("services/ErrorDefinitionService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("error_def.id", id)))
	defer func() {
		recordMutation(catalogErrors, "delete", err)
		endSpan(span, err)
	}()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	err = s.Repo.DeleteErrorDefinition(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrErrorDefinitionNotFound
	}
	return err
}

// mutateSteps loads the definition, applies fn to its steps and stores the
// result, all in one transaction.
func (s *ErrorDefinitionService) mutateSteps(ctx context.Context, id, op string, fn func([]domain.SolutionStep) ([]domain.SolutionStep, error)) (d *domain.ErrorDefinition, err error) {
	tr := otel.Tracer("services/ErrorDefinitionService")
	ctx, span := tr.Start(ctx, op, trace.WithAttributes(attribute.String("error_def.id", id)))
	defer func() {
		recordMutation(catalogErrors, op, err)
		endSpan(span, err)
	}()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		steps, err := fn(cur.SolutionSteps)
		if err != nil {
			return err
		}
		if err := s.Repo.ReplaceSolutionSteps(ctx, tx, cur.ID, steps); err != nil {
			return err
		}
		cur.SolutionSteps = steps
		d = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *ErrorDefinitionService) load(ctx context.Context, tx *gorm.DB, id string) (*domain.ErrorDefinition, error) {
	cur, err := s.Repo.GetErrorDefinition(ctx, tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrErrorDefinitionNotFound
	}
	return cur, err
}

func validateErrorDefinition(d *domain.ErrorDefinition) error {
	if d.Name == "" {
		return invalid("name", "must not be empty")
	}
	if len(d.AssociatedEventCodes) == 0 {
		return invalid("associated_event_codes", "must contain at least one code")
	}
	return nil
}

// buildSteps validates inputs and turns them into a dense step sequence.
// IDs of current steps are reused; unknown or repeated IDs are replaced.
func buildSteps(in []StepInput, current []domain.SolutionStep) ([]domain.SolutionStep, error) {
	known := make(map[string]struct{}, len(current))
	for _, st := range current {
		known[st.ID] = struct{}{}
	}
	used := make(map[string]struct{}, len(in))
	out := make([]domain.SolutionStep, 0, len(in))
	for _, st := range in {
		desc := strings.TrimSpace(st.Description)
		if desc == "" {
			return nil, invalid("solution_steps.description", "must not be empty")
		}
		id := strings.TrimSpace(st.ID)
		_, isKnown := known[id]
		_, isUsed := used[id]
		if id == "" || !isKnown || isUsed {
			id = "step-" + uuid.NewString()
		}
		used[id] = struct{}{}
		out = append(out, domain.SolutionStep{ID: id, Description: desc})
	}
	return domain.RenumberSteps(out), nil
}
