// Package services – EventDefinitionService
//
// This file implements CRUD over the event definition catalog. Fields are
// trimmed before validation, codes are stored upper-cased and kept unique, and
// each update reads, validates and writes inside one transaction so a failed
// update leaves the stored record unchanged.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const catalogEvents = "events"

// EventDefinitionRepo defines the repository contract required by
// EventDefinitionService.
type EventDefinitionRepo interface {
	ListEventDefinitions(ctx context.Context, db *gorm.DB) ([]domain.EventDefinition, error)
	GetEventDefinition(ctx context.Context, db *gorm.DB, id string) (*domain.EventDefinition, error)
	CreateEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error
	SaveEventDefinition(ctx context.Context, db *gorm.DB, d *domain.EventDefinition) error
	DeleteEventDefinition(ctx context.Context, db *gorm.DB, id string) error
	EventCodeTaken(ctx context.Context, db *gorm.DB, code, exceptID string) (bool, error)
}

// EventDefinitionPatch carries the fields to change; nil means unchanged.
type EventDefinitionPatch struct {
	Name        *string
	Code        *string
	Description *string
}

// EventDefinitionService manages the event catalog.
type EventDefinitionService struct {
	DB      *gorm.DB
	Repo    EventDefinitionRepo
	Timeout time.Duration
}

// NewEventDefinitionService constructs the service with the default timeout.
func NewEventDefinitionService(db *gorm.DB, r EventDefinitionRepo) *EventDefinitionService {
	return &EventDefinitionService{DB: db, Repo: r, Timeout: DefaultQueryTimeout}
}

// NormalizeCode trims and upper-cases an event code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// List returns every event definition in creation order.
func (s *EventDefinitionService) List(ctx context.Context) (out []domain.EventDefinition, err error) {
	tr := otel.Tracer("services/EventDefinitionService")
	ctx, span := tr.Start(ctx, "List")
	defer func() { endSpan(span, err) }()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	out, err = s.Repo.ListEventDefinitions(ctx, s.DB)
	if err == nil && out == nil {
		out = []domain.EventDefinition{}
	}
	return out, err
}

// Create validates and stores a new event definition.
func (s *EventDefinitionService) Create(ctx context.Context, name, code, description string) (d *domain.EventDefinition, err error) {
	tr := otel.Tracer("services/EventDefinitionService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("event.code", code)))
	defer func() {
		recordMutation(catalogEvents, "create", err)
		endSpan(span, err)
	}()

	d = &domain.EventDefinition{
		ID:          "evt-def-" + uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Code:        NormalizeCode(code),
		Description: strings.TrimSpace(description),
	}
	if err := validateEventDefinition(d); err != nil {
		return nil, err
	}

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureCodeFree(ctx, tx, d.Code, ""); err != nil {
			return err
		}
		if err := s.Repo.CreateEventDefinition(ctx, tx, d); err != nil {
			if repo.IsUniqueViolation(err) {
				return ErrDuplicateCode
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Update applies p to the definition with id.
func (s *EventDefinitionService) Update(ctx context.Context, id string, p EventDefinitionPatch) (d *domain.EventDefinition, err error) {
	tr := otel.Tracer("services/EventDefinitionService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("event.id", id)))
	defer func() {
		recordMutation(catalogEvents, "update", err)
		endSpan(span, err)
	}()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.Repo.GetEventDefinition(ctx, tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventDefinitionNotFound
		}
		if err != nil {
			return err
		}
		if p.Name != nil {
			cur.Name = strings.TrimSpace(*p.Name)
		}
		if p.Code != nil {
			cur.Code = NormalizeCode(*p.Code)
		}
		if p.Description != nil {
			cur.Description = strings.TrimSpace(*p.Description)
		}
		if err := validateEventDefinition(cur); err != nil {
			return err
		}
		if p.Code != nil {
			if err := s.ensureCodeFree(ctx, tx, cur.Code, cur.ID); err != nil {
				return err
			}
		}
		if err := s.Repo.SaveEventDefinition(ctx, tx, cur); err != nil {
			if repo.IsUniqueViolation(err) {
				return ErrDuplicateCode
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventDefinitionNotFound
			}
			return err
		}
		d = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes the definition with id. An absent id fails with
// ErrEventDefinitionNotFound on every call. Error definitions referencing
// the code are left untouched.
func (s *EventDefinitionService) Delete(ctx context.Context, id string) (err error) {
	tr := otel.Tracer("services/EventDefinitionService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("event.id", id)))
	defer func() {
		recordMutation(catalogEvents, "delete", err)
		endSpan(span, err)
	}()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	err = s.Repo.DeleteEventDefinition(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEventDefinitionNotFound
	}
	return err
}

func (s *EventDefinitionService) ensureCodeFree(ctx context.Context, tx *gorm.DB, code, exceptID string) error {
	taken, err := s.Repo.EventCodeTaken(ctx, tx, code, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateCode
	}
	return nil
}

func validateEventDefinition(d *domain.EventDefinition) error {
	switch {
	case d.Name == "":
		return invalid("name", "must not be empty")
	case d.Code == "":
		return invalid("code", "must not be empty")
	case d.Description == "":
		return invalid("description", "must not be empty")
	}
	return nil
}
