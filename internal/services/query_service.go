// Package services – QueryService
//
// This file implements QueryService, the read side of the dashboard: the
// filtered message log, per-patient timelines, per-facility patient summaries,
// message detail and the solution lookup that matches a failed message to the
// error catalog. The only writes are visit-status updates, which are external
// input stored alongside the log.
//
// Observability: all public methods are OpenTelemetry-instrumented and every
// store round-trip is bounded by Timeout.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
	"github.com/tbourn/hl7-monitor-backend/internal/search"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// QueryRepo defines the repository contract required by QueryService.
type QueryRepo interface {
	// ListMessages returns messages matching f in native order, optionally
	// restricted to one patient.
	ListMessages(ctx context.Context, db *gorm.DB, patient string, f domain.MessageFilter) ([]domain.Message, error)

	// GetMessage fetches a message by id.
	GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error)

	// ListPatients groups messages of a facility ("" = all) by patient name.
	ListPatients(ctx context.Context, db *gorm.DB, facility string) ([]repo.PatientErrorRow, error)

	// VisitStatuses returns the stored visit status per patient.
	VisitStatuses(ctx context.Context, db *gorm.DB, patients []string) (map[string]domain.VisitStatus, error)

	// UpsertPatientVisit stores a patient's visit status.
	UpsertPatientVisit(ctx context.Context, db *gorm.DB, patient string, status domain.VisitStatus) (*domain.PatientVisit, error)

	// FindEventDefinitionByName resolves an event name to its definition.
	FindEventDefinitionByName(ctx context.Context, db *gorm.DB, name string) (*domain.EventDefinition, error)

	// ListErrorDefinitionsByCode returns error definitions linked to code.
	ListErrorDefinitionsByCode(ctx context.Context, db *gorm.DB, code string) ([]domain.ErrorDefinition, error)
}

// QueryService answers the dashboard's read queries.
type QueryService struct {
	DB   *gorm.DB
	Repo QueryRepo

	// Timeout bounds each call; DefaultQueryTimeout when zero.
	Timeout time.Duration
	// Locale drives the collation used to sort patient names.
	Locale language.Tag
}

// NewQueryService constructs a QueryService with English collation and the
// default timeout.
func NewQueryService(db *gorm.DB, r QueryRepo) *QueryService {
	return &QueryService{
		DB:      db,
		Repo:    r,
		Timeout: DefaultQueryTimeout,
		Locale:  language.English,
	}
}

// MessageQuery is the unvalidated filter input as received from callers.
type MessageQuery struct {
	Status string
	From   *time.Time
	To     *time.Time
	Events []string
}

// Filter validates q and converts it to a domain.MessageFilter.
func (q MessageQuery) Filter() (domain.MessageFilter, error) {
	var f domain.MessageFilter
	if s := strings.TrimSpace(q.Status); s != "" {
		st := domain.MessageStatus(strings.ToLower(s))
		if !st.Valid() {
			return f, invalid("status", "must be one of success, error, pending")
		}
		f.Status = st
	}
	if q.From != nil {
		f.Range.From = *q.From
	}
	if q.To != nil {
		f.Range.To = *q.To
	}
	if f.Range.Inverted() {
		return f, invalid("date_range", "from must not be after to")
	}
	seen := make(map[string]struct{}, len(q.Events))
	for _, e := range q.Events {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		f.Events = append(f.Events, e)
	}
	return f, nil
}

// ListMessages returns the log filtered by q, most recent first.
func (s *QueryService) ListMessages(ctx context.Context, q MessageQuery) (out []domain.Message, err error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("filter.status", q.Status),
			attribute.Int("filter.events", len(q.Events)),
		),
	)
	defer func() { endSpan(span, err) }()

	f, err := q.Filter()
	if err != nil {
		return nil, err
	}
	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	out, err = s.Repo.ListMessages(ctx, s.DB, "", f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Message{}
	}
	queryResultSize.WithLabelValues("list_messages").Observe(float64(len(out)))
	return out, nil
}

// ListMessagesForPatient returns one patient's timeline filtered by q. An
// unknown patient yields an empty slice, not an error.
func (s *QueryService) ListMessagesForPatient(ctx context.Context, patient string, q MessageQuery) (out []domain.Message, err error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "ListMessagesForPatient")
	defer func() { endSpan(span, err) }()

	patient = strings.TrimSpace(patient)
	if patient == "" {
		return nil, invalid("patient", "must not be empty")
	}
	f, err := q.Filter()
	if err != nil {
		return nil, err
	}
	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	out, err = s.Repo.ListMessages(ctx, s.DB, patient, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Message{}
	}
	queryResultSize.WithLabelValues("patient_messages").Observe(float64(len(out)))
	return out, nil
}

// GetMessage returns a single message or ErrMessageNotFound.
func (s *QueryService) GetMessage(ctx context.Context, id string) (m *domain.Message, err error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "GetMessage", trace.WithAttributes(attribute.String("message.id", id)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	m, err = s.Repo.GetMessage(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	return m, err
}

// SummarizePatients groups the log of facility ("" = every facility) by
// patient. Results are sorted by name using the configured locale collation.
// Visit status is read from stored visit records and reported as Unknown when
// a patient has none.
func (s *QueryService) SummarizePatients(ctx context.Context, facility string) (out []domain.PatientSummary, err error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "SummarizePatients", trace.WithAttributes(attribute.String("facility", facility)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	rows, err := s.Repo.ListPatients(ctx, s.DB, strings.TrimSpace(facility))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Patient
	}
	visits, err := s.Repo.VisitStatuses(ctx, s.DB, names)
	if err != nil {
		return nil, err
	}

	out = make([]domain.PatientSummary, len(rows))
	for i, r := range rows {
		vs, ok := visits[r.Patient]
		if !ok {
			vs = domain.VisitUnknown
		}
		out[i] = domain.PatientSummary{Name: r.Patient, VisitStatus: vs, HasError: r.HasError}
	}

	// collate.Collator is not safe for concurrent use; build one per call.
	col := collate.New(s.Locale)
	sort.SliceStable(out, func(a, b int) bool {
		if c := col.CompareString(out[a].Name, out[b].Name); c != 0 {
			return c < 0
		}
		return out[a].Name < out[b].Name
	})
	queryResultSize.WithLabelValues("patient_summaries").Observe(float64(len(out)))
	return out, nil
}

// SetVisitStatus records the visit status supplied for patient.
func (s *QueryService) SetVisitStatus(ctx context.Context, patient string, status domain.VisitStatus) (v *domain.PatientVisit, err error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "SetVisitStatus")
	defer func() { endSpan(span, err) }()

	patient = strings.TrimSpace(patient)
	if patient == "" {
		return nil, invalid("patient", "must not be empty")
	}
	if !status.Valid() {
		return nil, invalid("status", "must be one of Admitted, Discharged, Inpatient, Outpatient, Pending")
	}
	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	return s.Repo.UpsertPatientVisit(ctx, s.DB, patient, status)
}

// RankedDefinition is one candidate remediation with its similarity score.
type RankedDefinition struct {
	Definition domain.ErrorDefinition `json:"definition"`
	Score      float64                `json:"score"`
}

// Solution is the remediation lookup result for one message.
type Solution struct {
	Message    domain.Message     `json:"message"`
	EventCode  string             `json:"event_code,omitempty"`
	Match      *RankedDefinition  `json:"match"`
	Candidates []RankedDefinition `json:"candidates"`
}

// SolutionFor finds the error definitions that apply to a failed message.
//
// The message's event name is resolved to an event code through the event
// catalog; every error definition linked to that code is a candidate.
// Candidates are ranked by token overlap between the message's error detail
// and the definition's name and step descriptions. Match is the best
// candidate, or nil when there is none. Messages that are not errors, or
// whose event is not in the catalog, get an empty candidate list.
func (s *QueryService) SolutionFor(ctx context.Context, messageID string) (sol *Solution, err error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "SolutionFor", trace.WithAttributes(attribute.String("message.id", messageID)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	m, err := s.Repo.GetMessage(ctx, s.DB, messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	sol = &Solution{Message: *m, Candidates: []RankedDefinition{}}
	if m.Status != domain.StatusError {
		return sol, nil
	}

	ev, err := s.Repo.FindEventDefinitionByName(ctx, s.DB, m.Event)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sol, nil
	}
	if err != nil {
		return nil, err
	}
	sol.EventCode = ev.Code

	defs, err := s.Repo.ListErrorDefinitionsByCode(ctx, s.DB, ev.Code)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return sol, nil
	}
	sol.Candidates = rankDefinitions(defs, detailOf(m))
	sol.Match = &sol.Candidates[0]
	span.SetAttributes(attribute.Int("candidates", len(defs)), attribute.String("match.id", sol.Match.Definition.ID))
	return sol, nil
}

func detailOf(m *domain.Message) string {
	if m.ErrorMessage != nil {
		return *m.ErrorMessage
	}
	return ""
}

// rankDefinitions orders defs by similarity to detail, best first. Ties keep
// catalog order.
func rankDefinitions(defs []domain.ErrorDefinition, detail string) []RankedDefinition {
	docs := make([]search.Document, len(defs))
	byID := make(map[string]domain.ErrorDefinition, len(defs))
	for i, d := range defs {
		var b strings.Builder
		b.WriteString(d.Name)
		for _, st := range d.SolutionSteps {
			b.WriteString(". ")
			b.WriteString(st.Description)
		}
		docs[i] = search.Document{ID: d.ID, Text: b.String()}
		byID[d.ID] = d
	}
	idx := search.NewIndex(docs, search.WithStopwords(search.DefaultStopwords))

	out := make([]RankedDefinition, 0, len(defs))
	for _, r := range idx.Rank(detail) {
		out = append(out, RankedDefinition{Definition: byID[r.ID], Score: r.Score})
		delete(byID, r.ID)
	}
	// Definitions the index skipped (blank text) still belong in the list.
	for _, d := range defs {
		if _, left := byID[d.ID]; left {
			out = append(out, RankedDefinition{Definition: d})
		}
	}
	return out
}
