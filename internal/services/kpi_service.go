// Package services – KpiService
//
// This file computes the dashboard KPI tiles (total, error and critical error
// counts plus success rate) and maintains the success-rate history behind the
// trend sparkline.
package services

import (
	"context"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// KpiRepo defines the repository contract required by KpiService.
type KpiRepo interface {
	StatusCounts(ctx context.Context, db *gorm.DB) (map[domain.MessageStatus]int64, error)
	ListMessages(ctx context.Context, db *gorm.DB, patient string, f domain.MessageFilter) ([]domain.Message, error)
	CreateKpiSample(ctx context.Context, db *gorm.DB, rate float64, takenAt time.Time) (*domain.KpiSample, error)
	RecentKpiSamples(ctx context.Context, db *gorm.DB, n int) ([]domain.KpiSample, error)
}

// CriticalPolicy decides which error messages count as critical. An error is
// critical when any enabled rule matches.
type CriticalPolicy struct {
	// MinCount flags errors repeated at least this many times; 0 disables.
	MinCount int
	// Patterns are case-insensitive substrings of the error detail.
	Patterns []string
	// Events lists event names whose errors are always critical.
	Events []string
}

// DefaultCriticalPolicy flags repeated errors and connectivity failures.
func DefaultCriticalPolicy() CriticalPolicy {
	return CriticalPolicy{MinCount: 3, Patterns: []string{"timeout", "database"}}
}

// IsCritical reports whether m is an error message that matches the policy.
func (p CriticalPolicy) IsCritical(m domain.Message) bool {
	if m.Status != domain.StatusError {
		return false
	}
	if p.MinCount > 0 && m.Count != nil && *m.Count >= p.MinCount {
		return true
	}
	if m.ErrorMessage != nil && len(p.Patterns) > 0 {
		detail := strings.ToLower(*m.ErrorMessage)
		for _, pat := range p.Patterns {
			if pat = strings.ToLower(strings.TrimSpace(pat)); pat != "" && strings.Contains(detail, pat) {
				return true
			}
		}
	}
	for _, e := range p.Events {
		if e == m.Event {
			return true
		}
	}
	return false
}

// KpiService computes KPI tiles and records success-rate samples.
type KpiService struct {
	DB     *gorm.DB
	Repo   KpiRepo
	Policy CriticalPolicy

	// TrendSamples is how many samples the trend holds.
	TrendSamples int
	Timeout      time.Duration
	// Now is the sample clock; time.Now when nil.
	Now func() time.Time
}

// NewKpiService constructs a KpiService with the default policy and a
// seven-sample trend.
func NewKpiService(db *gorm.DB, r KpiRepo) *KpiService {
	return &KpiService{
		DB:           db,
		Repo:         r,
		Policy:       DefaultCriticalPolicy(),
		TrendSamples: 7,
		Timeout:      DefaultQueryTimeout,
	}
}

// SuccessRate returns success/total as a percentage rounded to two decimals,
// or 0 when total is 0.
func SuccessRate(success, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(success)*10000/float64(total)) / 100
}

// Compute returns the current KPI tiles.
func (s *KpiService) Compute(ctx context.Context) (k *domain.KpiData, err error) {
	tr := otel.Tracer("services/KpiService")
	ctx, span := tr.Start(ctx, "Compute")
	defer func() { endSpan(span, err) }()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	counts, err := s.Repo.StatusCounts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}

	errs, err := s.Repo.ListMessages(ctx, s.DB, "", domain.MessageFilter{Status: domain.StatusError})
	if err != nil {
		return nil, err
	}
	var critical int64
	for _, m := range errs {
		if s.Policy.IsCritical(m) {
			critical++
		}
	}

	samples, err := s.Repo.RecentKpiSamples(ctx, s.DB, s.TrendSamples)
	if err != nil {
		return nil, err
	}
	trend := make([]float64, len(samples))
	for i, smp := range samples {
		trend[i] = smp.SuccessRate
	}

	k = &domain.KpiData{
		TotalMessages:    total,
		ErrorMessages:    counts[domain.StatusError],
		CriticalErrors:   critical,
		SuccessRate:      SuccessRate(counts[domain.StatusSuccess], total),
		SuccessRateTrend: trend,
	}
	span.SetAttributes(
		attribute.Int64("kpi.total", k.TotalMessages),
		attribute.Float64("kpi.success_rate", k.SuccessRate),
	)
	return k, nil
}

// RecordSample stores the current success rate as a trend sample.
func (s *KpiService) RecordSample(ctx context.Context) (smp *domain.KpiSample, err error) {
	tr := otel.Tracer("services/KpiService")
	ctx, span := tr.Start(ctx, "RecordSample", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() { endSpan(span, err) }()

	ctx, cancel := bounded(ctx, s.Timeout)
	defer cancel()

	counts, err := s.Repo.StatusCounts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.Repo.CreateKpiSample(ctx, s.DB, SuccessRate(counts[domain.StatusSuccess], total), now())
}
