package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

// SampleRecorder stores one success-rate sample. *KpiService satisfies it.
type SampleRecorder interface {
	RecordSample(ctx context.Context) (*domain.KpiSample, error)
}

// RunEvery runs task immediately and then every interval until ctx is
// cancelled. Failures are logged under name and never stop the loop. A
// non-positive interval returns at once.
func RunEvery(ctx context.Context, interval time.Duration, name string, task func(context.Context) error) {
	if interval <= 0 || task == nil {
		return
	}
	run := func() {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("task", name).Msg("periodic task failed")
		}
	}

	run()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

// RunSampler records a trend sample every interval. After each sample the
// optional housekeeping funcs run, e.g. pruning samples the trend no longer
// reads.
func RunSampler(ctx context.Context, interval time.Duration, rec SampleRecorder, housekeeping ...func(context.Context) error) {
	if rec == nil {
		return
	}
	RunEvery(ctx, interval, "kpi sample", func(ctx context.Context) error {
		smp, err := rec.RecordSample(ctx)
		if err != nil {
			return err
		}
		log.Debug().Float64("success_rate", smp.SuccessRate).Msg("kpi sample recorded")
		for _, fn := range housekeeping {
			if err := fn(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
