package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultQueryTimeout bounds every store round-trip when no timeout is
// configured.
const DefaultQueryTimeout = 5 * time.Second

// bounded derives a context that expires after d (DefaultQueryTimeout when
// d <= 0).
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, d)
}

func isKind(err, kind error) bool { return errors.Is(err, kind) }

// endSpan records err on span when it is an unexpected failure. Validation and
// not-found outcomes are caller errors and leave the span status unset.
func endSpan(span trace.Span, err error) {
	if err != nil && !isKind(err, ErrValidation) && !isKind(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
