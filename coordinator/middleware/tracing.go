package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rodneyosodo/fedcollab/coordinator"
	"github.com/rodneyosodo/fedcollab/round"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Run(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "run")
	defer span.End()

	return tm.svc.Run(ctx)
}

func (tm *tracing) Status(ctx context.Context) (coordinator.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) RoundStats(ctx context.Context, r int) ([]round.Stats, error) {
	ctx, span := tm.tracer.Start(ctx, "round-stats", trace.WithAttributes(
		attribute.Int("round", r),
	))
	defer span.End()

	return tm.svc.RoundStats(ctx, r)
}

func (tm *tracing) ExperimentStats(ctx context.Context) (coordinator.ExperimentStats, error) {
	ctx, span := tm.tracer.Start(ctx, "experiment-stats")
	defer span.End()

	return tm.svc.ExperimentStats(ctx)
}
