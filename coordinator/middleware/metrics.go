package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/rodneyosodo/fedcollab/coordinator"
	"github.com/rodneyosodo/fedcollab/round"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Run(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "run").Add(1)
		mm.latency.With("method", "run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Run(ctx)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (coordinator.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) RoundStats(ctx context.Context, r int) ([]round.Stats, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "round-stats").Add(1)
		mm.latency.With("method", "round-stats").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RoundStats(ctx, r)
}

func (mm *metricsMiddleware) ExperimentStats(ctx context.Context) (coordinator.ExperimentStats, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "experiment-stats").Add(1)
		mm.latency.With("method", "experiment-stats").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ExperimentStats(ctx)
}
