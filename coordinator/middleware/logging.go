package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/rodneyosodo/fedcollab/coordinator"
	"github.com/rodneyosodo/fedcollab/round"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Run(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Run failed", args...)

			return
		}
		lm.logger.Info("Run completed successfully", args...)
	}(time.Now())

	return lm.svc.Run(ctx)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (resp coordinator.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("round", resp.Round),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Status failed", args...)

			return
		}
		lm.logger.Debug("Status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) RoundStats(ctx context.Context, r int) (resp []round.Stats, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("round", r),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round stats failed", args...)

			return
		}
		lm.logger.Debug("Get round stats completed successfully", args...)
	}(time.Now())

	return lm.svc.RoundStats(ctx, r)
}

func (lm *loggingMiddleware) ExperimentStats(ctx context.Context) (resp coordinator.ExperimentStats, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get experiment stats failed", args...)

			return
		}
		lm.logger.Debug("Get experiment stats completed successfully", args...)
	}(time.Now())

	return lm.svc.ExperimentStats(ctx)
}
