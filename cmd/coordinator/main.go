package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/rodneyosodo/fedcollab"
	"github.com/rodneyosodo/fedcollab/coordinator"
	"github.com/rodneyosodo/fedcollab/coordinator/api"
	"github.com/rodneyosodo/fedcollab/coordinator/middleware"
	"github.com/rodneyosodo/fedcollab/pkg/messenger"
	"github.com/rodneyosodo/fedcollab/pkg/metrics"
	"github.com/rodneyosodo/fedcollab/pkg/storage"
	"github.com/rodneyosodo/fedcollab/pkg/tracing"
	"github.com/rodneyosodo/fedcollab/pkg/trainer"
	"github.com/rodneyosodo/fedcollab/round"
)

const svcName = "coordinator"

type envConfig struct {
	LogLevel    string        `env:"COORDINATOR_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string        `env:"COORDINATOR_INSTANCE_ID"`
	HTTPPort    string        `env:"COORDINATOR_HTTP_PORT"    envDefault:"7070"`
	MQTTAddress string        `env:"COORDINATOR_MQTT_ADDRESS" envDefault:"tcp://localhost:1883"`
	MQTTQoS     uint8         `env:"COORDINATOR_MQTT_QOS"     envDefault:"2"`
	MQTTTimeout time.Duration `env:"COORDINATOR_MQTT_TIMEOUT" envDefault:"30s"`
	RunID       string        `env:"COORDINATOR_RUN_ID"`
	ConfigPath  string        `env:"COORDINATOR_CONFIG_PATH"  envDefault:"config.toml"`
	ResultsPath string        `env:"COORDINATOR_RESULTS_PATH" envDefault:"results"`
	OTELURL     url.URL       `env:"COORDINATOR_OTEL_URL"`
	TraceRatio  float64       `env:"COORDINATOR_TRACE_RATIO"  envDefault:"0"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := tracing.NewProvider(ctx, svcName, cfg.OTELURL, cfg.RunID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	runCfg, err := fedcollab.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load run configuration", slog.String("error", err.Error()))

		return
	}

	m, err := messenger.NewMQTT(cfg.MQTTAddress, cfg.MQTTQoS, round.CoordinatorID, runCfg.NodeIDs(), cfg.RunID, cfg.MQTTTimeout, logger)
	if err != nil {
		logger.Error("failed to initialize mqtt messenger", slog.String("error", err.Error()))

		return
	}
	defer func() {
		if err := m.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect messenger", slog.String("error", err.Error()))
		}
	}()

	resultsPath := runCfg.ResultsPath
	if resultsPath == "" {
		resultsPath = cfg.ResultsPath
	}
	checkpoints, err := storage.NewFileStore(resultsPath)
	if err != nil {
		logger.Error("failed to initialize file store", slog.String("error", err.Error()))

		return
	}

	evaluator := trainer.NewSynthetic(round.CoordinatorID, runCfg.Seed)

	svc, err := coordinator.NewService(runCfg, cfg.RunID, m, storage.NewInMemoryRounds(), checkpoints, evaluator, logger)
	if err != nil {
		logger.Error("failed to initialize coordinator service", slog.String("error", err.Error()))

		return
	}
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := metrics.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	hs := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.MakeHandler(svc, logger, cfg.InstanceID),
	}

	g.Go(func() error {
		defer cancel()

		return svc.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("Coordinator HTTP server listening", slog.String("port", cfg.HTTPPort))
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		return hs.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
