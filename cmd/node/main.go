package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/rodneyosodo/fedcollab"
	"github.com/rodneyosodo/fedcollab/node"
	"github.com/rodneyosodo/fedcollab/pkg/messenger"
	"github.com/rodneyosodo/fedcollab/pkg/trainer"
	"github.com/rodneyosodo/fedcollab/round"
)

const svcName = "node"

type envConfig struct {
	NodeID      int           `env:"NODE_ID,required"`
	LogLevel    string        `env:"NODE_LOG_LEVEL"    envDefault:"info"`
	MQTTAddress string        `env:"NODE_MQTT_ADDRESS" envDefault:"tcp://localhost:1883"`
	MQTTQoS     uint8         `env:"NODE_MQTT_QOS"     envDefault:"2"`
	MQTTTimeout time.Duration `env:"NODE_MQTT_TIMEOUT" envDefault:"30s"`
	RunID       string        `env:"NODE_RUN_ID,required"`
	ConfigPath  string        `env:"NODE_CONFIG_PATH"  envDefault:"config.toml"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
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

	runCfg, err := fedcollab.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load run configuration", slog.String("error", err.Error()))

		return
	}

	id := round.NodeID(cfg.NodeID)

	m, err := messenger.NewMQTT(cfg.MQTTAddress, cfg.MQTTQoS, id, runCfg.NodeIDs(), cfg.RunID, cfg.MQTTTimeout, logger)
	if err != nil {
		logger.Error("failed to initialize mqtt messenger", slog.String("error", err.Error()))

		return
	}
	defer func() {
		if err := m.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect messenger", slog.String("error", err.Error()))
		}
	}()

	svc, err := node.NewService(id, runCfg, trainer.NewSynthetic(id, runCfg.Seed), m, logger)
	if err != nil {
		logger.Error("failed to initialize node service", slog.String("error", err.Error()))

		return
	}

	if err := svc.Run(ctx); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))

		return
	}

	logger.Info("Node completed all rounds", slog.Int("node_id", cfg.NodeID))
}
