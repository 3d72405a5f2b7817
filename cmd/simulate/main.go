// Command simulate runs a whole collaboration experiment in one process:
// the coordinator and every node share a channel-backed messenger, so no
// broker is needed. Useful for strategy comparisons and protocol debugging.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rodneyosodo/fedcollab"
	"github.com/rodneyosodo/fedcollab/coordinator"
	"github.com/rodneyosodo/fedcollab/coordinator/middleware"
	"github.com/rodneyosodo/fedcollab/node"
	"github.com/rodneyosodo/fedcollab/pkg/messenger"
	"github.com/rodneyosodo/fedcollab/pkg/storage"
	"github.com/rodneyosodo/fedcollab/pkg/trainer"
	"github.com/rodneyosodo/fedcollab/round"
)

func main() {
	var (
		configPath  string
		resultsPath string
		logLevel    string
	)

	rootCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a federated collaboration experiment in-process",
		Long:  `Runs the coordinator and all nodes of a run as goroutines over an in-process messenger and prints the experiment stats.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return simulate(cmd, configPath, resultsPath, logLevel)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.toml", "run configuration file")
	rootCmd.Flags().StringVarP(&resultsPath, "results", "r", "", "results directory (disabled when empty)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func simulate(cmd *cobra.Command, configPath, resultsPath, logLevel string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := fedcollab.LoadConfig(configPath)
	if err != nil {
		logErrorCmd(cmd, err)

		return err
	}

	runID := uuid.NewString()
	hub := messenger.NewHub(cfg.NodeIDs())

	var checkpoints storage.Checkpoints
	if resultsPath != "" {
		fs, err := storage.NewFileStore(resultsPath)
		if err != nil {
			return err
		}
		checkpoints = fs
	}

	evaluator := trainer.NewSynthetic(round.CoordinatorID, cfg.Seed)
	svc, err := coordinator.NewService(cfg, runID, hub.Endpoint(round.CoordinatorID), storage.NewInMemoryRounds(), checkpoints, evaluator, logger)
	if err != nil {
		logErrorCmd(cmd, err)

		return err
	}
	svc = middleware.Logging(logger, svc)

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		return svc.Run(ctx)
	})

	for _, id := range cfg.NodeIDs() {
		n, err := node.NewService(id, cfg, trainer.NewSynthetic(id, cfg.Seed), hub.Endpoint(id), logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return n.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		logErrorCmd(cmd, err)

		return err
	}

	stats, err := svc.ExperimentStats(context.Background())
	if err != nil {
		return err
	}

	logOKCmd(cmd, fmt.Sprintf("run %s completed: %d rounds, %d nodes", runID, cfg.Rounds, cfg.NumUsers))
	logJSONCmd(cmd, stats)

	return nil
}

func logJSONCmd(cmd *cobra.Command, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}

	pj, err := prettyjson.Format(data)
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", string(pj))
}

func logOKCmd(cmd *cobra.Command, msg string) {
	green := color.New(color.FgGreen)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s %s\n", green.Sprint("ok:"), msg)
}

func logErrorCmd(cmd *cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(cmd.ErrOrStderr(), "\n%s %s\n\n", boldRed.Sprint("error:"), err.Error())
}
