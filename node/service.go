package node

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rodneyosodo/fedcollab"
	"github.com/rodneyosodo/fedcollab/pkg/aggregator"
	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/pkg/messenger"
	"github.com/rodneyosodo/fedcollab/pkg/strategy"
	"github.com/rodneyosodo/fedcollab/round"
)

// Service drives one node through every round of a run.
type Service struct {
	id         round.NodeID
	cfg        fedcollab.Config
	strategy   strategy.Strategy
	aggregator aggregator.Aggregator
	trainer    Trainer
	messenger  messenger.Messenger
	ignoreKeys map[string]bool
	logger     *slog.Logger
}

// NewService validates the configuration and binds the node's collaborators.
// A malformed configuration fails here, before the round loop is entered.
func NewService(id round.NodeID, cfg fedcollab.Config, trainer Trainer, m messenger.Messenger, logger *slog.Logger) (*Service, error) {
	if id < 1 || int(id) > cfg.NumUsers {
		return nil, fmt.Errorf("node ID %d outside 1..%d: %w", id, cfg.NumUsers, pkgerrors.ErrInvalidConfig)
	}

	strat, err := cfg.NewStrategy()
	if err != nil {
		return nil, err
	}

	return &Service{
		id:         id,
		cfg:        cfg,
		strategy:   strat,
		aggregator: aggregator.NewWeightedAverage(),
		trainer:    trainer,
		messenger:  m,
		ignoreKeys: cfg.IgnoreKeys(),
		logger:     logger,
	}, nil
}

// Run executes every round from start_round to rounds-1. Any error is fatal
// for the run; the protocol performs no silent recovery.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("Node ready to start training", slog.Int("node_id", int(s.id)))

	for r := s.cfg.StartRound; r < s.cfg.Rounds; r++ {
		if err := s.runRound(ctx, r); err != nil {
			return fmt.Errorf("node %d failed in round %d: %w", s.id, r, err)
		}
	}

	return nil
}

func (s *Service) runRound(ctx context.Context, r int) error {
	// The coordinator's start signal is the only cross-round synchronization
	// point. Nothing is advertised before it arrives.
	data, err := s.messenger.Receive(ctx, round.CoordinatorID, messenger.TagRoundStart)
	if err != nil {
		return err
	}
	var start round.Start
	if err := round.Decode(data, &start); err != nil {
		return err
	}
	if start.Round != r {
		return fmt.Errorf("start signal for round %d while expecting %d: %w", start.Round, r, pkgerrors.ErrProtocol)
	}

	advert, err := round.Encode(round.Advert{From: s.id, Repr: s.trainer.Weights()})
	if err != nil {
		return err
	}
	if err := s.messenger.Send(ctx, round.CoordinatorID, messenger.TagReprAdvert, advert); err != nil {
		return err
	}

	data, err = s.messenger.Receive(ctx, round.CoordinatorID, messenger.TagReprsShare)
	if err != nil {
		return err
	}
	var snapshot round.Snapshot
	if err := round.Decode(data, &snapshot); err != nil {
		return err
	}
	if snapshot.Round != r {
		return fmt.Errorf("snapshot for round %d while expecting %d: %w", snapshot.Round, r, pkgerrors.ErrProtocol)
	}
	if len(snapshot.Reprs) != s.cfg.NumUsers {
		return fmt.Errorf("snapshot holds %d of %d representations: %w", len(snapshot.Reprs), s.cfg.NumUsers, pkgerrors.ErrProtocol)
	}

	weights, err := s.strategy.Weights(s.id, r, s.cfg.TargetUsers(r))
	if err != nil {
		return err
	}
	if len(weights) == 0 {
		return fmt.Errorf("strategy resolved no collaborators: %w", pkgerrors.ErrProtocol)
	}

	// A sole-self collaborator set means no peer contributes this round: the
	// node keeps its representation untouched instead of blending with
	// itself.
	if weights.SoleMember(s.id) {
		s.logger.Debug("No collaborators this round, skipping aggregation",
			slog.Int("node_id", int(s.id)), slog.Int("round", r))
	} else {
		blended, err := s.aggregator.Combine(snapshot.Reprs, weights, s.ignoreKeys)
		if err != nil {
			return err
		}
		s.trainer.SetWeights(blended, s.ignoreKeys)
	}

	stats := round.Stats{
		NodeID:        s.id,
		Round:         r,
		CollabWeights: weights.Vector(s.cfg.NumUsers),
	}

	if stats.TestAccBefore, err = s.trainer.Test(ctx); err != nil {
		return fmt.Errorf("pre-training test failed: %w", err)
	}
	if stats.TrainLoss, stats.TrainAcc, err = s.trainer.Train(ctx, s.cfg.EpochsPerRound); err != nil {
		return fmt.Errorf("local training failed: %w", err)
	}
	if stats.TestAccAfter, err = s.trainer.Test(ctx); err != nil {
		return fmt.Errorf("post-training test failed: %w", err)
	}

	report, err := round.Encode(stats)
	if err != nil {
		return err
	}

	return s.messenger.Send(ctx, round.CoordinatorID, messenger.TagRoundStats, report)
}
