package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rodneyosodo/fedcollab"
	"github.com/rodneyosodo/fedcollab/node"
	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/pkg/messenger"
	"github.com/rodneyosodo/fedcollab/pkg/model"
	"github.com/rodneyosodo/fedcollab/pkg/storage"
	"github.com/rodneyosodo/fedcollab/round"
)

type service struct {
	cfg         fedcollab.Config
	runID       string
	messenger   messenger.Messenger
	rounds      storage.Rounds
	checkpoints storage.Checkpoints
	evaluator   node.Trainer
	logger      *slog.Logger

	mu        sync.RWMutex
	current   int
	completed bool
	bestAcc   float64
}

// NewService validates the run configuration and returns the coordinator.
// evaluator may be nil when no server-side model evaluation is wanted;
// checkpoints may be nil, in which case nothing is persisted to disk.
func NewService(cfg fedcollab.Config, runID string, m messenger.Messenger, rounds storage.Rounds, checkpoints storage.Checkpoints, evaluator node.Trainer, logger *slog.Logger) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &service{
		cfg:         cfg,
		runID:       runID,
		messenger:   m,
		rounds:      rounds,
		checkpoints: checkpoints,
		evaluator:   evaluator,
		logger:      logger,
		current:     cfg.StartRound,
	}, nil
}

// Run sequences the rounds strictly: round r+1's start broadcast is not sent
// before round r's stats gather has completed and been persisted.
func (svc *service) Run(ctx context.Context) error {
	svc.logger.Info("Starting collaboration run",
		slog.String("run_id", svc.runID),
		slog.String("strategy", svc.cfg.Strategy),
		slog.Int("num_users", svc.cfg.NumUsers),
		slog.Int("rounds", svc.cfg.Rounds))

	for r := svc.cfg.StartRound; r < svc.cfg.Rounds; r++ {
		svc.setRound(r)
		svc.logger.Info("Starting round", slog.Int("round", r))

		stats, err := svc.singleRound(ctx, r)
		if err != nil {
			return fmt.Errorf("round %d: %w", r, err)
		}

		if err := svc.rounds.Save(ctx, r, stats); err != nil {
			return fmt.Errorf("failed to persist round %d stats: %w", r, err)
		}

		svc.logRound(r, stats)

		if err := svc.evaluate(ctx, r); err != nil {
			return err
		}
	}

	return svc.finalize(ctx)
}

func (svc *service) singleRound(ctx context.Context, r int) ([]round.Stats, error) {
	start, err := round.Encode(round.Start{Round: r})
	if err != nil {
		return nil, err
	}
	for _, id := range svc.cfg.NodeIDs() {
		if err := svc.messenger.Send(ctx, id, messenger.TagRoundStart, start); err != nil {
			return nil, err
		}
	}

	svc.logger.Info("Waiting for all nodes to advertise representations", slog.Int("round", r))

	msgs, err := svc.messenger.AllGather(ctx, messenger.TagReprAdvert)
	if err != nil {
		return nil, err
	}
	reprs, err := svc.collectAdverts(msgs)
	if err != nil {
		return nil, err
	}

	svc.logger.Info("Received all node representations", slog.Int("round", r))

	snapshot, err := round.Encode(round.Snapshot{Round: r, Reprs: reprs})
	if err != nil {
		return nil, err
	}
	for _, id := range svc.cfg.NodeIDs() {
		if err := svc.messenger.Send(ctx, id, messenger.TagReprsShare, snapshot); err != nil {
			return nil, err
		}
	}

	statsMsgs, err := svc.messenger.AllGather(ctx, messenger.TagRoundStats)
	if err != nil {
		return nil, err
	}

	svc.logger.Info("Received all node stats", slog.Int("round", r))

	stats := make([]round.Stats, 0, len(statsMsgs))
	for _, msg := range statsMsgs {
		var st round.Stats
		if err := round.Decode(msg.Data, &st); err != nil {
			return nil, fmt.Errorf("stats payload of node %d: %w", msg.From, err)
		}
		if st.Round != r {
			return nil, fmt.Errorf("node %d reported stats for round %d during round %d: %w",
				msg.From, st.Round, r, pkgerrors.ErrProtocol)
		}
		stats = append(stats, st)
	}

	return stats, nil
}

// collectAdverts keys the gathered representations by the true NodeID
// carried in each advert, rejecting duplicates and unknown senders.
func (svc *service) collectAdverts(msgs []messenger.Message) (map[round.NodeID]model.Representation, error) {
	reprs := make(map[round.NodeID]model.Representation, len(msgs))
	for _, msg := range msgs {
		var advert round.Advert
		if err := round.Decode(msg.Data, &advert); err != nil {
			return nil, fmt.Errorf("advert payload of node %d: %w", msg.From, err)
		}
		if advert.From < 1 || int(advert.From) > svc.cfg.NumUsers {
			return nil, fmt.Errorf("advert from unknown node %d: %w", advert.From, pkgerrors.ErrProtocol)
		}
		if _, ok := reprs[advert.From]; ok {
			return nil, fmt.Errorf("duplicate advert from node %d: %w", advert.From, pkgerrors.ErrProtocol)
		}
		if len(advert.Repr) == 0 {
			return nil, fmt.Errorf("empty representation from node %d: %w", advert.From, pkgerrors.ErrProtocol)
		}
		reprs[advert.From] = advert.Repr
	}
	if len(reprs) != svc.cfg.NumUsers {
		return nil, fmt.Errorf("gathered %d of %d representations: %w", len(reprs), svc.cfg.NumUsers, pkgerrors.ErrProtocol)
	}

	return reprs, nil
}

// logRound reports the round's accuracies. The collaborator weight vectors
// are excluded from log output; they stay in the persisted history.
func (svc *service) logRound(r int, stats []round.Stats) {
	before := make([]float64, len(stats))
	after := make([]float64, len(stats))
	for i, st := range stats {
		before[i] = st.TestAccBefore
		after[i] = st.TestAccAfter
	}

	svc.logger.Info("Round accuracy before local training", slog.Int("round", r), slog.Any("accuracies", before))
	svc.logger.Info("Round accuracy after local training", slog.Int("round", r), slog.Any("accuracies", after))
}

// evaluate runs the coordinator-side model evaluation and saves a checkpoint
// whenever the running best accuracy improves.
func (svc *service) evaluate(ctx context.Context, r int) error {
	if svc.evaluator == nil {
		return nil
	}

	acc, err := svc.evaluator.Test(ctx)
	if err != nil {
		return fmt.Errorf("coordinator evaluation failed in round %d: %w", r, err)
	}

	svc.mu.Lock()
	improved := acc > svc.bestAcc
	if improved {
		svc.bestAcc = acc
	}
	svc.mu.Unlock()

	if improved {
		svc.logger.Info("New best accuracy", slog.Int("round", r), slog.Float64("accuracy", acc))
		if svc.checkpoints != nil {
			if err := svc.checkpoints.SaveCheckpoint(r, svc.evaluator.Weights()); err != nil {
				return fmt.Errorf("failed to save checkpoint for round %d: %w", r, err)
			}
		}
	}

	return nil
}

func (svc *service) finalize(ctx context.Context) error {
	experiment, err := svc.ExperimentStats(ctx)
	if err != nil {
		return err
	}

	if svc.checkpoints != nil {
		if err := svc.checkpoints.SaveExperiment(experiment); err != nil {
			return fmt.Errorf("failed to persist experiment stats: %w", err)
		}
	}

	svc.mu.Lock()
	svc.completed = true
	svc.mu.Unlock()

	svc.logger.Info("Collaboration run completed", slog.String("run_id", svc.runID), slog.Int("rounds", svc.cfg.Rounds))

	return nil
}

func (svc *service) setRound(r int) {
	svc.mu.Lock()
	svc.current = r
	svc.mu.Unlock()
}

func (svc *service) Status(_ context.Context) (Status, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return Status{
		RunID:        svc.runID,
		Round:        svc.current,
		Rounds:       svc.cfg.Rounds,
		NumUsers:     svc.cfg.NumUsers,
		BestAccuracy: svc.bestAcc,
		Completed:    svc.completed,
	}, nil
}

func (svc *service) RoundStats(ctx context.Context, r int) ([]round.Stats, error) {
	return svc.rounds.Get(ctx, r)
}

func (svc *service) ExperimentStats(ctx context.Context) (ExperimentStats, error) {
	history, err := svc.rounds.List(ctx)
	if err != nil {
		return ExperimentStats{}, err
	}

	return reshapeStats(history), nil
}
