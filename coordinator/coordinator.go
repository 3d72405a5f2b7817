// Package coordinator sequences the rounds of a run: it broadcasts the start
// signal, gathers every node's representation, rebroadcasts the consistent
// snapshot, gathers stats and persists the history.
package coordinator

import (
	"context"

	"github.com/rodneyosodo/fedcollab/round"
)

// Status is a point-in-time view of a run, served by the status API.
type Status struct {
	RunID        string  `json:"run_id"`
	Round        int     `json:"round"`
	Rounds       int     `json:"rounds"`
	NumUsers     int     `json:"num_users"`
	BestAccuracy float64 `json:"best_accuracy"`
	Completed    bool    `json:"completed"`
}

type Service interface {
	// Run executes every round and finalizes the experiment history.
	Run(ctx context.Context) error

	// Status reports the run's progress.
	Status(ctx context.Context) (Status, error)

	// RoundStats returns the gathered per-client stats of a completed round.
	RoundStats(ctx context.Context, r int) ([]round.Stats, error)

	// ExperimentStats reshapes the full history into per-metric matrices for
	// downstream plotting and export.
	ExperimentStats(ctx context.Context) (ExperimentStats, error)
}
