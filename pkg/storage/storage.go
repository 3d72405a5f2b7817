// Package storage persists what outlives a round: the per-round stats
// history, model checkpoints and the final experiment export.
package storage

import (
	"context"

	"github.com/rodneyosodo/fedcollab/pkg/model"
	"github.com/rodneyosodo/fedcollab/round"
)

// Rounds keeps the gathered per-client stats of every completed round.
type Rounds interface {
	Save(ctx context.Context, r int, stats []round.Stats) error
	Get(ctx context.Context, r int) ([]round.Stats, error)
	List(ctx context.Context) ([][]round.Stats, error)
}

// Checkpoints persists model representations, one per version, plus the
// reshaped experiment stats produced after the final round.
type Checkpoints interface {
	SaveCheckpoint(version int, repr model.Representation) error
	LoadCheckpoint(version int) (model.Representation, error)
	SaveExperiment(stats any) error
}
