// Package aggregator blends peer representations into a single model state
// using pre-normalized collaborator weights.
package aggregator

import (
	"fmt"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/pkg/model"
	"github.com/rodneyosodo/fedcollab/round"
)

// Aggregator combines representations keyed by NodeID with collaborator
// weights. ignoreKeys names tensors excluded from blending; they stay absent
// from the result and the caller keeps its own values for them.
type Aggregator interface {
	Combine(reprs map[round.NodeID]model.Representation, weights round.Weights, ignoreKeys map[string]bool) (model.Representation, error)
}

type weightedAverage struct{}

// NewWeightedAverage returns the weighted linear combination aggregator.
func NewWeightedAverage() Aggregator {
	return &weightedAverage{}
}

// Combine computes sum(w_i * repr_i) over the collaborators present in
// weights. It does not re-normalize: weights must already sum to one, and a
// violation is reported as a weight invariant fault rather than silently
// blended through.
func (a *weightedAverage) Combine(reprs map[round.NodeID]model.Representation, weights round.Weights, ignoreKeys map[string]bool) (model.Representation, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("no collaborator weights: %w", pkgerrors.ErrProtocol)
	}
	if !weights.Normalized() {
		return nil, fmt.Errorf("weights sum to %v: %w", weights.Sum(), pkgerrors.ErrWeightInvariant)
	}

	var out model.Representation
	for id, w := range weights {
		repr, ok := reprs[id]
		if !ok {
			return nil, fmt.Errorf("no representation for collaborator %d: %w", id, pkgerrors.ErrProtocol)
		}
		if out == nil {
			out = model.Zeros(repr, ignoreKeys)
		}
		if err := model.AddScaled(out, repr, w); err != nil {
			return nil, fmt.Errorf("failed to blend representation of collaborator %d: %w", id, err)
		}
	}

	return out, nil
}
