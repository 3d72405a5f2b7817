package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/pkg/model"
	"github.com/rodneyosodo/fedcollab/round"
)

func TestCombine(t *testing.T) {
	reprs := map[round.NodeID]model.Representation{
		1: {"w": {1, 2}, "b": {10}},
		2: {"w": {3, 4}, "b": {20}},
		3: {"w": {100, 100}, "b": {100}},
	}

	agg := NewWeightedAverage()

	out, err := agg.Combine(reprs, round.Weights{1: 0.5, 2: 0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Representation{"w": {2, 3}, "b": {15}}, out)
}

func TestCombineUnevenWeights(t *testing.T) {
	reprs := map[round.NodeID]model.Representation{
		1: {"w": {0, 0}},
		2: {"w": {4, 8}},
	}

	agg := NewWeightedAverage()

	out, err := agg.Combine(reprs, round.Weights{1: 0.75, 2: 0.25}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Representation{"w": {1, 2}}, out)
}

func TestCombineIgnoreKeys(t *testing.T) {
	reprs := map[round.NodeID]model.Representation{
		1: {"w": {1}, "head": {5}},
		2: {"w": {3}, "head": {7}},
	}

	agg := NewWeightedAverage()

	out, err := agg.Combine(reprs, round.Weights{1: 0.5, 2: 0.5}, map[string]bool{"head": true})
	require.NoError(t, err)
	assert.Equal(t, model.Representation{"w": {2}}, out)
	assert.NotContains(t, out, "head")
}

func TestCombineUnnormalizedWeights(t *testing.T) {
	reprs := map[round.NodeID]model.Representation{
		1: {"w": {1}},
		2: {"w": {2}},
	}

	agg := NewWeightedAverage()

	_, err := agg.Combine(reprs, round.Weights{1: 1, 2: 1}, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrWeightInvariant)
}

func TestCombineMissingRepresentation(t *testing.T) {
	reprs := map[round.NodeID]model.Representation{
		1: {"w": {1}},
	}

	agg := NewWeightedAverage()

	_, err := agg.Combine(reprs, round.Weights{1: 0.5, 2: 0.5}, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrProtocol)
}

func TestCombineEmptyWeights(t *testing.T) {
	agg := NewWeightedAverage()

	_, err := agg.Combine(map[round.NodeID]model.Representation{}, round.Weights{}, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrProtocol)
}

func TestCombineShapeMismatch(t *testing.T) {
	reprs := map[round.NodeID]model.Representation{
		1: {"w": {1, 2}},
		2: {"w": {3}},
	}

	agg := NewWeightedAverage()

	_, err := agg.Combine(reprs, round.Weights{1: 0.5, 2: 0.5}, nil)
	assert.Error(t, err)
}
