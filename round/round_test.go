package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsNormalize(t *testing.T) {
	w := Weights{1: 1, 2: 1, 3: 2}.Normalize()

	assert.InDelta(t, 1.0, w.Sum(), WeightTolerance)
	assert.Equal(t, Weights{1: 0.25, 2: 0.25, 3: 0.5}, w)
	assert.True(t, w.Normalized())
}

func TestWeightsNormalizeEmpty(t *testing.T) {
	w := Weights{}.Normalize()

	assert.Empty(t, w)
	assert.False(t, w.Normalized())
}

func TestWeightsSoleMember(t *testing.T) {
	assert.True(t, Weights{3: 1}.SoleMember(3))
	assert.False(t, Weights{3: 1}.SoleMember(1))
	assert.False(t, Weights{1: 0.5, 3: 0.5}.SoleMember(3))
	assert.False(t, Weights{}.SoleMember(3))
}

func TestWeightsVector(t *testing.T) {
	w := Weights{1: 0.5, 3: 0.5}

	assert.Equal(t, []float64{0.5, 0, 0.5, 0, 0}, w.Vector(5))
}

func TestEncodeDecode(t *testing.T) {
	start := Start{Round: 7}

	data, err := Encode(start)
	require.NoError(t, err)

	var decoded Start
	require.NoError(t, Decode(data, &decoded))
	assert.Equal(t, start, decoded)
}

func TestDecodeEmptyPayload(t *testing.T) {
	var start Start

	err := Decode(nil, &start)
	assert.Error(t, err)
}
