package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone(t *testing.T) {
	orig := Representation{"w": {1, 2}, "b": {3}}
	clone := orig.Clone()

	require.Equal(t, orig, clone)

	clone["w"][0] = 99
	assert.Equal(t, 1.0, orig["w"][0])
}

func TestZeros(t *testing.T) {
	repr := Representation{"w": {1, 2, 3}, "b": {4}, "head": {5}}

	out := Zeros(repr, map[string]bool{"head": true})
	assert.Equal(t, Representation{"w": {0, 0, 0}, "b": {0}}, out)
}

func TestAddScaled(t *testing.T) {
	dst := Representation{"w": {1, 1}}
	src := Representation{"w": {2, 4}, "extra": {9}}

	require.NoError(t, AddScaled(dst, src, 0.5))
	assert.Equal(t, Representation{"w": {2, 3}}, dst)
}

func TestAddScaledMissingTensor(t *testing.T) {
	dst := Representation{"w": {1}}
	src := Representation{"b": {1}}

	assert.Error(t, AddScaled(dst, src, 1))
}

func TestAddScaledSizeMismatch(t *testing.T) {
	dst := Representation{"w": {1, 2}}
	src := Representation{"w": {1}}

	assert.Error(t, AddScaled(dst, src, 1))
}
