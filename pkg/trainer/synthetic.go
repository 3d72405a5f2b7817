// Package trainer provides a simulated training collaborator: a small linear
// model whose loss decays and accuracy saturates with training. It stands in
// for a real trainer in the binaries, the simulation CLI and the protocol
// tests.
package trainer

import (
	"context"
	"math/rand"
	"sync"

	"github.com/rodneyosodo/fedcollab/pkg/model"
	"github.com/rodneyosodo/fedcollab/round"
)

const (
	defaultDim = 8

	lossDecay = 0.85
	accGain   = 0.12
)

// Synthetic is a deterministic fake trainer. Two instances built with the
// same node ID and seed produce identical trajectories.
type Synthetic struct {
	mu   sync.Mutex
	repr model.Representation
	rng  *rand.Rand
	loss float64
	acc  float64
}

// NewSynthetic initializes the model with small random weights drawn from a
// per-node stream.
func NewSynthetic(id round.NodeID, seed int64) *Synthetic {
	rng := rand.New(rand.NewSource(seed + int64(id)))

	w := make([]float64, defaultDim)
	for i := range w {
		w[i] = rng.NormFloat64() * 0.1
	}

	return &Synthetic{
		repr: model.Representation{
			"w": w,
			"b": []float64{rng.NormFloat64() * 0.1},
		},
		rng:  rng,
		loss: 2.0,
		acc:  0.1,
	}
}

func (s *Synthetic) Train(ctx context.Context, epochs int) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range epochs {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}

		s.loss *= lossDecay + s.rng.Float64()*0.05
		s.acc += (1 - s.acc) * (accGain + s.rng.Float64()*0.03)

		for _, tensor := range s.repr {
			for i := range tensor {
				tensor[i] += s.rng.NormFloat64() * 0.01
			}
		}
	}

	return s.loss, s.acc, nil
}

func (s *Synthetic) Test(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.acc, nil
}

func (s *Synthetic) Weights() model.Representation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repr.Clone()
}

func (s *Synthetic) SetWeights(repr model.Representation, ignoreKeys map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, tensor := range repr {
		if ignoreKeys[k] {
			continue
		}
		s.repr[k] = tensor
	}
}
