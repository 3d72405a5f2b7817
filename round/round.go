// Package round defines the identities, weights and statistics shared by the
// coordinator and the nodes across a federated round.
package round

import "math"

// NodeID identifies a node for the lifetime of a run. Node identities are
// 1-indexed and stable; CoordinatorID is reserved for the coordinator.
type NodeID int

// CoordinatorID is the distinguished identity of the coordinator, outside
// the 1..NumUsers client range.
const CoordinatorID NodeID = 0

// WeightTolerance is the allowed deviation from 1.0 for the sum of a
// normalized collaborator weight map.
const WeightTolerance = 1e-9

// Weights maps each collaborator chosen for a round to its blending weight.
type Weights map[NodeID]float64

// Sum returns the total raw weight.
func (w Weights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}

	return total
}

// Normalize divides every weight by the total so the result sums to one.
// The receiver is returned unchanged when empty.
func (w Weights) Normalize() Weights {
	total := w.Sum()
	if total == 0 {
		return w
	}

	out := make(Weights, len(w))
	for id, v := range w {
		out[id] = v / total
	}

	return out
}

// Normalized reports whether the weights sum to one within WeightTolerance.
func (w Weights) Normalized() bool {
	return math.Abs(w.Sum()-1) <= WeightTolerance
}

// SoleMember reports whether id is the only collaborator, i.e. no peer
// contributes and aggregation must be skipped.
func (w Weights) SoleMember(id NodeID) bool {
	if len(w) != 1 {
		return false
	}
	_, ok := w[id]

	return ok
}

// Vector renders the weights as a fixed-length slice indexed by NodeID-1,
// zero for non-collaborators. Downstream analysis relies on this shape.
func (w Weights) Vector(numUsers int) []float64 {
	out := make([]float64, numUsers)
	for id, v := range w {
		if id >= 1 && int(id) <= numUsers {
			out[id-1] = v
		}
	}

	return out
}

// Stats is the per-node, per-round report gathered by the coordinator.
type Stats struct {
	NodeID        NodeID    `json:"node_id"`
	Round         int       `json:"round"`
	TestAccBefore float64   `json:"test_acc_before_training"`
	TrainLoss     float64   `json:"train_loss"`
	TrainAcc      float64   `json:"train_acc"`
	TestAccAfter  float64   `json:"test_acc_after_training"`
	CollabWeights []float64 `json:"collab_weights"`
}
