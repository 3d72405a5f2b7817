package strategy

import (
	"github.com/rodneyosodo/fedcollab/round"
)

// fixed blends with the statically assigned collaborator set of each node,
// all peers weighted equally.
type fixed struct {
	assigned map[round.NodeID][]round.NodeID
}

func (f *fixed) Weights(self round.NodeID, _, _ int) (round.Weights, error) {
	w := make(round.Weights, len(f.assigned[self]))
	for _, id := range f.assigned[self] {
		w[id] = 1
	}

	return w.Normalize(), nil
}
