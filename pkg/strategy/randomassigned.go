package strategy

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/round"
)

// randomAmongAssigned samples numCollaborators distinct peers without
// replacement from the node's assigned universe and always includes self.
type randomAmongAssigned struct {
	assigned map[round.NodeID][]round.NodeID

	mu  sync.Mutex
	rng *rand.Rand
}

func newRandomAmongAssigned(assigned map[round.NodeID][]round.NodeID, seed int64) *randomAmongAssigned {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &randomAmongAssigned{
		assigned: assigned,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (s *randomAmongAssigned) Weights(self round.NodeID, _, numCollaborators int) (round.Weights, error) {
	universe := s.assigned[self]
	if numCollaborators > len(universe) {
		return nil, fmt.Errorf("cannot sample %d collaborators from universe of %d: %w",
			numCollaborators, len(universe), pkgerrors.ErrInvalidConfig)
	}

	s.mu.Lock()
	order := s.rng.Perm(len(universe))
	s.mu.Unlock()

	w := make(round.Weights, numCollaborators+1)
	for _, i := range order[:numCollaborators] {
		w[universe[i]] = 1
	}
	w[self] = 1

	return w.Normalize(), nil
}
