package strategy

import (
	"math"

	"github.com/rodneyosodo/fedcollab/round"
)

// directExpo pairs a node with a single peer at a rotating power-of-two
// offset, so over floor(log2(numUsers-1)) rounds every node reaches an
// exponentially growing set of peers, directly or transitively.
type directExpo struct {
	numUsers int
}

func (d *directExpo) Weights(self round.NodeID, r, _ int) (round.Weights, error) {
	period := int(math.Floor(math.Log2(float64(d.numUsers - 1))))
	power := r % period
	step := int(math.Pow(2, float64(power)))
	peer := round.NodeID((int(self)+step)%d.numUsers + 1)

	w := round.Weights{self: 1, peer: 1}

	return w.Normalize(), nil
}
