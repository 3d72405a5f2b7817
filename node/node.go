// Package node runs the client side of the round protocol: wait for the
// coordinator's start signal, advertise the current representation, receive
// the round snapshot, blend with the chosen collaborators and report stats.
package node

import (
	"context"

	"github.com/rodneyosodo/fedcollab/pkg/model"
)

// Trainer is the external training collaborator. The round protocol never
// interprets model internals; it only moves representations in and out.
type Trainer interface {
	// Train runs local training for the given number of epochs and returns
	// the final loss and accuracy.
	Train(ctx context.Context, epochs int) (loss, acc float64, err error)
	// Test evaluates the current model and returns its accuracy.
	Test(ctx context.Context) (float64, error)
	// Weights returns the node's shareable representation.
	Weights() model.Representation
	// SetWeights adopts a blended representation. Tensors named in
	// ignoreKeys keep their current, node-specific values.
	SetWeights(repr model.Representation, ignoreKeys map[string]bool)
}
