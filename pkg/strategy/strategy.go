// Package strategy computes collaborator weights: which peers a node blends
// with in a given round and how much each contributes. Strategies are
// selected once, at configuration validation time, never re-dispatched
// mid-round.
package strategy

import (
	"fmt"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/round"
)

const (
	Fixed               = "fixed"
	DirectExpo          = "direct_expo"
	RandomAmongAssigned = "random_among_assigned"
)

// Strategy maps a node and a round to a normalized collaborator weight map.
// numCollaborators is the round-dependent target peer count; only sampling
// strategies use it.
type Strategy interface {
	Weights(self round.NodeID, r, numCollaborators int) (round.Weights, error)
}

// Params carries the configuration a strategy needs. Assigned is required
// for Fixed and RandomAmongAssigned; Seed makes sampling reproducible and
// falls back to an entropy-based source when zero.
type Params struct {
	NumUsers       int
	Assigned       map[round.NodeID][]round.NodeID
	MaxTargetUsers int
	Seed           int64
}

// New validates params for the named strategy and returns its
// implementation. Every configuration fault is detected here, before any
// round executes.
func New(name string, p Params) (Strategy, error) {
	if p.NumUsers < 1 {
		return nil, fmt.Errorf("num_users must be positive, got %d: %w", p.NumUsers, pkgerrors.ErrInvalidConfig)
	}

	switch name {
	case Fixed:
		if err := validateAssigned(p); err != nil {
			return nil, err
		}

		return &fixed{assigned: p.Assigned}, nil
	case DirectExpo:
		if p.NumUsers < 3 {
			return nil, fmt.Errorf("direct_expo requires num_users >= 3, got %d: %w", p.NumUsers, pkgerrors.ErrInvalidConfig)
		}

		return &directExpo{numUsers: p.NumUsers}, nil
	case RandomAmongAssigned:
		if err := validateAssigned(p); err != nil {
			return nil, err
		}
		for id, universe := range p.Assigned {
			if p.MaxTargetUsers > len(universe) {
				return nil, fmt.Errorf("target collaborator count %d exceeds assigned universe of node %d (%d): %w",
					p.MaxTargetUsers, id, len(universe), pkgerrors.ErrInvalidConfig)
			}
		}

		return newRandomAmongAssigned(p.Assigned, p.Seed), nil
	default:
		return nil, fmt.Errorf("unrecognized strategy %q: %w", name, pkgerrors.ErrInvalidConfig)
	}
}

func validateAssigned(p Params) error {
	if len(p.Assigned) == 0 {
		return fmt.Errorf("assigned_collaborators is required: %w", pkgerrors.ErrInvalidConfig)
	}
	for id := 1; id <= p.NumUsers; id++ {
		if len(p.Assigned[round.NodeID(id)]) == 0 {
			return fmt.Errorf("node %d has no assigned collaborators: %w", id, pkgerrors.ErrInvalidConfig)
		}
	}

	return nil
}
