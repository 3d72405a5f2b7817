// Package model holds the shareable model state exchanged between nodes and
// the arithmetic used to blend it. The round protocol treats representations
// as opaque; only the aggregator reaches into them, through this package.
package model

import (
	"fmt"
	"maps"
	"slices"
)

// Representation is a node's shareable model state: named parameter tensors.
type Representation map[string][]float64

// Clone returns a deep copy of the representation.
func (r Representation) Clone() Representation {
	out := make(Representation, len(r))
	for k, v := range r {
		out[k] = slices.Clone(v)
	}

	return out
}

// Keys returns the tensor names in sorted order.
func (r Representation) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Zeros returns a representation with the same shape as r and all
// entries zero, skipping the given tensor names.
func Zeros(r Representation, skip map[string]bool) Representation {
	out := make(Representation, len(r))
	for k, v := range r {
		if skip[k] {
			continue
		}
		out[k] = make([]float64, len(v))
	}

	return out
}

// AddScaled accumulates w*src into dst in place. Every tensor present in dst
// must be present in src with the same length.
func AddScaled(dst, src Representation, w float64) error {
	for k, d := range dst {
		s, ok := src[k]
		if !ok {
			return fmt.Errorf("tensor %q missing from source representation", k)
		}
		if len(s) != len(d) {
			return fmt.Errorf("tensor %q size mismatch: %d != %d", k, len(s), len(d))
		}
		for i := range d {
			d[i] += w * s[i]
		}
	}

	return nil
}
