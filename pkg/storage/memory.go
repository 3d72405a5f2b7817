package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/round"
)

type inMemoryRounds struct {
	sync.Mutex

	data map[int][]round.Stats
}

// NewInMemoryRounds returns a Rounds store backed by a process-local map.
func NewInMemoryRounds() Rounds {
	return &inMemoryRounds{
		data: make(map[int][]round.Stats),
	}
}

func (s *inMemoryRounds) Save(_ context.Context, r int, stats []round.Stats) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.data[r]; ok {
		return errors.ErrEntityExists
	}

	s.data[r] = slices.Clone(stats)

	return nil
}

func (s *inMemoryRounds) Get(_ context.Context, r int) ([]round.Stats, error) {
	s.Lock()
	defer s.Unlock()

	if stats, ok := s.data[r]; ok {
		return slices.Clone(stats), nil
	}

	return nil, errors.ErrNotFound
}

func (s *inMemoryRounds) List(_ context.Context) ([][]round.Stats, error) {
	s.Lock()
	defer s.Unlock()

	keys := make([]int, 0, len(s.data))
	for r := range s.data {
		keys = append(keys, r)
	}
	slices.Sort(keys)

	result := make([][]round.Stats, len(keys))
	for i, r := range keys {
		result[i] = slices.Clone(s.data[r])
	}

	return result, nil
}
