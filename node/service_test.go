package node

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodneyosodo/fedcollab"
	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/pkg/messenger"
	"github.com/rodneyosodo/fedcollab/pkg/model"
	"github.com/rodneyosodo/fedcollab/round"
)

// fakeTrainer records every blended representation it is handed so tests can
// tell whether aggregation happened at all.
type fakeTrainer struct {
	mu       sync.Mutex
	repr     model.Representation
	setCalls []model.Representation
}

func (f *fakeTrainer) Train(_ context.Context, _ int) (float64, float64, error) {
	return 0.5, 0.8, nil
}

func (f *fakeTrainer) Test(_ context.Context) (float64, error) {
	return 0.7, nil
}

func (f *fakeTrainer) Weights() model.Representation {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.repr.Clone()
}

func (f *fakeTrainer) SetWeights(repr model.Representation, _ map[string]bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.repr = repr
	f.setCalls = append(f.setCalls, repr.Clone())
}

func testConfig(assigned map[string][]int) fedcollab.Config {
	return fedcollab.Config{
		Strategy:              "fixed",
		NumUsers:              2,
		AssignedCollaborators: assigned,
		Rounds:                1,
		StartRound:            0,
		EpochsPerRound:        1,
		T0:                    0,
		TargetUsersBeforeT0:   1,
		TargetUsersAfterT0:    1,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewServiceRejectsBadID(t *testing.T) {
	cfg := testConfig(map[string][]int{"1": {2}, "2": {1}})

	_, err := NewService(0, cfg, &fakeTrainer{}, nil, discardLogger())
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)

	_, err = NewService(3, cfg, &fakeTrainer{}, nil, discardLogger())
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)
}

func TestRunAggregates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := testConfig(map[string][]int{"1": {1, 2}, "2": {1, 2}})
	hub := messenger.NewHub(cfg.NodeIDs())

	trainer := &fakeTrainer{repr: model.Representation{"w": {0, 0}}}
	svc, err := NewService(1, cfg, trainer, hub.Endpoint(1), discardLogger())
	require.NoError(t, err)

	stats := driveCoordinator(t, ctx, hub, 0, map[round.NodeID]model.Representation{
		1: {"w": {0, 0}},
		2: {"w": {2, 4}},
	})

	require.NoError(t, svc.Run(ctx))

	require.Len(t, trainer.setCalls, 1)
	assert.Equal(t, model.Representation{"w": {1, 2}}, trainer.setCalls[0])

	st := <-stats
	assert.Equal(t, round.NodeID(1), st.NodeID)
	assert.Equal(t, 0, st.Round)
	assert.Equal(t, []float64{0.5, 0.5}, st.CollabWeights)
	assert.Equal(t, 0.7, st.TestAccBefore)
	assert.Equal(t, 0.5, st.TrainLoss)
	assert.Equal(t, 0.8, st.TrainAcc)
}

func TestRunSkipsAggregationWhenAlone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := testConfig(map[string][]int{"1": {1}, "2": {1, 2}})
	hub := messenger.NewHub(cfg.NodeIDs())

	trainer := &fakeTrainer{repr: model.Representation{"w": {9, 9}}}
	svc, err := NewService(1, cfg, trainer, hub.Endpoint(1), discardLogger())
	require.NoError(t, err)

	stats := driveCoordinator(t, ctx, hub, 0, map[round.NodeID]model.Representation{
		1: {"w": {9, 9}},
		2: {"w": {2, 4}},
	})

	require.NoError(t, svc.Run(ctx))

	// A sole-self collaborator set leaves the model untouched; training and
	// stats reporting still happen.
	assert.Empty(t, trainer.setCalls)

	st := <-stats
	assert.Equal(t, []float64{1, 0}, st.CollabWeights)
	assert.Equal(t, 0.7, st.TestAccBefore)
}

func TestRunRejectsRoundMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := testConfig(map[string][]int{"1": {1, 2}, "2": {1, 2}})
	hub := messenger.NewHub(cfg.NodeIDs())

	svc, err := NewService(1, cfg, &fakeTrainer{repr: model.Representation{"w": {0}}}, hub.Endpoint(1), discardLogger())
	require.NoError(t, err)

	coord := hub.Endpoint(round.CoordinatorID)
	start, err := round.Encode(round.Start{Round: 3})
	require.NoError(t, err)
	require.NoError(t, coord.Send(ctx, 1, messenger.TagRoundStart, start))

	err = svc.Run(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrProtocol)
}

func TestRunRejectsShortSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := testConfig(map[string][]int{"1": {1, 2}, "2": {1, 2}})
	hub := messenger.NewHub(cfg.NodeIDs())

	svc, err := NewService(1, cfg, &fakeTrainer{repr: model.Representation{"w": {0}}}, hub.Endpoint(1), discardLogger())
	require.NoError(t, err)

	coord := hub.Endpoint(round.CoordinatorID)

	go func() {
		start, err := round.Encode(round.Start{Round: 0})
		assert.NoError(t, err)
		assert.NoError(t, coord.Send(ctx, 1, messenger.TagRoundStart, start))

		_, err = coord.Receive(ctx, 1, messenger.TagReprAdvert)
		assert.NoError(t, err)

		snapshot, err := round.Encode(round.Snapshot{Round: 0, Reprs: map[round.NodeID]model.Representation{
			1: {"w": {0}},
		}})
		assert.NoError(t, err)
		assert.NoError(t, coord.Send(ctx, 1, messenger.TagReprsShare, snapshot))
	}()

	err = svc.Run(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrProtocol)
}

// driveCoordinator plays the coordinator's half of a single round against
// node 1 and returns the stats it reports.
func driveCoordinator(t *testing.T, ctx context.Context, hub *messenger.Hub, r int, reprs map[round.NodeID]model.Representation) <-chan round.Stats {
	t.Helper()

	coord := hub.Endpoint(round.CoordinatorID)
	stats := make(chan round.Stats, 1)

	go func() {
		start, err := round.Encode(round.Start{Round: r})
		assert.NoError(t, err)
		assert.NoError(t, coord.Send(ctx, 1, messenger.TagRoundStart, start))

		_, err = coord.Receive(ctx, 1, messenger.TagReprAdvert)
		assert.NoError(t, err)

		snapshot, err := round.Encode(round.Snapshot{Round: r, Reprs: reprs})
		assert.NoError(t, err)
		assert.NoError(t, coord.Send(ctx, 1, messenger.TagReprsShare, snapshot))

		data, err := coord.Receive(ctx, 1, messenger.TagRoundStats)
		assert.NoError(t, err)

		var st round.Stats
		assert.NoError(t, round.Decode(data, &st))
		stats <- st
	}()

	return stats
}
