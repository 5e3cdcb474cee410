package controller

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/metrics"
	"hivectl.ai/internal/sim/actions"
	"hivectl.ai/internal/sim/hostsim"
	"hivectl.ai/internal/sim/world"
)

// flakyWorld panics on the first Creeps call.
type flakyWorld struct {
	*hostsim.Sim
	panics int
}

func (w *flakyWorld) Creeps() []world.Object {
	if w.panics > 0 {
		w.panics--
		panic("snapshot torn")
	}
	return w.Sim.Creeps()
}

type failureRecorder struct{ got []FailureEntry }

func (r *failureRecorder) WriteFailure(f FailureEntry) error {
	r.got = append(r.got, f)
	return nil
}

func TestRunnerRecoversPanicAndResets(t *testing.T) {
	ctx := context.Background()
	sim := colony(t)
	addWorker(t, sim, "ada", at(10, 10))
	store := memory.NewMemStore()
	putAgent(t, store, "ada", memory.AgentRecord{Actions: []actions.Action{actions.GoTo(at(15, 10))}})

	builds := 0
	m := metrics.NewMetrics()
	fails := &failureRecorder{}
	r := NewRunner(zerolog.Nop(), m, func() *Controller {
		builds++
		return newController(store)
	}, fails)
	w := &flakyWorld{Sim: sim, panics: 1}

	_, err := r.Step(ctx, w)
	require.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, 1, r.Resets())
	assert.Equal(t, 2, builds)
	require.Len(t, fails.got, 1)
	assert.Equal(t, "panic", fails.got[0].Kind)
	assert.Contains(t, fails.got[0].Error, "snapshot torn")
	assert.NotEmpty(t, fails.got[0].Stack)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TickFailuresTotal.WithLabelValues("panic")))

	entry, err := r.Step(ctx, w)
	require.NoError(t, err)
	require.Len(t, entry.Actions, 1)
	assert.Equal(t, 1, r.Resets())
}

func TestRunnerResetsOnError(t *testing.T) {
	sim := colony(t)
	addWorker(t, sim, "ada", at(10, 10))
	store := newCountingStore()
	putAgent(t, store, "ada", memory.AgentRecord{Actions: []actions.Action{actions.GoTo(at(10, 10))}})
	store.failSet = errors.New("read only")

	fails := &failureRecorder{}
	r := NewRunner(zerolog.Nop(), nil, func() *Controller { return newController(store) }, fails)
	_, err := r.Step(context.Background(), sim)
	require.Error(t, err)
	assert.Equal(t, 1, r.Resets())
	require.Len(t, fails.got, 1)
	assert.Equal(t, "error", fails.got[0].Kind)
	assert.Contains(t, fails.got[0].Chain, "read only")
}

func TestChain(t *testing.T) {
	base := errors.New("disk")
	other := errors.New("net")
	err := fmt.Errorf("tick 5: %w", errors.Join(fmt.Errorf("commit creeps/a: %w", base), other))
	assert.Equal(t, []string{
		err.Error(),
		"commit creeps/a: disk\nnet",
		"commit creeps/a: disk",
		"disk",
		"net",
	}, Chain(err))
	assert.Nil(t, Chain(nil))
}
