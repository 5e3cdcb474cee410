package sqlitestore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/sim/actions"
	"hivectl.ai/internal/sim/body"
	"hivectl.ai/internal/sim/controller"
	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/hostsim"
	"hivectl.ai/internal/sim/roles"
	"hivectl.ai/internal/sim/world"
)

func open(t *testing.T, path string) *Store {
	t.Helper()
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	return s
}

func TestRecordsCRUD(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "mem.db"))
	defer s.Close()

	_, ok, err := s.Get(ctx, memory.Creeps, "ada")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, memory.Creeps, "bea", []byte(`{"role":"T","actions":[]}`)))
	require.NoError(t, s.Set(ctx, memory.Creeps, "ada", []byte(`{"role":"H","actions":[]}`)))
	require.NoError(t, s.Set(ctx, memory.Creeps, "ada", []byte(`{"role":"U","actions":[]}`)))
	require.NoError(t, s.Set(ctx, memory.Flags, "rally", []byte(`{}`)))

	b, ok, err := s.Get(ctx, memory.Creeps, "ada")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"role":"U","actions":[]}`, string(b))

	keys, err := s.Keys(ctx, memory.Creeps)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "bea"}, keys)

	require.NoError(t, s.Delete(ctx, memory.Creeps, "ada"))
	require.NoError(t, s.Delete(ctx, memory.Creeps, "nobody"))
	keys, err = s.Keys(ctx, memory.Creeps)
	require.NoError(t, err)
	assert.Equal(t, []string{"bea"}, keys)

	keys, err = s.Keys(ctx, memory.Rooms)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mem.db")
	s := open(t, path)
	rec := memory.AgentRecord{Role: roles.Builder, Actions: []actions.Action{actions.GoTo(geom.Pos{Room: "W1N1", X: 3, Y: 4})}}
	b, err := memory.Encode(&rec)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, memory.Creeps, "ada", b))
	require.NoError(t, s.Close())

	s = open(t, path)
	defer s.Close()
	raw, ok, err := s.Get(ctx, memory.Creeps, "ada")
	require.NoError(t, err)
	require.True(t, ok)
	got, err := memory.Decode[memory.AgentRecord](raw)
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
}

func TestTickIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mem.db")
	s := open(t, path)
	for tick := uint64(1); tick <= 5; tick++ {
		require.NoError(t, s.WriteTick(controller.TickLogEntry{
			Tick:    tick,
			Agents:  2,
			Actions: []controller.ActionEntry{{Agent: "ada", Kind: "HARVEST", Outcome: "pending"}},
			Spawns:  []controller.SpawnEntry{{Room: "W1N1", Name: "Bea", Code: "OK"}, {Room: "W2N1", Skip: "satisfied"}},
			Writes:  1,
		}))
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.WriteTick(controller.TickLogEntry{Tick: 99}))

	s = open(t, path)
	defer s.Close()
	rows, err := s.RecentTicks(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, uint64(5), rows[0].Tick)
	assert.Equal(t, uint64(3), rows[2].Tick)
	assert.Equal(t, 1, rows[0].Actions)
	assert.Equal(t, 1, rows[0].Spawns)
	assert.Equal(t, "ada", rows[0].Entry.Actions[0].Agent)
	assert.Zero(t, s.Dropped())
}

func TestWriteTickRacesClose(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "mem.db"))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			<-start
			for i := 0; i < 200; i++ {
				assert.NoError(t, s.WriteTick(controller.TickLogEntry{Tick: uint64(w*1000 + i)}))
			}
		}(w)
	}
	close(start)
	assert.NoError(t, s.Close())
	wg.Wait()
	assert.NoError(t, s.Close())
}

func TestBacksController(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "mem.db"))
	defer s.Close()

	sim := hostsim.New(1, []string{"W1N1"})
	require.NoError(t, sim.Add(world.Object{
		Name: "ada", Kind: world.KindCreep, My: true,
		Pos:  geom.Pos{Room: "W1N1", X: 1, Y: 1},
		Body: []body.Part{body.Move},
	}))
	rec := memory.AgentRecord{Actions: []actions.Action{actions.GoTo(geom.Pos{Room: "W1N1", X: 2, Y: 2})}}
	b, err := memory.Encode(&rec)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, memory.Creeps, "ada", b))
	require.NoError(t, s.Set(ctx, memory.Creeps, "dead", b))

	ctl := controller.New(s, controller.Options{Log: zerolog.Nop()})
	_, err = ctl.Tick(ctx, sim)
	require.NoError(t, err)
	sim.Advance()
	_, err = ctl.Tick(ctx, sim)
	require.NoError(t, err)

	keys, err := s.Keys(ctx, memory.Creeps)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada"}, keys)
	raw, _, err := s.Get(ctx, memory.Creeps, "ada")
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"","actions":[]}`, string(raw))
}
