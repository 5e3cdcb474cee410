package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivectl.ai/internal/sim/actions"
	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/roles"
	"hivectl.ai/internal/sim/world"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, found, err := s.Get(ctx, Creeps, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, Creeps, "b", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, Creeps, "a", []byte(`{}`)))
	keys, err := s.Keys(ctx, Creeps)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, s.Delete(ctx, Creeps, "a"))
	require.NoError(t, s.Delete(ctx, Creeps, "missing"))
	keys, err = s.Keys(ctx, Creeps)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)

	empty, err := s.Keys(ctx, Flags)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAgentRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  AgentRecord
	}{
		{"empty queue", AgentRecord{Role: roles.Harvester, Actions: []actions.Action{}}},
		{"nil queue", AgentRecord{Role: roles.Builder}},
		{"full queue", AgentRecord{Role: roles.Transporter, Actions: []actions.Action{
			actions.GoToRanged(geom.Pos{Room: "W1N1", X: 4, Y: 9}, 1),
			actions.TransferAmount("spawn1", world.Energy, 50),
			actions.AttackRangedMass(),
		}}},
		{"unknown role", AgentRecord{Role: roles.Role("Q"), Actions: []actions.Action{actions.On(actions.KindHarvest, "src")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.rec
			b, err := Encode(&in)
			require.NoError(t, err)
			out, err := Decode[AgentRecord](b)
			require.NoError(t, err)
			assert.Equal(t, in, *out)
			require.NotNil(t, out.Actions)
		})
	}
}

func TestEmptyQueueEncodesAsEmptyList(t *testing.T) {
	b, err := Encode(&AgentRecord{Role: roles.Upgrader})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"U","actions":[]}`, string(b))
}

func TestDecodeDefaults(t *testing.T) {
	rec, err := Decode[AgentRecord]([]byte(`{"role":"H"}`))
	require.NoError(t, err)
	assert.Equal(t, roles.Harvester, rec.Role)
	assert.NotNil(t, rec.Actions)
	assert.Empty(t, rec.Actions)

	rec, err = Decode[AgentRecord](nil)
	require.NoError(t, err)
	assert.Equal(t, roles.Generic, rec.Role)

	room, err := Decode[RoomRecord]([]byte(`{"forts":[{"room":"W1N1","x":1,"y":1}]}`))
	require.NoError(t, err)
	assert.Len(t, room.Forts, 1)
	assert.NotNil(t, room.Mines)
	assert.NotNil(t, room.RepairBlacklist)

	_, err = Decode[AgentRecord]([]byte(`{"actions":"nope"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestQueueOps(t *testing.T) {
	r := &AgentRecord{}
	_, ok := r.Head()
	assert.False(t, ok)
	r.Pop()

	r.Push(actions.On(actions.KindHarvest, "src"), actions.On(actions.KindBuild, "site"))
	r.PushFront(actions.GoToRoom("W2N1"))
	head, ok := r.Head()
	require.True(t, ok)
	assert.Equal(t, actions.KindGoToRoom, head.Kind)
	assert.Equal(t, 3, r.Len())

	r.Pop()
	head, _ = r.Head()
	assert.Equal(t, actions.KindHarvest, head.Kind)

	r.Replace([]actions.Action{actions.AttackRangedMass()})
	assert.Equal(t, 1, r.Len())
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.NotNil(t, r.Actions)
}

func TestSessionCheckoutOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	s := NewSession(ctx, store)

	_, err := s.Agent("alice")
	require.NoError(t, err)
	_, err = s.Agent("alice")
	assert.ErrorIs(t, err, ErrCheckedOut)
	assert.True(t, s.Held(Creeps, "alice"))

	require.NoError(t, s.Commit(Creeps, "alice"))
	assert.False(t, s.Held(Creeps, "alice"))
	_, err = s.Agent("alice")
	require.NoError(t, err)
}

func TestSessionWritesOnlyChanges(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	require.NoError(t, store.Set(ctx, Creeps, "idle", []byte(`{"role":"H","actions":[]}`)))
	require.NoError(t, store.Set(ctx, Creeps, "busy", []byte(`{"role":"H","actions":[]}`)))

	s := NewSession(ctx, store)
	_, err := s.Agent("idle")
	require.NoError(t, err)
	busy, err := s.Agent("busy")
	require.NoError(t, err)
	busy.Push(actions.On(actions.KindHarvest, "src"))
	_, err = s.Agent("ghost")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, s.Writes())

	_, found, err := store.Get(ctx, Creeps, "ghost")
	require.NoError(t, err)
	assert.False(t, found)

	raw, _, err := store.Get(ctx, Creeps, "busy")
	require.NoError(t, err)
	got, err := Decode[AgentRecord](raw)
	require.NoError(t, err)
	assert.Len(t, got.Actions, 1)

	_, err = s.Agent("busy")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionCreateAndDiscard(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	require.NoError(t, store.Set(ctx, Creeps, "taken", []byte(`{}`)))

	s := NewSession(ctx, store)
	assert.ErrorIs(t, s.CreateAgent("taken", &AgentRecord{}), ErrExists)

	require.NoError(t, s.CreateAgent("kept", &AgentRecord{Role: roles.Harvester}))
	require.NoError(t, s.CreateAgent("dropped", &AgentRecord{Role: roles.Builder}))
	assert.ErrorIs(t, s.CreateAgent("kept", &AgentRecord{}), ErrCheckedOut)
	s.Discard(Creeps, "dropped")
	require.NoError(t, s.Close())

	raw, found, err := store.Get(ctx, Creeps, "kept")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"role":"H","actions":[]}`, string(raw))

	_, found, err = store.Get(ctx, Creeps, "dropped")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionMalformed(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	require.NoError(t, store.Set(ctx, Creeps, "bad", []byte(`[1,2`)))
	s := NewSession(ctx, store)
	_, err := s.Agent("bad")
	assert.ErrorIs(t, err, ErrMalformed)
	assert.False(t, s.Held(Creeps, "bad"))
	require.NoError(t, s.Close())

	raw, _, _ := store.Get(ctx, Creeps, "bad")
	assert.Equal(t, `[1,2`, string(raw))
}
