package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/persistence/snapshot"
	"hivectl.ai/internal/persistence/sqlitestore"
	"hivectl.ai/internal/sim/config"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--quiet"}, args...))
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestRunMemoryStore(t *testing.T) {
	data := t.TempDir()
	sum, err := run(context.Background(), zerolog.Nop(), runOptions{
		scenario: "testdata/colony.yaml",
		dataDir:  data,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, sum.Ticks)
	assert.Equal(t, uint64(1), sum.FirstTick)
	assert.Equal(t, uint64(10), sum.LastTick)
	assert.Zero(t, sum.Failures)
	assert.Zero(t, sum.Resets)
	assert.Equal(t, filepath.Join(data, "snapshots", "10.snap.zst"), sum.Snapshot)

	snap, err := snapshot.ReadSnapshot(sum.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), snap.Header.Tick)

	var creeps, flags int
	for _, r := range snap.Records {
		switch memory.Namespace(r.Namespace) {
		case memory.Creeps:
			creeps++
		case memory.Flags:
			flags++
		}
	}
	assert.Equal(t, 1, creeps, "one harvester spawned")
	assert.Zero(t, flags, "stale flag memory reclaimed")
}

func TestRunSQLiteAndInspect(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "hive.db")
	data := filepath.Join(dir, "data")

	out := execute(t, "run", "-s", "testdata/colony.yaml", "--db", db, "--data", data, "--ticks", "5", "--snapshot-every", "2")
	assert.Contains(t, out, "ticks=5 first=1 last=5 failures=0 resets=0")

	for _, tick := range []string{"2", "4", "5"} {
		assert.FileExists(t, filepath.Join(data, "snapshots", tick+".snap.zst"))
	}

	keys := execute(t, "inspect", "--db", db, "keys", "config", "flags")
	assert.Equal(t, "config/config\n", keys)

	cfg := execute(t, "inspect", "--db", db, "get", "config", "config")
	assert.Contains(t, cfg, "roles_to_spawn")

	ticks := execute(t, "inspect", "--db", db, "ticks", "-n", "2")
	lines := strings.Split(strings.TrimSpace(ticks), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "tick=5 "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "tick=4 "), lines[1])

	logs := execute(t, "inspect", "log", data)
	assert.Len(t, strings.Split(strings.TrimSpace(logs), "\n"), 5)

	header := execute(t, "inspect", "snapshot", filepath.Join(data, "snapshots", "4.snap.zst"))
	assert.True(t, strings.HasPrefix(header, "version=1 tick=4 "), header)
}

func TestRunKeepsPopulatedStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db := filepath.Join(dir, "hive.db")

	execute(t, "run", "-s", "testdata/colony.yaml", "--db", db, "--ticks", "3")

	store, err := sqlitestore.OpenSQLite(db)
	require.NoError(t, err)
	edited := `{"roles_to_spawn":{},"equip":{}}`
	require.NoError(t, store.Set(ctx, memory.Config, config.Key, []byte(edited)))
	require.NoError(t, store.Close())

	// The second run must not reseed over the edited config.
	execute(t, "run", "-s", "testdata/colony.yaml", "--db", db, "--ticks", "1")
	got := execute(t, "inspect", "--db", db, "get", "config", config.Key)
	assert.JSONEq(t, edited, got)
}

func TestResumeLatestSnapshot(t *testing.T) {
	data := t.TempDir()
	_, err := run(context.Background(), zerolog.Nop(), runOptions{scenario: "testdata/colony.yaml", dataDir: data, ticks: 2})
	require.NoError(t, err)
	_, err = run(context.Background(), zerolog.Nop(), runOptions{scenario: "testdata/colony.yaml", dataDir: data, ticks: 7})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(data, "snapshots", "7.snap.zst"), latestSnapshot(filepath.Join(data, "snapshots")))

	sum, err := run(context.Background(), zerolog.Nop(), runOptions{scenario: "testdata/colony.yaml", dataDir: data, ticks: 1, resume: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Ticks)
}

func TestInspectRequiresDB(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--quiet", "inspect", "keys"})
	assert.ErrorContains(t, cmd.Execute(), "--db is required")
}

func TestRunRequiresScenario(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--quiet", "run"})
	assert.Error(t, cmd.Execute())
}
