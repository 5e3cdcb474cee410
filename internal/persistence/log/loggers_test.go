package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hivectl.ai/internal/sim/controller"
)

func TestTickLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for tick := uint64(1); tick <= 3; tick++ {
		require.NoError(t, l.WriteTick(controller.TickLogEntry{Tick: tick, Agents: int(tick)}))
	}
	require.NoError(t, l.Close())

	files, err := Files(dir+"/ticks", "ticks")
	require.NoError(t, err)
	require.Len(t, files, 1)

	var got []uint64
	require.NoError(t, ReadJSONL(files[0], func(e controller.TickLogEntry) error {
		got = append(got, e.Tick)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 3}, got)
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w := NewJSONLZstdWriter(dir, "x")
	w.now = func() time.Time { return now }

	require.NoError(t, w.Write(map[string]int{"n": 1}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, w.Write(map[string]int{"n": 2}))
	require.NoError(t, w.Write(map[string]int{"n": 3}))
	require.NoError(t, w.Close())

	files, err := Files(dir, "x")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "x-2026-03-01-10.jsonl.zst")
	assert.Contains(t, files[1], "x-2026-03-01-11.jsonl.zst")

	count := func(path string) int {
		n := 0
		require.NoError(t, ReadJSONL(path, func(map[string]int) error { n++; return nil }))
		return n
	}
	assert.Equal(t, 1, count(files[0]))
	assert.Equal(t, 2, count(files[1]))
}

func TestWriterAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "x")
		w.now = func() time.Time { return now }
		require.NoError(t, w.Write(map[string]int{"n": i}))
		require.NoError(t, w.Close())
	}
	files, err := Files(dir, "x")
	require.NoError(t, err)
	require.Len(t, files, 1)

	var got []int
	require.NoError(t, ReadJSONL(files[0], func(v map[string]int) error {
		got = append(got, v["n"])
		return nil
	}))
	assert.Equal(t, []int{0, 1}, got)
}

func TestReadJSONLStopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	l := NewFailureLogger(dir)
	require.NoError(t, l.WriteFailure(controller.FailureEntry{Tick: 1, Kind: "panic", Error: "boom"}))
	require.NoError(t, l.WriteFailure(controller.FailureEntry{Tick: 2, Kind: "error", Error: "store"}))
	require.NoError(t, l.Close())

	files, err := Files(dir+"/failures", "failures")
	require.NoError(t, err)
	require.Len(t, files, 1)

	stop := errors.New("stop")
	var seen []controller.FailureEntry
	err = ReadJSONL(files[0], func(f controller.FailureEntry) error {
		seen = append(seen, f)
		return stop
	})
	assert.ErrorIs(t, err, stop)
	require.Len(t, seen, 1)
	assert.Equal(t, "panic", seen[0].Kind)
	assert.Equal(t, "boom", seen[0].Error)
}

var (
	_ controller.TickSink    = (*TickLogger)(nil)
	_ controller.FailureSink = (*FailureLogger)(nil)
)
