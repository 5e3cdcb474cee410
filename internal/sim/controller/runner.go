package controller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"hivectl.ai/internal/metrics"
	"hivectl.ai/internal/sim/world"
)

var ErrPanic = errors.New("tick panicked")

// Runner is the host side wrapper around a Controller. Nothing escapes Step:
// a panic or error is logged with its cause chain and the controller is
// rebuilt before the next tick. The store is never rolled back.
type Runner struct {
	build   func() *Controller
	ctl     *Controller
	log     zerolog.Logger
	metrics *metrics.Metrics
	fail    []FailureSink
	resets  int
}

func NewRunner(log zerolog.Logger, m *metrics.Metrics, build func() *Controller, fail ...FailureSink) *Runner {
	return &Runner{
		build:   build,
		ctl:     build(),
		log:     log.With().Str("component", "runner").Logger(),
		metrics: m,
		fail:    fail,
	}
}

// Resets is how many times the controller has been rebuilt.
func (r *Runner) Resets() int { return r.resets }

// Step runs one tick. The error is informational; the caller may keep
// stepping.
func (r *Runner) Step(ctx context.Context, w world.World) (entry TickLogEntry, err error) {
	tick := w.Tick()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
			r.failed(FailureEntry{Tick: tick, Kind: "panic", Error: err.Error(), Chain: Chain(err), Stack: string(debug.Stack())})
		}
	}()
	entry, err = r.ctl.Tick(ctx, w)
	if err != nil {
		r.failed(FailureEntry{Tick: tick, Kind: "error", Error: err.Error(), Chain: Chain(err)})
	}
	return entry, err
}

func (r *Runner) failed(f FailureEntry) {
	r.log.Error().
		Uint64("tick", f.Tick).
		Str("kind", f.Kind).
		Strs("chain", f.Chain).
		Msg("tick failed, resetting controller")
	if r.metrics != nil {
		r.metrics.TickFailuresTotal.WithLabelValues(f.Kind).Inc()
	}
	for _, s := range r.fail {
		if err := s.WriteFailure(f); err != nil {
			r.log.Warn().Err(err).Msg("failure sink failed")
		}
	}
	r.ctl = r.build()
	r.resets++
}

// Chain flattens err and everything it wraps, depth first.
func Chain(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		out = append(out, e.Error())
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, c := range u.Unwrap() {
				walk(c)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}
