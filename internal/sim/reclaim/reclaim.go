// Package reclaim deletes persisted records whose owner no longer exists.
package reclaim

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"hivectl.ai/internal/memory"
)

// Env reports the names that are live this tick.
type Env interface {
	CreepNames() []string
	SpawnNames() []string
	FlagNames() []string
}

// Counts is the number of records deleted per namespace.
type Counts map[memory.Namespace]int

func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

type Reclaimer struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Reclaimer {
	return &Reclaimer{log: log}
}

// Sweep removes every record in the creeps, spawns and flags namespaces whose
// key is not live. It is idempotent and does not depend on visit order. A
// failed delete does not stop the sweep; all failures are returned joined.
func (r *Reclaimer) Sweep(ctx context.Context, env Env, store memory.Store) (Counts, error) {
	out := Counts{}
	var errs []error
	for _, pass := range []struct {
		ns   memory.Namespace
		live []string
	}{
		{memory.Creeps, env.CreepNames()},
		{memory.Spawns, env.SpawnNames()},
		{memory.Flags, env.FlagNames()},
	} {
		n, err := r.sweep(ctx, store, pass.ns, pass.live)
		out[pass.ns] = n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

func (r *Reclaimer) sweep(ctx context.Context, store memory.Store, ns memory.Namespace, live []string) (int, error) {
	keys, err := store.Keys(ctx, ns)
	if err != nil {
		return 0, fmt.Errorf("reclaim %s: %w", ns, err)
	}
	alive := make(map[string]struct{}, len(live))
	for _, k := range live {
		alive[k] = struct{}{}
	}
	n := 0
	var errs []error
	for _, k := range keys {
		if _, ok := alive[k]; ok {
			continue
		}
		if err := store.Delete(ctx, ns, k); err != nil {
			errs = append(errs, fmt.Errorf("reclaim %s/%s: %w", ns, k, err))
			continue
		}
		r.log.Debug().Str("ns", string(ns)).Str("key", k).Msg("reclaimed stale record")
		n++
	}
	return n, errors.Join(errs...)
}
