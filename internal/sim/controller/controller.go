// Package controller runs one tick of the colony: config, reclaim, population
// scheduling and action interpretation over a single memory session.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/metrics"
	"hivectl.ai/internal/sim/config"
	"hivectl.ai/internal/sim/interp"
	"hivectl.ai/internal/sim/reclaim"
	"hivectl.ai/internal/sim/spawn"
	"hivectl.ai/internal/sim/world"
)

type Options struct {
	Log     zerolog.Logger
	Tuning  interp.Tuning
	Metrics *metrics.Metrics // optional
	Sinks   []TickSink
	// Names overrides the agent name pool.
	Names []string
}

type Controller struct {
	store   memory.Store
	log     zerolog.Logger
	metrics *metrics.Metrics
	sinks   []TickSink

	interp  *interp.Interpreter
	sched   *spawn.Scheduler
	reclaim *reclaim.Reclaimer
}

func New(store memory.Store, opts Options) *Controller {
	sched := spawn.New(opts.Log.With().Str("component", "spawn").Logger())
	if len(opts.Names) > 0 {
		sched.WithNames(opts.Names)
	}
	return &Controller{
		store:   store,
		log:     opts.Log.With().Str("component", "controller").Logger(),
		metrics: opts.Metrics,
		sinks:   opts.Sinks,
		interp:  interp.New(opts.Log.With().Str("component", "interp").Logger(), opts.Tuning),
		sched:   sched,
		reclaim: reclaim.New(opts.Log.With().Str("component", "reclaim").Logger()),
	}
}

// Tick runs one full controller pass against w. Failures confined to one
// entity are logged and recorded in the entry; the returned error reports
// store level failures only. The entry is emitted to every sink either way.
func (c *Controller) Tick(ctx context.Context, w world.World) (TickLogEntry, error) {
	start := time.Now()
	tick := w.Tick()
	log := c.log.With().Uint64("tick", tick).Logger()
	entry := TickLogEntry{Tick: tick}
	var errs []error

	cfg, err := config.Load(ctx, c.store)
	if err != nil {
		if errors.Is(err, config.ErrMissing) {
			log.Debug().Msg("no config, population scheduling skipped")
		} else {
			log.Warn().Err(err).Msg("config rejected, population scheduling skipped")
		}
		entry.ConfigError = err.Error()
		cfg = nil
	}

	swept, err := c.reclaim.Sweep(ctx, w, c.store)
	if err != nil {
		log.Error().Err(err).Msg("reclaim failed")
		errs = append(errs, err)
	}
	if n := swept.Total(); n > 0 {
		entry.Reclaimed = map[string]int{}
		for ns, k := range swept {
			if k > 0 {
				entry.Reclaimed[string(ns)] = k
			}
		}
		log.Info().Int("records", n).Msg("reclaimed stale memory")
	}

	sess := memory.NewSession(ctx, c.store)

	creeps := w.Creeps()
	sort.Slice(creeps, func(i, j int) bool { return creeps[i].Name < creeps[j].Name })
	entry.Agents = len(creeps)
	records := make(map[string]*memory.AgentRecord, len(creeps))
	roster := spawn.Roster{}
	for _, cr := range creeps {
		rec, err := sess.Agent(cr.Name)
		if err != nil {
			log.Warn().Err(err).Str("agent", cr.Name).Msg("agent record unreadable, skipping agent")
			entry.Skipped = append(entry.Skipped, string(memory.Creeps)+"/"+cr.Name)
			continue
		}
		records[cr.Name] = rec
		roster[cr.Name] = rec.Role
	}

	rooms := append([]string(nil), w.Rooms()...)
	sort.Strings(rooms)
	for _, room := range rooms {
		if _, err := sess.Room(room); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("room record unreadable, skipping room")
			entry.Skipped = append(entry.Skipped, string(memory.Rooms)+"/"+room)
			continue
		}
		if cfg == nil {
			continue
		}
		req, skip, err := c.sched.Run(w, room, cfg, roster, sess)
		if err != nil {
			log.Error().Err(err).Str("room", room).Msg("spawn scheduling failed")
			entry.Errors = append(entry.Errors, err.Error())
			continue
		}
		entry.Spawns = append(entry.Spawns, spawnEntry(room, req, skip))
		if req != nil && c.metrics != nil {
			c.metrics.SpawnRequestsTotal.WithLabelValues(room, string(req.Code)).Inc()
		}
	}

	for _, cr := range creeps {
		rec, ok := records[cr.Name]
		if !ok || cr.Spawning {
			continue
		}
		res := c.interp.Run(w, cr, rec)
		if res.Outcome == interp.OutcomeIdle {
			continue
		}
		entry.Actions = append(entry.Actions, ActionEntry{
			Agent:    cr.Name,
			Kind:     string(res.Kind),
			Outcome:  string(res.Outcome),
			Code:     string(res.Code),
			Injected: res.Injected,
		})
		if c.metrics != nil {
			c.metrics.ActionsTotal.WithLabelValues(string(res.Kind), string(res.Outcome)).Inc()
			if res.Injected {
				c.metrics.InjectedMovesTotal.Inc()
			}
		}
	}

	if err := sess.Close(); err != nil {
		log.Error().Err(err).Msg("memory commit failed")
		errs = append(errs, err)
	}
	entry.Writes = sess.Writes()
	for _, e := range errs {
		entry.Errors = append(entry.Errors, e.Error())
	}

	c.observe(entry, time.Since(start))
	for _, s := range c.sinks {
		if err := s.WriteTick(entry); err != nil {
			log.Warn().Err(err).Msg("tick sink failed")
		}
	}
	if len(errs) > 0 {
		return entry, fmt.Errorf("tick %d: %w", tick, errors.Join(errs...))
	}
	return entry, nil
}

func (c *Controller) observe(e TickLogEntry, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.TicksTotal.Inc()
	c.metrics.TickDuration.Observe(d.Seconds())
	c.metrics.Agents.Set(float64(e.Agents))
	c.metrics.StoreWritesTotal.Add(float64(e.Writes))
	for ns, n := range e.Reclaimed {
		c.metrics.ReclaimedTotal.WithLabelValues(ns).Add(float64(n))
	}
}

func spawnEntry(room string, req *spawn.Request, skip spawn.Skip) SpawnEntry {
	if req == nil {
		return SpawnEntry{Room: room, Skip: string(skip)}
	}
	return SpawnEntry{
		Room:  room,
		Spawn: req.Spawn,
		Name:  req.Name,
		Role:  string(req.Role),
		Equip: req.Equip,
		Code:  string(req.Code),
	}
}
