package interp

import (
	"github.com/rs/zerolog"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/sim/actions"
	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/world"
)

// Env is the slice of the host the interpreter needs for one tick.
type Env interface {
	Tick() uint64
	Resolve(id string) (world.Object, bool)
	world.Commands
}

type Tuning struct {
	// MissLimit is how many consecutive ticks a target may fail to resolve
	// before its action is dropped.
	MissLimit int `yaml:"miss_limit" json:"miss_limit"`
	// ReserveUntil ends CONTROLLER_RESERVE once the reservation reaches it.
	ReserveUntil int `yaml:"reserve_until" json:"reserve_until"`
	// RenewUntil ends GET_RENEWED once the agent has this many ticks to live.
	RenewUntil int `yaml:"renew_until" json:"renew_until"`
}

func DefaultTuning() Tuning {
	return Tuning{MissLimit: 3, ReserveUntil: 4000, RenewUntil: 1400}
}

func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.MissLimit <= 0 {
		t.MissLimit = d.MissLimit
	}
	if t.ReserveUntil <= 0 {
		t.ReserveUntil = d.ReserveUntil
	}
	if t.RenewUntil <= 0 {
		t.RenewUntil = d.RenewUntil
	}
	return t
}

type Outcome string

const (
	// OutcomeIdle: the queue was empty.
	OutcomeIdle Outcome = "idle"
	// OutcomePending: the head ran and stays queued.
	OutcomePending Outcome = "pending"
	// OutcomeDone: the head reached its completion condition and was popped.
	OutcomeDone Outcome = "done"
	// OutcomeRetry: the head failed and is kept for the next tick.
	OutcomeRetry Outcome = "retry"
	// OutcomeDropped: the head failed permanently and was popped.
	OutcomeDropped Outcome = "dropped"
)

type Result struct {
	Kind    actions.Kind
	Outcome Outcome
	Code    world.Code
	// Injected is set when a GO_TO_RANGED step was pushed and executed.
	Injected bool
}

// maxDepth bounds same-tick re-entry: one synthetic movement step.
const maxDepth = 1

type Interpreter struct {
	log    zerolog.Logger
	tuning Tuning
}

func New(log zerolog.Logger, t Tuning) *Interpreter {
	return &Interpreter{log: log, tuning: t.withDefaults()}
}

// call is one execution of the head action.
type call struct {
	env   Env
	agent world.Object
	rec   *memory.AgentRecord
	act   *actions.Action
	log   zerolog.Logger
}

func (c *call) pop(out Outcome, code world.Code) Result {
	k := c.act.Kind
	c.rec.Pop()
	return Result{Kind: k, Outcome: out, Code: code}
}

func (c *call) pending(code world.Code) Result {
	return Result{Kind: c.act.Kind, Outcome: OutcomePending, Code: code}
}

// settle maps a command result onto the queue: transient failures keep the
// head, permanent ones drop it.
func (c *call) settle(code world.Code) Result {
	switch {
	case code.OK():
		return c.pending(code)
	case code.Transient():
		c.log.Debug().Str("code", string(code)).Msg("command deferred")
		return Result{Kind: c.act.Kind, Outcome: OutcomeRetry, Code: code}
	default:
		c.log.Warn().Str("code", string(code)).Msg("command failed, dropping action")
		return c.pop(OutcomeDropped, code)
	}
}

// Run executes at most one queued action of agent, rewriting rec according to
// the completion rules of the head action.
func (in *Interpreter) Run(env Env, agent world.Object, rec *memory.AgentRecord) Result {
	return in.step(env, agent, rec, 0)
}

func (in *Interpreter) step(env Env, agent world.Object, rec *memory.AgentRecord, depth int) Result {
	act, ok := rec.Head()
	if !ok {
		return Result{Outcome: OutcomeIdle}
	}
	c := &call{
		env:   env,
		agent: agent,
		rec:   rec,
		act:   act,
		log: in.log.With().
			Uint64("tick", env.Tick()).
			Str("agent", agent.Name).
			Str("action", string(act.Kind)).
			Str("target", act.Target).
			Logger(),
	}
	if err := act.Validate(); err != nil {
		c.log.Warn().Err(err).Msg("invalid action, dropping")
		return c.pop(OutcomeDropped, world.ErrInvalidArgs)
	}

	rng, gated := act.Kind.Range()
	if !gated {
		return in.exec(c, world.Object{})
	}

	target, found := env.Resolve(act.Target)
	if !found {
		return in.unresolved(c)
	}
	if act.Misses != 0 {
		act.Misses = 0
	}
	if geom.Range(agent.Pos, target.Pos) > rng {
		if depth >= maxDepth {
			return c.pending(world.ErrNotInRange)
		}
		kind := act.Kind
		rec.PushFront(actions.GoToRanged(target.Pos, rng))
		res := in.step(env, agent, rec, depth+1)
		c.log.Debug().Str("move", string(res.Outcome)).Msg("target out of range, moving")
		// The original action stays queued whatever happened to the move.
		switch res.Outcome {
		case OutcomeDropped:
			res.Outcome = OutcomeRetry
		case OutcomeDone:
			res.Outcome = OutcomePending
		}
		res.Kind = kind
		res.Injected = true
		return res
	}
	return in.exec(c, target)
}

func (in *Interpreter) unresolved(c *call) Result {
	if c.act.Kind.DoneWhenGone() {
		c.log.Debug().Msg("target gone, action complete")
		return c.pop(OutcomeDone, world.ErrNotFound)
	}
	c.act.Misses++
	if c.act.Misses >= in.tuning.MissLimit {
		c.log.Warn().Int("misses", c.act.Misses).Msg("target unresolvable, dropping action")
		return c.pop(OutcomeDropped, world.ErrNotFound)
	}
	c.log.Info().Int("misses", c.act.Misses).Msg("target unresolvable, will retry")
	return Result{Kind: c.act.Kind, Outcome: OutcomeRetry, Code: world.ErrNotFound}
}
