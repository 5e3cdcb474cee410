package spawn

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/sim/actions"
	"hivectl.ai/internal/sim/body"
	"hivectl.ai/internal/sim/config"
	"hivectl.ai/internal/sim/roles"
	"hivectl.ai/internal/sim/world"
)

// Env is the slice of the host the scheduler reads and commands.
type Env interface {
	Tick() uint64
	Creeps() []world.Object
	CreepsIn(room string) []world.Object
	SpawnsIn(room string) []world.Object
	EnergyAvailable(room string) int
	Spawn(spawn string, parts []body.Part, name string) world.Code
}

// Roster maps live agent names to the role in their persisted record. Agents
// without a record are absent and not counted.
type Roster map[string]roles.Role

// Request is one production attempt.
type Request struct {
	Room  string
	Spawn string
	Name  string
	Role  roles.Role
	Equip string
	Parts []body.Part
	Code  world.Code
}

type Skip string

const (
	SkipNoConfig  Skip = "no_config"
	SkipNoSpawn   Skip = "no_idle_spawn"
	SkipSatisfied Skip = "satisfied"
	SkipEnergy    Skip = "energy"
)

type Scheduler struct {
	log   zerolog.Logger
	names []string
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{log: log, names: namePool}
}

// WithNames replaces the name pool.
func (s *Scheduler) WithNames(names []string) *Scheduler {
	s.names = append([]string(nil), names...)
	return s
}

// Run makes at most one production attempt for room. It walks the configured
// slots in order with one remaining counter per role, seeded from the live
// population: a slot whose counter is already zero is a deficit and is filled,
// otherwise the counter is decremented. The first fillable deficit ends the
// scan whether or not the host accepts the request.
//
// The returned request is nil when nothing was attempted; skip then says why.
func (s *Scheduler) Run(env Env, room string, cfg *config.Config, roster Roster, sess *memory.Session) (*Request, Skip, error) {
	log := s.log.With().Uint64("tick", env.Tick()).Str("room", room).Logger()

	slots := cfg.Slots(room)
	if len(slots) == 0 {
		return nil, SkipNoConfig, nil
	}
	spawner, ok := idleSpawn(env.SpawnsIn(room))
	if !ok {
		return nil, SkipNoSpawn, nil
	}

	remaining := roles.Counts{}
	for _, c := range env.CreepsIn(room) {
		if r, ok := roster[c.Name]; ok {
			remaining.Add(r)
		}
	}

	for _, slot := range slots {
		if remaining[slot.Role] > 0 {
			remaining[slot.Role]--
			continue
		}
		parts, ok := cfg.Template(slot.Equip)
		if !ok {
			log.Warn().Str("role", slot.Role.Name()).Str("equip", slot.Equip).Msg("equip template not found")
			continue
		}
		if err := body.Validate(parts); err != nil {
			log.Warn().Err(err).Str("equip", slot.Equip).Msg("equip template invalid")
			continue
		}
		if cost, have := body.Cost(parts), env.EnergyAvailable(room); cost > have {
			log.Debug().Str("role", slot.Role.Name()).Int("cost", cost).Int("energy", have).Msg("waiting for energy")
			return nil, SkipEnergy, nil
		}
		req := &Request{
			Room:  room,
			Spawn: spawner.ID,
			Role:  slot.Role,
			Equip: slot.Equip,
			Parts: parts,
		}
		return req, "", s.produce(env, log, req, sess)
	}
	return nil, SkipSatisfied, nil
}

func idleSpawn(spawns []world.Object) (world.Object, bool) {
	for _, sp := range spawns {
		if sp.My && !sp.Spawning {
			return sp, true
		}
	}
	return world.Object{}, false
}

// produce seeds the agent record and issues the spawn command. A rejected
// request leaves no record behind.
func (s *Scheduler) produce(env Env, log zerolog.Logger, req *Request, sess *memory.Session) error {
	taken := map[string]bool{}
	for _, c := range env.Creeps() {
		taken[c.Name] = true
	}
	// Agents seeded earlier this tick may not be listed by the host yet.
	for _, n := range sess.HeldKeys(memory.Creeps) {
		taken[n] = true
	}
	var name string
	for {
		name = pickName(s.names, env.Tick(), taken)
		err := sess.CreateAgent(name, &memory.AgentRecord{Role: req.Role, Actions: []actions.Action{}})
		if err == nil {
			break
		}
		if !errors.Is(err, memory.ErrExists) && !errors.Is(err, memory.ErrCheckedOut) {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		taken[name] = true
	}
	req.Name = name

	req.Code = env.Spawn(req.Spawn, req.Parts, name)
	if !req.Code.OK() {
		sess.Discard(memory.Creeps, name)
		log.Warn().Str("spawn", req.Spawn).Str("name", name).Str("role", req.Role.Name()).Str("code", string(req.Code)).Msg("spawn rejected")
		return nil
	}
	log.Info().Str("spawn", req.Spawn).Str("name", name).Str("role", req.Role.Name()).Msg("spawning")
	return nil
}
