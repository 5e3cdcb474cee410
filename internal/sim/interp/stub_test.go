package interp

import (
	"fmt"
	"strings"

	"hivectl.ai/internal/sim/body"
	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/world"
)

type stubEnv struct {
	tick    uint64
	objects map[string]world.Object
	// codes overrides the result of a command by name.
	codes map[string]world.Code
	calls []string
}

func newStubEnv(objs ...world.Object) *stubEnv {
	s := &stubEnv{tick: 100, objects: map[string]world.Object{}, codes: map[string]world.Code{}}
	for _, o := range objs {
		s.objects[o.ID] = o
	}
	return s
}

func (s *stubEnv) Tick() uint64 { return s.tick }

func (s *stubEnv) Resolve(id string) (world.Object, bool) {
	o, ok := s.objects[id]
	return o, ok
}

func (s *stubEnv) record(name string, args ...any) world.Code {
	s.calls = append(s.calls, strings.TrimSpace(fmt.Sprintln(append([]any{name}, args...)...)))
	if c, ok := s.codes[name]; ok {
		return c
	}
	return world.OK
}

func (s *stubEnv) Move(creep string, to geom.Pos) world.Code { return s.record("Move", creep, to) }
func (s *stubEnv) Transfer(creep, target string, r world.Resource, n int) world.Code {
	return s.record("Transfer", creep, target, r, n)
}
func (s *stubEnv) Withdraw(creep, target string, r world.Resource, n int) world.Code {
	return s.record("Withdraw", creep, target, r, n)
}
func (s *stubEnv) Pickup(creep, target string) world.Code  { return s.record("Pickup", creep, target) }
func (s *stubEnv) Harvest(creep, target string) world.Code { return s.record("Harvest", creep, target) }
func (s *stubEnv) Build(creep, site string) world.Code     { return s.record("Build", creep, site) }
func (s *stubEnv) Dismantle(creep, target string) world.Code {
	return s.record("Dismantle", creep, target)
}
func (s *stubEnv) Repair(creep, target string) world.Code { return s.record("Repair", creep, target) }
func (s *stubEnv) AttackController(creep, c string) world.Code {
	return s.record("AttackController", creep, c)
}
func (s *stubEnv) ClaimController(creep, c string) world.Code {
	return s.record("ClaimController", creep, c)
}
func (s *stubEnv) UpgradeController(creep, c string) world.Code {
	return s.record("UpgradeController", creep, c)
}
func (s *stubEnv) ReserveController(creep, c string) world.Code {
	return s.record("ReserveController", creep, c)
}
func (s *stubEnv) Heal(creep, target string) world.Code { return s.record("Heal", creep, target) }
func (s *stubEnv) RangedHeal(creep, target string) world.Code {
	return s.record("RangedHeal", creep, target)
}
func (s *stubEnv) Attack(creep, target string) world.Code { return s.record("Attack", creep, target) }
func (s *stubEnv) RangedAttack(creep, target string) world.Code {
	return s.record("RangedAttack", creep, target)
}
func (s *stubEnv) RangedMassAttack(creep string) world.Code {
	return s.record("RangedMassAttack", creep)
}
func (s *stubEnv) Boost(lab, creep string) world.Code   { return s.record("Boost", lab, creep) }
func (s *stubEnv) Renew(spawn, creep string) world.Code { return s.record("Renew", spawn, creep) }
func (s *stubEnv) Spawn(spawn string, parts []body.Part, name string) world.Code {
	return s.record("Spawn", spawn, parts, name)
}

func at(x, y int) geom.Pos { return geom.Pos{Room: "W1N1", X: x, Y: y} }

func creep(pos geom.Pos, energy, capacity int) world.Object {
	return world.Object{
		ID:          "c1",
		Kind:        world.KindCreep,
		Name:        "c1",
		Pos:         pos,
		My:          true,
		Hits:        100,
		HitsMax:     100,
		Store:       map[world.Resource]int{world.Energy: energy},
		Capacity:    capacity,
		Body:        []body.Part{body.Work, body.Carry, body.Move},
		TicksToLive: 1000,
	}
}
