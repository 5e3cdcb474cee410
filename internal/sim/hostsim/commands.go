package hostsim

import (
	"hivectl.ai/internal/sim/body"
	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/world"
)

// Per part, per tick effect sizes.
const (
	harvestPower    = 2
	buildPower      = 5
	repairPower     = 100
	dismantlePower  = 50
	upgradePower    = 1
	attackPower     = 30
	rangedPower     = 10
	massPower       = 4
	healPower       = 12
	rangedHealPower = 4
	claimPower      = 1
	declaimPower    = 300
	renewBase       = 600
	massRange       = 3
)

const me = "me"

func (s *Sim) creep(name string) (*world.Object, world.Code) {
	c, ok := s.objects[name]
	if !ok || c.Kind != world.KindCreep {
		return nil, world.ErrNotFound
	}
	if !c.My {
		return nil, world.ErrNotOwner
	}
	if c.Spawning {
		return nil, world.ErrBusy
	}
	return c, world.OK
}

// actor resolves the creep, requires part p and target id within rng.
func (s *Sim) actor(name string, p body.Part, id string, rng int) (*world.Object, *world.Object, world.Code) {
	c, code := s.creep(name)
	if !code.OK() {
		return nil, nil, code
	}
	if p != "" && body.Count(c.Body, p) == 0 {
		return nil, nil, world.ErrNoBodypart
	}
	t, ok := s.objects[id]
	if !ok {
		return nil, nil, world.ErrInvalidTarget
	}
	if geom.Range(c.Pos, t.Pos) > rng {
		return nil, nil, world.ErrNotInRange
	}
	return c, t, world.OK
}

func (s *Sim) Move(name string, to geom.Pos) world.Code {
	c, code := s.creep(name)
	if !code.OK() {
		return code
	}
	if !to.InBounds() {
		return world.ErrInvalidArgs
	}
	if body.Count(c.Body, body.Move) == 0 {
		return world.ErrNoBodypart
	}
	if c.Pos.Room != to.Room {
		// Rooms are not laid out; an inter-room move is a single hop.
		c.Pos = geom.Pos{Room: to.Room, X: c.Pos.X, Y: c.Pos.Y}
		return world.OK
	}
	c.Pos = geom.StepToward(c.Pos, to)
	return world.OK
}

func (s *Sim) Transfer(name, target string, r world.Resource, n int) world.Code {
	c, t, code := s.actor(name, "", target, 1)
	if !code.OK() {
		return code
	}
	return move(c, t, r, n)
}

func (s *Sim) Withdraw(name, target string, r world.Resource, n int) world.Code {
	c, t, code := s.actor(name, "", target, 1)
	if !code.OK() {
		return code
	}
	return move(t, c, r, n)
}

func move(from, to *world.Object, r world.Resource, n int) world.Code {
	if n <= 0 {
		return world.ErrInvalidArgs
	}
	if to.Capacity == 0 {
		return world.ErrInvalidTarget
	}
	if from.Held(r) < n {
		return world.ErrNotEnoughEnergy
	}
	if to.Free() < n {
		return world.ErrFull
	}
	from.Store[r] -= n
	if from.Store[r] == 0 {
		delete(from.Store, r)
	}
	to.Store[r] += n
	return world.OK
}

func (s *Sim) Pickup(name, target string) world.Code {
	c, t, code := s.actor(name, body.Carry, target, 1)
	if !code.OK() {
		return code
	}
	if t.Kind != world.KindResource {
		return world.ErrInvalidTarget
	}
	n := min(t.Amount, c.Free())
	if n == 0 {
		return world.ErrFull
	}
	c.Store[t.Resource] += n
	t.Amount -= n
	if t.Amount == 0 {
		s.Remove(t.ID)
	}
	return world.OK
}

func (s *Sim) Harvest(name, target string) world.Code {
	c, t, code := s.actor(name, body.Work, target, 1)
	if !code.OK() {
		return code
	}
	if t.Kind != world.KindSource && t.Kind != world.KindMineral {
		return world.ErrInvalidTarget
	}
	if t.Amount == 0 {
		return world.ErrNotEnoughEnergy
	}
	n := min(harvestPower*body.Count(c.Body, body.Work), t.Amount, c.Free())
	if n == 0 {
		return world.ErrFull
	}
	r := t.Resource
	if r == "" {
		r = world.Energy
	}
	t.Amount -= n
	c.Store[r] += n
	return world.OK
}

func (s *Sim) Build(name, site string) world.Code {
	c, t, code := s.actor(name, body.Work, site, 3)
	if !code.OK() {
		return code
	}
	if t.Kind != world.KindSite {
		return world.ErrInvalidTarget
	}
	n := min(buildPower*body.Count(c.Body, body.Work), c.Held(world.Energy), t.ProgressTotal-t.Progress)
	if n <= 0 {
		return world.ErrNotEnoughEnergy
	}
	c.Store[world.Energy] -= n
	t.Progress += n
	if t.Progress >= t.ProgressTotal {
		s.Remove(t.ID)
	}
	return world.OK
}

func (s *Sim) Dismantle(name, target string) world.Code {
	c, t, code := s.actor(name, body.Work, target, 1)
	if !code.OK() {
		return code
	}
	if t.HitsMax == 0 || t.Kind == world.KindCreep {
		return world.ErrInvalidTarget
	}
	damage(s, t, dismantlePower*body.Count(c.Body, body.Work))
	return world.OK
}

func (s *Sim) Repair(name, target string) world.Code {
	c, t, code := s.actor(name, body.Work, target, 3)
	if !code.OK() {
		return code
	}
	if t.HitsMax == 0 || t.Kind == world.KindCreep {
		return world.ErrInvalidTarget
	}
	work := body.Count(c.Body, body.Work)
	spend := min(work, c.Held(world.Energy))
	if spend == 0 {
		return world.ErrNotEnoughEnergy
	}
	c.Store[world.Energy] -= spend
	t.Hits = min(t.HitsMax, t.Hits+repairPower*spend)
	return world.OK
}

func (s *Sim) controller(name, id string, p body.Part) (*world.Object, *world.Object, world.Code) {
	c, t, code := s.actor(name, p, id, 1)
	if !code.OK() {
		return nil, nil, code
	}
	if t.Kind != world.KindController {
		return nil, nil, world.ErrInvalidTarget
	}
	return c, t, world.OK
}

func (s *Sim) AttackController(name, id string) world.Code {
	c, t, code := s.controller(name, id, body.Claim)
	if !code.OK() {
		return code
	}
	if t.My {
		return world.ErrInvalidTarget
	}
	hit := declaimPower * body.Count(c.Body, body.Claim)
	if t.Reservation > 0 {
		t.Reservation = max(0, t.Reservation-hit)
		return world.OK
	}
	if t.Owner != "" {
		t.Level--
		if t.Level <= 0 {
			t.Owner, t.Level = "", 0
		}
	}
	return world.OK
}

func (s *Sim) ClaimController(name, id string) world.Code {
	_, t, code := s.controller(name, id, body.Claim)
	if !code.OK() {
		return code
	}
	if t.My {
		return world.ErrInvalidTarget
	}
	if t.Owner != "" || t.Reservation > 0 {
		return world.ErrControllerLocked
	}
	t.My, t.Owner, t.Level = true, me, 1
	return world.OK
}

func (s *Sim) UpgradeController(name, id string) world.Code {
	c, t, code := s.actor(name, body.Work, id, 3)
	if !code.OK() {
		return code
	}
	if t.Kind != world.KindController {
		return world.ErrInvalidTarget
	}
	if !t.My {
		return world.ErrNotOwner
	}
	n := min(upgradePower*body.Count(c.Body, body.Work), c.Held(world.Energy))
	if n == 0 {
		return world.ErrNotEnoughEnergy
	}
	c.Store[world.Energy] -= n
	t.Progress += n
	return world.OK
}

func (s *Sim) ReserveController(name, id string) world.Code {
	c, t, code := s.controller(name, id, body.Claim)
	if !code.OK() {
		return code
	}
	if t.Owner != "" {
		return world.ErrInvalidTarget
	}
	t.Reservation += claimPower * body.Count(c.Body, body.Claim)
	return world.OK
}

func (s *Sim) heal(name, target string, rng, power int) world.Code {
	c, t, code := s.actor(name, body.Heal, target, rng)
	if !code.OK() {
		return code
	}
	if t.Kind != world.KindCreep {
		return world.ErrInvalidTarget
	}
	t.Hits = min(t.HitsMax, t.Hits+power*body.Count(c.Body, body.Heal))
	return world.OK
}

func (s *Sim) Heal(name, target string) world.Code { return s.heal(name, target, 1, healPower) }

func (s *Sim) RangedHeal(name, target string) world.Code {
	return s.heal(name, target, 3, rangedHealPower)
}

func (s *Sim) Attack(name, target string) world.Code {
	c, t, code := s.actor(name, body.Attack, target, 1)
	if !code.OK() {
		return code
	}
	if t.My || t.HitsMax == 0 {
		return world.ErrInvalidTarget
	}
	damage(s, t, attackPower*body.Count(c.Body, body.Attack))
	return world.OK
}

func (s *Sim) RangedAttack(name, target string) world.Code {
	c, t, code := s.actor(name, body.RangedAttack, target, 3)
	if !code.OK() {
		return code
	}
	if t.My || t.HitsMax == 0 {
		return world.ErrInvalidTarget
	}
	damage(s, t, rangedPower*body.Count(c.Body, body.RangedAttack))
	return world.OK
}

func (s *Sim) RangedMassAttack(name string) world.Code {
	c, code := s.creep(name)
	if !code.OK() {
		return code
	}
	n := body.Count(c.Body, body.RangedAttack)
	if n == 0 {
		return world.ErrNoBodypart
	}
	for _, t := range s.objects {
		if !t.My && t.HitsMax > 0 && geom.InRange(c.Pos, t.Pos, massRange) {
			damage(s, t, massPower*n)
		}
	}
	return world.OK
}

func damage(s *Sim, t *world.Object, n int) {
	t.Hits -= n
	if t.Hits <= 0 {
		s.Remove(t.ID)
	}
}

func (s *Sim) Boost(lab, name string) world.Code {
	c, code := s.creep(name)
	if !code.OK() {
		return code
	}
	l, ok := s.objects[lab]
	if !ok || l.Kind != world.KindLab || !l.My {
		return world.ErrInvalidTarget
	}
	if geom.Range(c.Pos, l.Pos) > 1 {
		return world.ErrNotInRange
	}
	if l.Used() == 0 {
		return world.ErrNotEnoughEnergy
	}
	return world.OK
}

func (s *Sim) Renew(spawn, name string) world.Code {
	c, code := s.creep(name)
	if !code.OK() {
		return code
	}
	sp, ok := s.objects[spawn]
	if !ok || sp.Kind != world.KindSpawn || !sp.My {
		return world.ErrInvalidTarget
	}
	if sp.Spawning {
		return world.ErrBusy
	}
	if geom.Range(c.Pos, sp.Pos) > 1 {
		return world.ErrNotInRange
	}
	if c.TicksToLive >= CreepLife {
		return world.ErrFull
	}
	c.TicksToLive = min(CreepLife, c.TicksToLive+renewBase/max(1, len(c.Body)))
	return world.OK
}

func (s *Sim) Spawn(spawn string, parts []body.Part, name string) world.Code {
	sp, ok := s.objects[spawn]
	if !ok || sp.Kind != world.KindSpawn {
		return world.ErrInvalidTarget
	}
	if !sp.My {
		return world.ErrNotOwner
	}
	if sp.Spawning {
		return world.ErrBusy
	}
	if err := body.Validate(parts); err != nil || name == "" {
		return world.ErrInvalidArgs
	}
	if _, taken := s.objects[name]; taken {
		return world.ErrNameExists
	}
	cost := body.Cost(parts)
	if s.EnergyAvailable(sp.Pos.Room) < cost {
		return world.ErrNotEnoughEnergy
	}
	s.drain(sp.Pos.Room, cost)

	c := world.Object{
		ID:       name,
		Name:     name,
		Kind:     world.KindCreep,
		Pos:      sp.Pos,
		My:       true,
		Body:     append([]body.Part(nil), parts...),
		Spawning: true,
	}
	if err := s.Add(c); err != nil {
		return world.ErrNameExists
	}
	sp.Spawning = true
	s.jobs[sp.ID] = &job{creep: name, left: SpawnTicksPerPart * len(parts)}
	return world.OK
}

// drain takes energy from the room's spawns first, then extensions.
func (s *Sim) drain(room string, n int) {
	for _, kind := range []world.Kind{world.KindSpawn, world.KindExtension} {
		for _, o := range s.filter(func(o *world.Object) bool {
			return o.Kind == kind && o.My && o.Pos.Room == room
		}) {
			src := s.objects[o.ID]
			take := min(n, src.Held(world.Energy))
			src.Store[world.Energy] -= take
			n -= take
			if n == 0 {
				return
			}
		}
	}
}
