// Package hostsim is a small in-process host: a mutable set of rooms and
// objects that implements world.World and advances tick by tick. Commands take
// effect immediately.
package hostsim

import (
	"fmt"
	"sort"

	"hivectl.ai/internal/sim/body"
	"hivectl.ai/internal/sim/world"
)

const (
	CreepLife         = 1500
	SpawnTicksPerPart = 3
	SourceRegenTicks  = 300
	SourceCapacity    = 3000
)

type job struct {
	creep string
	left  int
}

// Sim is not safe for concurrent use.
type Sim struct {
	tick    uint64
	rooms   []string
	flags   []string
	objects map[string]*world.Object
	jobs    map[string]*job // spawn id -> production in progress
}

func New(tick uint64, rooms []string) *Sim {
	r := append([]string(nil), rooms...)
	sort.Strings(r)
	return &Sim{tick: tick, rooms: r, objects: map[string]*world.Object{}, jobs: map[string]*job{}}
}

var _ world.World = (*Sim)(nil)

// Add places o in the world. Creeps are keyed by name.
func (s *Sim) Add(o world.Object) error {
	if o.Kind == world.KindCreep {
		if o.Name == "" {
			o.Name = o.ID
		}
		o.ID = o.Name
	}
	if o.ID == "" {
		return fmt.Errorf("hostsim: %s without id", o.Kind)
	}
	if _, ok := s.objects[o.ID]; ok {
		return fmt.Errorf("hostsim: duplicate id %q", o.ID)
	}
	if o.Store == nil {
		o.Store = map[world.Resource]int{}
	}
	if o.Kind == world.KindCreep {
		if o.TicksToLive == 0 {
			o.TicksToLive = CreepLife
		}
		if o.Capacity == 0 {
			o.Capacity = 50 * body.Count(o.Body, body.Carry)
		}
		if o.HitsMax == 0 {
			o.HitsMax = 100 * len(o.Body)
			o.Hits = o.HitsMax
		}
	}
	s.objects[o.ID] = &o
	s.addRoom(o.Pos.Room)
	return nil
}

func (s *Sim) addRoom(room string) {
	if room == "" {
		return
	}
	i := sort.SearchStrings(s.rooms, room)
	if i < len(s.rooms) && s.rooms[i] == room {
		return
	}
	s.rooms = append(s.rooms, "")
	copy(s.rooms[i+1:], s.rooms[i:])
	s.rooms[i] = room
}

// Remove deletes the object with id, if any.
func (s *Sim) Remove(id string) {
	delete(s.objects, id)
	delete(s.jobs, id)
}

func (s *Sim) AddFlag(name string) {
	s.flags = append(s.flags, name)
	sort.Strings(s.flags)
}

// Advance ends the current tick: production progresses, creeps age and die,
// and sources regenerate.
func (s *Sim) Advance() {
	s.tick++
	for id, j := range s.jobs {
		j.left--
		if j.left > 0 {
			continue
		}
		if c, ok := s.objects[j.creep]; ok {
			c.Spawning = false
		}
		if sp, ok := s.objects[id]; ok {
			sp.Spawning = false
		}
		delete(s.jobs, id)
	}
	for id, o := range s.objects {
		switch o.Kind {
		case world.KindCreep:
			if o.Spawning {
				continue
			}
			o.TicksToLive--
			if o.TicksToLive <= 0 || o.Hits <= 0 {
				delete(s.objects, id)
			}
		case world.KindSource:
			if s.tick%SourceRegenTicks == 0 {
				o.Amount = SourceCapacity
			}
		}
	}
}

// Object returns a copy of the object with id.
func (s *Sim) Object(id string) (world.Object, bool) {
	return s.Resolve(id)
}

func (s *Sim) Tick() uint64 { return s.tick }

func (s *Sim) Resolve(id string) (world.Object, bool) {
	o, ok := s.objects[id]
	if !ok {
		return world.Object{}, false
	}
	return clone(o), true
}

func clone(o *world.Object) world.Object {
	c := *o
	c.Store = make(map[world.Resource]int, len(o.Store))
	for k, v := range o.Store {
		c.Store[k] = v
	}
	c.Body = append([]body.Part(nil), o.Body...)
	return c
}

func (s *Sim) filter(keep func(*world.Object) bool) []world.Object {
	var out []world.Object
	for _, o := range s.objects {
		if keep(o) {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Sim) Creeps() []world.Object {
	return s.filter(func(o *world.Object) bool { return o.Kind == world.KindCreep && o.My })
}

func (s *Sim) CreepsIn(room string) []world.Object {
	return s.filter(func(o *world.Object) bool {
		return o.Kind == world.KindCreep && o.My && o.Pos.Room == room
	})
}

func (s *Sim) SpawnsIn(room string) []world.Object {
	return s.filter(func(o *world.Object) bool {
		return o.Kind == world.KindSpawn && o.My && o.Pos.Room == room
	})
}

func (s *Sim) EnergyAvailable(room string) int {
	n := 0
	for _, o := range s.objects {
		if o.My && o.Pos.Room == room && (o.Kind == world.KindSpawn || o.Kind == world.KindExtension) {
			n += o.Held(world.Energy)
		}
	}
	return n
}

func (s *Sim) Rooms() []string {
	return append([]string(nil), s.rooms...)
}

func (s *Sim) CreepNames() []string {
	var out []string
	for _, c := range s.Creeps() {
		out = append(out, c.Name)
	}
	return out
}

func (s *Sim) SpawnNames() []string {
	var out []string
	for _, o := range s.objects {
		if o.Kind == world.KindSpawn && o.My {
			out = append(out, o.Name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Sim) FlagNames() []string {
	return append([]string(nil), s.flags...)
}
