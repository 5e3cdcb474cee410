package world

import (
	"hivectl.ai/internal/sim/body"
	"hivectl.ai/internal/sim/geom"
)

type Kind string

const (
	KindCreep      Kind = "creep"
	KindSource     Kind = "source"
	KindMineral    Kind = "mineral"
	KindSpawn      Kind = "spawn"
	KindExtension  Kind = "extension"
	KindContainer  Kind = "container"
	KindStorage    Kind = "storage"
	KindTower      Kind = "tower"
	KindLab        Kind = "lab"
	KindWall       Kind = "wall"
	KindRampart    Kind = "rampart"
	KindRoad       Kind = "road"
	KindSite       Kind = "site"
	KindController Kind = "controller"
	KindResource   Kind = "resource"
)

type Resource string

const (
	Energy Resource = "energy"
)

// Object is a snapshot copy of one live world object. It is only valid for the
// tick it was read in; ids are the durable handle.
type Object struct {
	ID   string
	Kind Kind
	Name string
	Pos  geom.Pos
	My   bool

	Hits    int
	HitsMax int

	// Store holds carried or stored resources. Capacity is the total limit
	// across all resources; zero means the object cannot hold anything.
	Store    map[Resource]int
	Capacity int

	// Amount is the energy left in a source or the size of a dropped pile.
	Amount   int
	Resource Resource

	Progress      int
	ProgressTotal int

	// Controller state.
	Owner       string
	Reservation int
	Level       int

	// Creep state.
	Body        []body.Part
	TicksToLive int

	// Spawn state.
	Spawning bool
}

func (o Object) Used() int {
	n := 0
	for _, v := range o.Store {
		n += v
	}
	return n
}

func (o Object) Free() int {
	free := o.Capacity - o.Used()
	if free < 0 {
		return 0
	}
	return free
}

func (o Object) Held(r Resource) int {
	return o.Store[r]
}

// Snapshot is the read side of the host for one tick.
type Snapshot interface {
	Tick() uint64
	Resolve(id string) (Object, bool)

	// Creeps returns every owned creep sorted by name.
	Creeps() []Object
	CreepsIn(room string) []Object
	SpawnsIn(room string) []Object
	EnergyAvailable(room string) int
	Rooms() []string

	CreepNames() []string
	SpawnNames() []string
	FlagNames() []string
}

// Commands is the write side of the host. Every call targets one owned creep
// (or spawn/lab for Spawn, Renew and Boost) and reports a result code.
type Commands interface {
	Move(creep string, to geom.Pos) Code
	Transfer(creep, target string, r Resource, amount int) Code
	Withdraw(creep, target string, r Resource, amount int) Code
	Pickup(creep, target string) Code
	Harvest(creep, target string) Code
	Build(creep, site string) Code
	Dismantle(creep, target string) Code
	Repair(creep, target string) Code
	AttackController(creep, controller string) Code
	ClaimController(creep, controller string) Code
	UpgradeController(creep, controller string) Code
	ReserveController(creep, controller string) Code
	Heal(creep, target string) Code
	RangedHeal(creep, target string) Code
	Attack(creep, target string) Code
	RangedAttack(creep, target string) Code
	RangedMassAttack(creep string) Code
	Boost(lab, creep string) Code
	Renew(spawn, creep string) Code
	Spawn(spawn string, parts []body.Part, name string) Code
}

// World is a full host view for one tick.
type World interface {
	Snapshot
	Commands
}
