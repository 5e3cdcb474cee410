package memory

import (
	"encoding/json"
	"errors"
	"fmt"

	"hivectl.ai/internal/sim/actions"
	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/roles"
	"hivectl.ai/internal/sim/world"
)

var ErrMalformed = errors.New("malformed record")

// AgentRecord is the persisted state of one agent.
type AgentRecord struct {
	Role    roles.Role       `json:"role"`
	Actions []actions.Action `json:"actions"`
}

func (r *AgentRecord) normalize() {
	if r.Actions == nil {
		r.Actions = []actions.Action{}
	}
}

// Head returns the action at the front of the queue.
func (r *AgentRecord) Head() (*actions.Action, bool) {
	if len(r.Actions) == 0 {
		return nil, false
	}
	return &r.Actions[0], true
}

func (r *AgentRecord) Len() int { return len(r.Actions) }

// Pop removes the head action.
func (r *AgentRecord) Pop() {
	if len(r.Actions) == 0 {
		return
	}
	r.Actions = append(r.Actions[:0:0], r.Actions[1:]...)
}

func (r *AgentRecord) Push(a ...actions.Action) {
	r.Actions = append(r.Actions, a...)
}

// PushFront places a ahead of the current head.
func (r *AgentRecord) PushFront(a actions.Action) {
	r.Actions = append([]actions.Action{a}, r.Actions...)
}

// Replace swaps the whole queue, cancelling whatever was pending.
func (r *AgentRecord) Replace(q []actions.Action) {
	r.Actions = append([]actions.Action{}, q...)
}

func (r *AgentRecord) Clear() {
	r.Actions = []actions.Action{}
}

// RoomRecord holds locality facts not owned by any single agent.
type RoomRecord struct {
	Mines               map[world.Resource][]geom.Pos `json:"mines"`
	ExtensionContainers []string                      `json:"extension_containers"`
	ExtensionSpots      []geom.Pos                    `json:"extension_spots"`
	LabSpots            map[world.Resource]string     `json:"lab_spots"`
	Forts               []geom.Pos                    `json:"forts"`
	RepairBlacklist     []string                      `json:"repair_blacklist"`
}

func (r *RoomRecord) normalize() {
	if r.Mines == nil {
		r.Mines = map[world.Resource][]geom.Pos{}
	}
	if r.ExtensionContainers == nil {
		r.ExtensionContainers = []string{}
	}
	if r.ExtensionSpots == nil {
		r.ExtensionSpots = []geom.Pos{}
	}
	if r.LabSpots == nil {
		r.LabSpots = map[world.Resource]string{}
	}
	if r.Forts == nil {
		r.Forts = []geom.Pos{}
	}
	if r.RepairBlacklist == nil {
		r.RepairBlacklist = []string{}
	}
}

type record interface {
	AgentRecord | RoomRecord
}

func normalize[T record](v *T) {
	switch r := any(v).(type) {
	case *AgentRecord:
		r.normalize()
	case *RoomRecord:
		r.normalize()
	}
}

// Decode parses raw into a T, filling defaults for absent fields.
func Decode[T record](raw []byte) (*T, error) {
	v := new(T)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	normalize(v)
	return v, nil
}

// Encode serializes v with defaults filled, so empty collections are written
// as empty rather than null.
func Encode[T record](v *T) ([]byte, error) {
	normalize(v)
	return json.Marshal(v)
}
