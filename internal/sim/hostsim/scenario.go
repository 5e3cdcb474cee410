package hostsim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/sim/body"
	"hivectl.ai/internal/sim/config"
	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/interp"
	"hivectl.ai/internal/sim/world"
)

// Scenario is a starting world plus the controller inputs to run against it.
type Scenario struct {
	Tick  uint64   `yaml:"tick"`
	Ticks int      `yaml:"ticks"`
	Rooms []string `yaml:"rooms"`
	Flags []string `yaml:"flags"`

	Objects []ObjectSpec `yaml:"objects"`

	// Config is stored as the controller configuration record. It uses the
	// same shape as the JSON record.
	Config map[string]any `yaml:"config"`
	// Memory seeds records: namespace -> key -> record.
	Memory map[string]map[string]any `yaml:"memory"`
	Names  []string                  `yaml:"names"`

	Tuning interp.Tuning `yaml:"tuning"`
}

type ObjectSpec struct {
	ID            string         `yaml:"id"`
	Kind          string         `yaml:"kind"`
	Name          string         `yaml:"name"`
	Pos           geom.Pos       `yaml:"pos"`
	My            bool           `yaml:"my"`
	Hits          int            `yaml:"hits"`
	HitsMax       int            `yaml:"hits_max"`
	Store         map[string]int `yaml:"store"`
	Capacity      int            `yaml:"capacity"`
	Amount        int            `yaml:"amount"`
	Resource      string         `yaml:"resource"`
	Progress      int            `yaml:"progress"`
	ProgressTotal int            `yaml:"progress_total"`
	Owner         string         `yaml:"owner"`
	Reservation   int            `yaml:"reservation"`
	Level         int            `yaml:"level"`
	Body          []string       `yaml:"body"`
	TicksToLive   int            `yaml:"ticks_to_live"`
}

func (o ObjectSpec) object() world.Object {
	out := world.Object{
		ID:            o.ID,
		Kind:          world.Kind(o.Kind),
		Name:          o.Name,
		Pos:           o.Pos,
		My:            o.My,
		Hits:          o.Hits,
		HitsMax:       o.HitsMax,
		Store:         map[world.Resource]int{},
		Capacity:      o.Capacity,
		Amount:        o.Amount,
		Resource:      world.Resource(o.Resource),
		Progress:      o.Progress,
		ProgressTotal: o.ProgressTotal,
		Owner:         o.Owner,
		Reservation:   o.Reservation,
		Level:         o.Level,
		TicksToLive:   o.TicksToLive,
	}
	for r, n := range o.Store {
		out.Store[world.Resource(r)] = n
	}
	for _, p := range o.Body {
		out.Body = append(out.Body, body.Part(p))
	}
	if out.Name == "" {
		out.Name = out.ID
	}
	return out
}

func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return ParseScenario(raw)
}

func ParseScenario(raw []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("scenario.yaml: %w", err)
	}
	return s, nil
}

// Build creates the simulated world described by s.
func (s Scenario) Build() (*Sim, error) {
	sim := New(s.Tick, s.Rooms)
	for i, spec := range s.Objects {
		o := spec.object()
		if o.Kind == world.KindCreep {
			if err := body.Validate(o.Body); err != nil {
				return nil, fmt.Errorf("scenario object %d (%s): %w", i, o.ID, err)
			}
		}
		if err := sim.Add(o); err != nil {
			return nil, fmt.Errorf("scenario object %d: %w", i, err)
		}
	}
	for _, f := range s.Flags {
		sim.AddFlag(f)
	}
	return sim, nil
}

// Seed writes the scenario's config and memory records to store. The config
// is validated before it is written.
func (s Scenario) Seed(ctx context.Context, store memory.Store) error {
	if s.Config != nil {
		raw, err := json.Marshal(s.Config)
		if err != nil {
			return fmt.Errorf("scenario config: %w", err)
		}
		if _, err := config.Parse(raw); err != nil {
			return fmt.Errorf("scenario config: %w", err)
		}
		if err := store.Set(ctx, memory.Config, config.Key, raw); err != nil {
			return err
		}
	}
	for ns, recs := range s.Memory {
		for key, rec := range recs {
			raw, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("scenario memory %s/%s: %w", ns, key, err)
			}
			if err := store.Set(ctx, memory.Namespace(ns), key, raw); err != nil {
				return err
			}
		}
	}
	return nil
}
