package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/sim/body"
	"hivectl.ai/internal/sim/roles"
)

// Key is the record holding the controller configuration in memory.Config.
const Key = "config"

var (
	ErrMissing = errors.New("config missing")
	ErrInvalid = errors.New("config invalid")
)

// Slot is one configured population entry: an agent of Role built from the
// Equip template.
type Slot struct {
	Role  roles.Role
	Equip string
}

func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(s.Role), s.Equip})
}

// UnmarshalJSON accepts both ["H","basic"] and {"role":"H","equip":"basic"}.
func (s *Slot) UnmarshalJSON(b []byte) error {
	var pair []string
	if err := json.Unmarshal(b, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("slot: want [role, equip], got %d items", len(pair))
		}
		s.Role, s.Equip = roles.Role(pair[0]), pair[1]
		return nil
	}
	var obj struct {
		Role  string `json:"role"`
		Equip string `json:"equip"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	s.Role, s.Equip = roles.Role(obj.Role), obj.Equip
	return nil
}

// Config is the read-only population plan for one tick.
type Config struct {
	RolesToSpawn map[string][]Slot      `json:"roles_to_spawn"`
	Equip        map[string][]body.Part `json:"equip"`
}

// Slots returns the configured population order for room.
func (c *Config) Slots(room string) []Slot {
	if c == nil {
		return nil
	}
	return c.RolesToSpawn[room]
}

// Template resolves an equipment template to its body parts.
func (c *Config) Template(name string) ([]body.Part, bool) {
	if c == nil {
		return nil, false
	}
	parts, ok := c.Equip[name]
	return parts, ok
}

const schemaText = `{
  "type": "object",
  "required": ["roles_to_spawn", "equip"],
  "properties": {
    "roles_to_spawn": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "oneOf": [
            {"type": "array", "minItems": 2, "maxItems": 2, "items": {"type": "string"}},
            {
              "type": "object",
              "required": ["role", "equip"],
              "properties": {"role": {"type": "string"}, "equip": {"type": "string"}}
            }
          ]
        }
      }
    },
    "equip": {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", schemaText)
	})
	return schema, schemaErr
}

// Parse validates raw against the config schema and decodes it.
func Parse(raw []byte) (*Config, error) {
	s, err := compiled()
	if err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.TrimSpace(err.Error()))
	}
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &c, nil
}

// Load reads and parses the configuration record from store.
func Load(ctx context.Context, store memory.Store) (*Config, error) {
	raw, found, err := store.Get(ctx, memory.Config, Key)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !found {
		return nil, ErrMissing
	}
	return Parse(raw)
}

// Save writes c as the configuration record.
func Save(ctx context.Context, store memory.Store, c *Config) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return store.Set(ctx, memory.Config, Key, b)
}
