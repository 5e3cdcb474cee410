package body

import (
	"errors"
	"fmt"
)

type Part string

const (
	Move         Part = "move"
	Work         Part = "work"
	Carry        Part = "carry"
	Attack       Part = "attack"
	RangedAttack Part = "ranged_attack"
	Heal         Part = "heal"
	Claim        Part = "claim"
	Tough        Part = "tough"
)

// MaxParts is the largest body a production structure accepts.
const MaxParts = 50

var costs = map[Part]int{
	Move:         50,
	Work:         100,
	Carry:        50,
	Attack:       80,
	RangedAttack: 150,
	Heal:         250,
	Claim:        600,
	Tough:        10,
}

var (
	ErrEmpty       = errors.New("empty body")
	ErrTooLarge    = errors.New("body too large")
	ErrUnknownPart = errors.New("unknown body part")
)

func Known(p Part) bool {
	_, ok := costs[p]
	return ok
}

// Validate checks size limits and part tags.
func Validate(parts []Part) error {
	if len(parts) == 0 {
		return ErrEmpty
	}
	if len(parts) > MaxParts {
		return fmt.Errorf("%w: %d parts", ErrTooLarge, len(parts))
	}
	for _, p := range parts {
		if !Known(p) {
			return fmt.Errorf("%w: %q", ErrUnknownPart, p)
		}
	}
	return nil
}

// Cost is the energy needed to produce parts. Unknown parts cost nothing;
// call Validate first.
func Cost(parts []Part) int {
	total := 0
	for _, p := range parts {
		total += costs[p]
	}
	return total
}

// Count returns how many parts of kind p are in parts.
func Count(parts []Part, p Part) int {
	n := 0
	for _, q := range parts {
		if q == p {
			n++
		}
	}
	return n
}
