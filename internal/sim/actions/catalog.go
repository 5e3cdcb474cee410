package actions

import (
	"errors"
	"fmt"
)

type Category int

const (
	CategoryMovement Category = iota + 1
	CategoryTransfer
	CategoryWork
	CategoryInstant
)

type spec struct {
	category Category
	// rng is the interaction range; -1 means the action is not range gated.
	rng int
	// gone marks kinds whose goal is reached when the target disappears.
	gone bool
}

var catalog = map[Kind]spec{
	KindGoTo:              {category: CategoryMovement, rng: -1},
	KindGoToRanged:        {category: CategoryMovement, rng: -1},
	KindGoToRoom:          {category: CategoryMovement, rng: -1},
	KindTransferAll:       {category: CategoryTransfer, rng: 1},
	KindTransferAmount:    {category: CategoryTransfer, rng: 1},
	KindWithdrawAll:       {category: CategoryTransfer, rng: 1},
	KindWithdrawAmount:    {category: CategoryTransfer, rng: 1},
	KindPickupAll:         {category: CategoryTransfer, rng: 1},
	KindPickupAmount:      {category: CategoryTransfer, rng: 1},
	KindHarvest:           {category: CategoryWork, rng: 1},
	KindBuild:             {category: CategoryWork, rng: 3, gone: true},
	KindDismantle:         {category: CategoryWork, rng: 1, gone: true},
	KindRepair:            {category: CategoryWork, rng: 3},
	KindFortify:           {category: CategoryWork, rng: 3},
	KindControllerAttack:  {category: CategoryWork, rng: 1},
	KindControllerClaim:   {category: CategoryWork, rng: 1},
	KindControllerUpgrade: {category: CategoryWork, rng: 3},
	KindControllerReserve: {category: CategoryWork, rng: 1},
	KindHeal:              {category: CategoryWork, rng: 1, gone: true},
	KindHealRanged:        {category: CategoryWork, rng: 3, gone: true},
	KindAttackMelee:       {category: CategoryWork, rng: 1, gone: true},
	KindAttackRanged:      {category: CategoryWork, rng: 3, gone: true},
	KindAttackRangedMass:  {category: CategoryInstant, rng: -1},
	KindGetBoosted:        {category: CategoryTransfer, rng: 1},
	KindGetRenewed:        {category: CategoryWork, rng: 1},
}

var (
	ErrUnknownKind   = errors.New("unknown action kind")
	ErrMissingField  = errors.New("missing action field")
	ErrInvalidAmount = errors.New("invalid action amount")
)

func Known(k Kind) bool {
	_, ok := catalog[k]
	return ok
}

func (k Kind) Category() Category {
	return catalog[k].category
}

// Range returns the interaction range of k and whether k is range gated.
func (k Kind) Range() (int, bool) {
	s, ok := catalog[k]
	if !ok || s.rng < 0 {
		return 0, false
	}
	return s.rng, true
}

// DoneWhenGone reports whether a vanished target means the action succeeded.
func (k Kind) DoneWhenGone() bool {
	return catalog[k].gone
}

// Validate checks that a carries the fields its kind needs.
func (a Action) Validate() error {
	if !Known(a.Kind) {
		return fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	switch a.Kind {
	case KindGoTo, KindGoToRanged:
		if a.Pos == nil {
			return fmt.Errorf("%w: %s needs pos", ErrMissingField, a.Kind)
		}
		if a.Range < 0 {
			return fmt.Errorf("%w: negative range", ErrInvalidAmount)
		}
		return nil
	case KindGoToRoom:
		if a.Room == "" {
			return fmt.Errorf("%w: %s needs room", ErrMissingField, a.Kind)
		}
		return nil
	case KindAttackRangedMass:
		return nil
	}
	if a.Target == "" {
		return fmt.Errorf("%w: %s needs target", ErrMissingField, a.Kind)
	}
	switch a.Kind {
	case KindTransferAll, KindTransferAmount, KindWithdrawAll, KindWithdrawAmount:
		if a.Resource == "" {
			return fmt.Errorf("%w: %s needs resource", ErrMissingField, a.Kind)
		}
	}
	switch a.Kind {
	case KindTransferAmount, KindWithdrawAmount, KindPickupAmount:
		if a.Amount <= 0 {
			return fmt.Errorf("%w: %s amount=%d", ErrInvalidAmount, a.Kind, a.Amount)
		}
	case KindFortify:
		if a.Amount < 0 {
			return fmt.Errorf("%w: %s amount=%d", ErrInvalidAmount, a.Kind, a.Amount)
		}
	}
	return nil
}
