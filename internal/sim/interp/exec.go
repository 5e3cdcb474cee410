package interp

import (
	"hivectl.ai/internal/sim/actions"
	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/world"
)

// exec performs the head action. target is the resolved object for range
// gated kinds and zero otherwise.
func (in *Interpreter) exec(c *call, target world.Object) Result {
	a := c.act
	me := c.agent.Name
	env := c.env

	switch a.Kind {
	case actions.KindGoTo:
		if c.agent.Pos == *a.Pos {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.settle(env.Move(me, *a.Pos))

	case actions.KindGoToRanged:
		if geom.InRange(c.agent.Pos, *a.Pos, a.Range) {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.settle(env.Move(me, *a.Pos))

	case actions.KindGoToRoom:
		if c.agent.Pos.Room == a.Room {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.settle(env.Move(me, geom.Center(a.Room)))

	case actions.KindTransferAll:
		n := min(c.agent.Held(a.Resource), target.Free())
		if n <= 0 {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.finish(env.Transfer(me, a.Target, a.Resource, n))

	case actions.KindTransferAmount:
		n := min(a.Amount-a.Moved, c.agent.Held(a.Resource), target.Free())
		return c.partial(n, func() world.Code { return env.Transfer(me, a.Target, a.Resource, n) })

	case actions.KindWithdrawAll:
		n := min(target.Held(a.Resource), c.agent.Free())
		if n <= 0 {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.finish(env.Withdraw(me, a.Target, a.Resource, n))

	case actions.KindWithdrawAmount:
		n := min(a.Amount-a.Moved, target.Held(a.Resource), c.agent.Free())
		return c.partial(n, func() world.Code { return env.Withdraw(me, a.Target, a.Resource, n) })

	case actions.KindPickupAll:
		if min(target.Amount, c.agent.Free()) <= 0 {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.finish(env.Pickup(me, a.Target))

	case actions.KindPickupAmount:
		// Pickup always takes as much as fits, so progress may overshoot.
		n := min(target.Amount, c.agent.Free())
		return c.partial(n, func() world.Code { return env.Pickup(me, a.Target) })

	case actions.KindHarvest:
		if c.agent.Capacity > 0 && c.agent.Free() == 0 {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.settle(env.Harvest(me, a.Target))

	case actions.KindBuild:
		if target.ProgressTotal > 0 && target.Progress >= target.ProgressTotal {
			return c.pop(OutcomeDone, world.OK)
		}
		if c.agent.Held(world.Energy) == 0 {
			return c.pop(OutcomeDone, world.ErrNotEnoughEnergy)
		}
		return c.settle(env.Build(me, a.Target))

	case actions.KindDismantle:
		return c.settle(env.Dismantle(me, a.Target))

	case actions.KindRepair, actions.KindFortify:
		goal := target.HitsMax
		if a.Kind == actions.KindFortify && a.Amount > 0 {
			goal = a.Amount
		}
		if target.Hits >= goal {
			return c.pop(OutcomeDone, world.OK)
		}
		if c.agent.Held(world.Energy) == 0 {
			return c.pop(OutcomeDone, world.ErrNotEnoughEnergy)
		}
		return c.settle(env.Repair(me, a.Target))

	case actions.KindControllerAttack:
		if target.Owner == "" && target.Reservation == 0 {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.settle(env.AttackController(me, a.Target))

	case actions.KindControllerClaim:
		if target.My {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.settle(env.ClaimController(me, a.Target))

	case actions.KindControllerUpgrade:
		if c.agent.Held(world.Energy) == 0 {
			return c.pop(OutcomeDone, world.ErrNotEnoughEnergy)
		}
		return c.settle(env.UpgradeController(me, a.Target))

	case actions.KindControllerReserve:
		if target.Reservation >= in.tuning.ReserveUntil {
			return c.pop(OutcomeDone, world.OK)
		}
		return c.settle(env.ReserveController(me, a.Target))

	case actions.KindHeal, actions.KindHealRanged:
		if target.Hits >= target.HitsMax {
			return c.pop(OutcomeDone, world.OK)
		}
		if a.Kind == actions.KindHeal {
			return c.settle(env.Heal(me, a.Target))
		}
		return c.settle(env.RangedHeal(me, a.Target))

	case actions.KindAttackMelee:
		return c.settle(env.Attack(me, a.Target))

	case actions.KindAttackRanged:
		return c.settle(env.RangedAttack(me, a.Target))

	case actions.KindAttackRangedMass:
		code := env.RangedMassAttack(me)
		if !code.OK() {
			c.log.Info().Str("code", string(code)).Msg("mass attack failed")
		}
		return c.pop(OutcomeDone, code)

	case actions.KindGetBoosted:
		code := env.Boost(a.Target, me)
		if code.OK() {
			return c.pop(OutcomeDone, code)
		}
		return c.settle(code)

	case actions.KindGetRenewed:
		if c.agent.TicksToLive >= in.tuning.RenewUntil {
			return c.pop(OutcomeDone, world.OK)
		}
		code := env.Renew(a.Target, me)
		if code == world.ErrFull {
			return c.pop(OutcomeDone, code)
		}
		return c.settle(code)
	}

	c.log.Error().Msg("no handler for action kind, dropping")
	return c.pop(OutcomeDropped, world.ErrInvalidArgs)
}

// finish completes an *_ALL transfer: after one successful command one side
// is at its limit, so the action is done.
func (c *call) finish(code world.Code) Result {
	if code.OK() {
		return c.pop(OutcomeDone, code)
	}
	return c.settle(code)
}

// partial advances an *_AMOUNT transfer by n units.
func (c *call) partial(n int, do func() world.Code) Result {
	if n <= 0 {
		return c.pop(OutcomeDone, world.OK)
	}
	code := do()
	if !code.OK() {
		return c.settle(code)
	}
	c.act.Moved += n
	if c.act.Moved >= c.act.Amount {
		return c.pop(OutcomeDone, code)
	}
	return c.pending(code)
}
