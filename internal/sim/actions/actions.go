package actions

import (
	"fmt"

	"hivectl.ai/internal/sim/geom"
	"hivectl.ai/internal/sim/world"
)

type Kind string

const (
	KindGoTo              Kind = "GO_TO"
	KindGoToRanged        Kind = "GO_TO_RANGED"
	KindGoToRoom          Kind = "GO_TO_ROOM"
	KindTransferAll       Kind = "TRANSFER_ALL"
	KindTransferAmount    Kind = "TRANSFER_AMOUNT"
	KindWithdrawAll       Kind = "WITHDRAW_ALL"
	KindWithdrawAmount    Kind = "WITHDRAW_AMOUNT"
	KindPickupAll         Kind = "PICKUP_ALL"
	KindPickupAmount      Kind = "PICKUP_AMOUNT"
	KindHarvest           Kind = "HARVEST"
	KindBuild             Kind = "BUILD"
	KindDismantle         Kind = "DISMANTLE"
	KindRepair            Kind = "REPAIR"
	KindFortify           Kind = "FORTIFY"
	KindControllerAttack  Kind = "CONTROLLER_ATTACK"
	KindControllerClaim   Kind = "CONTROLLER_CLAIM"
	KindControllerUpgrade Kind = "CONTROLLER_UPGRADE"
	KindControllerReserve Kind = "CONTROLLER_RESERVE"
	KindHeal              Kind = "HEAL"
	KindHealRanged        Kind = "HEAL_RANGED"
	KindAttackMelee       Kind = "ATTACK_MELEE"
	KindAttackRanged      Kind = "ATTACK_RANGED"
	KindAttackRangedMass  Kind = "ATTACK_RANGED_MASS"
	KindGetBoosted        Kind = "GET_BOOSTED"
	KindGetRenewed        Kind = "GET_RENEWED"
)

// Action is one queued intent. Only ids and positions are stored: live
// objects are resolved again every time the action runs.
type Action struct {
	Kind Kind `json:"kind"`

	Pos   *geom.Pos `json:"pos,omitempty"`
	Range int       `json:"range,omitempty"`
	Room  string    `json:"room,omitempty"`

	Target   string         `json:"target,omitempty"`
	Resource world.Resource `json:"resource,omitempty"`
	Amount   int            `json:"amount,omitempty"`

	// Moved is the quantity already transferred by an *_AMOUNT action.
	Moved int `json:"moved,omitempty"`
	// Misses counts consecutive ticks the target failed to resolve.
	Misses int `json:"misses,omitempty"`
}

func (a Action) String() string {
	switch {
	case a.Pos != nil:
		return fmt.Sprintf("%s%s/%d", a.Kind, a.Pos, a.Range)
	case a.Room != "":
		return fmt.Sprintf("%s(%s)", a.Kind, a.Room)
	case a.Target != "":
		return fmt.Sprintf("%s(%s)", a.Kind, a.Target)
	}
	return string(a.Kind)
}

func GoTo(pos geom.Pos) Action {
	return Action{Kind: KindGoTo, Pos: &pos}
}

func GoToRanged(pos geom.Pos, r int) Action {
	return Action{Kind: KindGoToRanged, Pos: &pos, Range: r}
}

func GoToRoom(room string) Action {
	return Action{Kind: KindGoToRoom, Room: room}
}

func TransferAll(target string, r world.Resource) Action {
	return Action{Kind: KindTransferAll, Target: target, Resource: r}
}

func TransferAmount(target string, r world.Resource, amount int) Action {
	return Action{Kind: KindTransferAmount, Target: target, Resource: r, Amount: amount}
}

func WithdrawAll(target string, r world.Resource) Action {
	return Action{Kind: KindWithdrawAll, Target: target, Resource: r}
}

func WithdrawAmount(target string, r world.Resource, amount int) Action {
	return Action{Kind: KindWithdrawAmount, Target: target, Resource: r, Amount: amount}
}

func PickupAll(target string) Action {
	return Action{Kind: KindPickupAll, Target: target}
}

func PickupAmount(target string, amount int) Action {
	return Action{Kind: KindPickupAmount, Target: target, Amount: amount}
}

// Fortify repairs target until it reaches hits; zero means full health.
func Fortify(target string, hits int) Action {
	return Action{Kind: KindFortify, Target: target, Amount: hits}
}

func AttackRangedMass() Action {
	return Action{Kind: KindAttackRangedMass}
}

// On builds any single-target action of kind k.
func On(k Kind, target string) Action {
	return Action{Kind: k, Target: target}
}
