package world

type Code string

const (
	OK                  Code = "OK"
	ErrNotOwner         Code = "E_NOT_OWNER"
	ErrNoPath           Code = "E_NO_PATH"
	ErrNameExists       Code = "E_NAME_EXISTS"
	ErrBusy             Code = "E_BUSY"
	ErrNotFound         Code = "E_NOT_FOUND"
	ErrNotEnoughEnergy  Code = "E_NOT_ENOUGH_RESOURCES"
	ErrInvalidTarget    Code = "E_INVALID_TARGET"
	ErrFull             Code = "E_FULL"
	ErrNotInRange       Code = "E_NOT_IN_RANGE"
	ErrInvalidArgs      Code = "E_INVALID_ARGS"
	ErrTired            Code = "E_TIRED"
	ErrNoBodypart       Code = "E_NO_BODYPART"
	ErrControllerLocked Code = "E_RCL_NOT_ENOUGH"
)

var transient = map[Code]struct{}{
	ErrNoPath:          {},
	ErrBusy:            {},
	ErrNotEnoughEnergy: {},
	ErrNotInRange:      {},
	ErrTired:           {},
}

// Transient reports whether a failed command is worth retrying next tick.
func (c Code) Transient() bool {
	_, ok := transient[c]
	return ok
}

func (c Code) OK() bool { return c == OK }
