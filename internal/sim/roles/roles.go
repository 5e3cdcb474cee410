package roles

type Role string

const (
	Generic     Role = ""
	Harvester   Role = "H"
	Transporter Role = "T"
	Builder     Role = "B"
	Upgrader    Role = "U"
	Attacker    Role = "A"
)

var names = map[Role]string{
	Generic:     "generic",
	Harvester:   "harvester",
	Transporter: "transporter",
	Builder:     "builder",
	Upgrader:    "upgrader",
	Attacker:    "attacker",
}

// Known reports whether r is one of the built-in role tags. Unknown tags are
// still carried through memory untouched.
func Known(r Role) bool {
	_, ok := names[r]
	return ok
}

// Name is the human readable role name used in logs.
func (r Role) Name() string {
	if n, ok := names[r]; ok {
		return n
	}
	return "role(" + string(r) + ")"
}

// Counts groups live role tags.
type Counts map[Role]int

func (c Counts) Add(r Role) { c[r]++ }
