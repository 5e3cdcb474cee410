package controller

// TickLogEntry summarizes one tick for the tick log, metrics and observers.
type TickLogEntry struct {
	Tick   uint64 `json:"tick"`
	Agents int    `json:"agents"`

	ConfigError string         `json:"config_error,omitempty"`
	Reclaimed   map[string]int `json:"reclaimed,omitempty"`
	Spawns      []SpawnEntry   `json:"spawns,omitempty"`
	Actions     []ActionEntry  `json:"actions,omitempty"`
	// Skipped lists namespace/key of records that failed to load this tick.
	Skipped []string `json:"skipped,omitempty"`

	Writes int      `json:"writes"`
	Errors []string `json:"errors,omitempty"`
}

type SpawnEntry struct {
	Room  string `json:"room"`
	Spawn string `json:"spawn,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Equip string `json:"equip,omitempty"`
	Code  string `json:"code,omitempty"`
	Skip  string `json:"skip,omitempty"`
}

type ActionEntry struct {
	Agent    string `json:"agent"`
	Kind     string `json:"kind"`
	Outcome  string `json:"outcome"`
	Code     string `json:"code,omitempty"`
	Injected bool   `json:"injected,omitempty"`
}

// FailureEntry records a tick that escaped the controller.
type FailureEntry struct {
	Tick  uint64   `json:"tick"`
	Kind  string   `json:"kind"` // panic or error
	Error string   `json:"error"`
	Chain []string `json:"chain,omitempty"`
	Stack string   `json:"stack,omitempty"`
}

// TickSink receives the summary of every completed tick.
type TickSink interface {
	WriteTick(TickLogEntry) error
}

// FailureSink receives failures caught by the Runner.
type FailureSink interface {
	WriteFailure(FailureEntry) error
}
