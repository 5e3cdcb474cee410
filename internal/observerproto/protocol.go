// Package observerproto defines the JSON messages exchanged with tick observers.
package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeHello     = "HELLO"
	TypeTick      = "TICK"
	TypeFailure   = "FAILURE"
)

// Client -> Server. First message on the connection; may be re-sent to change
// filters. Empty filters match everything.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Agents          []string `json:"agents,omitempty"`
	Rooms           []string `json:"rooms,omitempty"`
	// SkipActions drops the per-agent action list from TICK messages.
	SkipActions bool `json:"skip_actions,omitempty"`
}

// Server -> Client. Acknowledges a SUBSCRIBE.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	Tick            uint64 `json:"tick"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Observers       int    `json:"observers"`
	Dropped         uint64 `json:"dropped"`
}

// Server -> Client. Sent once per completed tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Agents      int            `json:"agents"`
	Writes      int            `json:"writes"`
	ConfigError string         `json:"config_error,omitempty"`
	Reclaimed   map[string]int `json:"reclaimed,omitempty"`
	Spawns      []SpawnMsg     `json:"spawns,omitempty"`
	Actions     []ActionMsg    `json:"actions,omitempty"`
	Skipped     []string       `json:"skipped,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
}

type SpawnMsg struct {
	Room  string `json:"room"`
	Spawn string `json:"spawn,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Code  string `json:"code,omitempty"`
	Skip  string `json:"skip,omitempty"`
}

type ActionMsg struct {
	Agent    string `json:"agent"`
	Kind     string `json:"kind"`
	Outcome  string `json:"outcome"`
	Code     string `json:"code,omitempty"`
	Injected bool   `json:"injected,omitempty"`
}

// Server -> Client. Sent when a tick fails and the controller is rebuilt.
type FailureMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Kind            string `json:"kind"`
	Error           string `json:"error"`
}
