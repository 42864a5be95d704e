// Package ipc carries control commands from the voce CLI to the running
// daemon over a unix socket, one JSON line each way.
package ipc

// Commands understood by the daemon.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandStop   = "stop"
	CommandCancel = "cancel"
)

type Request struct {
	Command string `json:"command"`
}

// Response reports the daemon state after a command. Recording and
// Processing mirror the shared recording flag at reply time.
type Response struct {
	OK         bool   `json:"ok"`
	State      string `json:"state,omitempty"`
	Recording  bool   `json:"recording"`
	Processing bool   `json:"processing"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}
