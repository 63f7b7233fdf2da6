// Package control is the local IPC channel between a running monitor and
// the `stop` and `status` commands: one JSON request and one JSON response
// per unix-socket connection.
package control

import "ble-autolock.klederson.com/internal/monitor"

const (
	CmdStatus = "status"
	CmdStop   = "stop"
)

// Request is sent from the CLI client to the running monitor.
type Request struct {
	Command string `json:"command"` // "status" | "stop"
}

// Response is sent back from the running monitor.
type Response struct {
	PID    int             `json:"pid,omitempty"`
	Status *monitor.Status `json:"status,omitempty"`
	Error  string          `json:"error,omitempty"`
}
