// internal/control/types.go
package control

import (
	"encoding/json"
	"time"

	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/engine"
	"github.com/jdharms/termynal/internal/player"
)

// Command is a control request received over the websocket
type Command struct {
	Command string `json:"command"`
	Index   *int   `json:"index,omitempty"`
}

// Commands accepted by the REST action route and the websocket
const (
	CommandStart   = "start"
	CommandPause   = "pause"
	CommandResume  = "resume"
	CommandToggle  = "toggle"
	CommandRestart = "restart"
	CommandStop    = "stop"
	CommandClear   = "clear"
	CommandSpeed   = "speed"
	CommandFast    = "fast"
	CommandNormal  = "normal"
	CommandSkip    = "skip"
	CommandStatus  = "status"
	CommandPing    = "ping"
)

// Message types sent to websocket clients
const (
	MessageEvent  = "event"
	MessageStatus = "status"
	MessageError  = "error"
	MessagePong   = "pong"
)

// Message is a frame sent to websocket clients
type Message struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Event     *engine.Event  `json:"event,omitempty"`
	Status    *player.Status `json:"status,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed REST request
type ErrorResponse struct {
	Error string `json:"error"`
}

// AddLinesRequest is the body of POST /instances/{id}/lines. A missing
// index appends.
type AddLinesRequest struct {
	Lines []config.Line `json:"lines"`
	Index *int          `json:"index,omitempty"`
}

// ConfigUpdateRequest is the body of PUT /instances/{id}/config
type ConfigUpdateRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ID          string    `json:"id"`
	Instance    string    `json:"instance"`
	RemoteAddr  string    `json:"remoteAddr"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// ServerStats contains statistics about the control server
type ServerStats struct {
	Running     bool         `json:"running"`
	Address     string       `json:"address"`
	StartTime   time.Time    `json:"startTime,omitempty"`
	Instances   int          `json:"instances"`
	ClientCount int          `json:"clientCount"`
	Clients     []ClientInfo `json:"clients"`
}
