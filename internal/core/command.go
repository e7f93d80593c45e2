package core

import "encoding/json"

// CommandKind describes what the device wants the relay to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a room, gated by the
	// rate limiter.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the client from a room.
	CommandLeaveRoom
	// CommandRelayDirect forwards a payload to one named connection.
	CommandRelayDirect
	// CommandRelayRoom fans a payload out to all other room members.
	CommandRelayRoom
	// CommandPing requests a heartbeat echo.
	CommandPing
)

// Command represents an action requested by a client. Payload is kept
// opaque for relay commands; the hub forwards it without inspection
// (file-info is the one exception, parsed for the transfer log).
type Command struct {
	Kind    CommandKind
	Room    string
	Target  string
	Relay   string // original wire type for relay commands
	Payload json.RawMessage

	// PingTimestamp is the sender's clock from a ping command,
	// echoed back in the pong.
	PingTimestamp int64
}
