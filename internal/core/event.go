package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUsersInRoom delivers the current member list to a joiner.
	EventUsersInRoom EventKind = iota
	// EventUserJoined notifies members about a new member.
	EventUserJoined
	// EventUserLeft notifies members that a member left or disconnected.
	EventUserLeft
	// EventRoomStatus delivers the room summary to every member.
	EventRoomStatus
	// EventRelay carries a forwarded payload, tagged with the sender id.
	EventRelay
	// EventPong answers a heartbeat ping.
	EventPong
	// EventError notifies a client about a rejected request.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind  EventKind
	Room  string
	User  string   // joined/left member id
	Users []string // users-in-room, room-status
	Count int      // room-status

	// Relay fields: the original wire type, the sender connection id,
	// and the untouched payload.
	Relay   string
	From    string
	Payload json.RawMessage

	Pong  *Pong
	Error *CoreError
}

// Pong carries the echoed client timestamp plus the server clock,
// both in Unix milliseconds.
type Pong struct {
	Timestamp  int64
	ServerTime int64
}
