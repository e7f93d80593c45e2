package proto

import "encoding/json"

// Inbound is the envelope for messages coming from a device.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinRoom     = "join-room"
	InboundTypeLeaveRoom    = "leave-room"
	InboundTypeOffer        = "offer"
	InboundTypeAnswer       = "answer"
	InboundTypeIceCandidate = "ice-candidate"
	InboundTypeFileInfo     = "file-info"
	InboundTypeFileChunk    = "file-chunk"
	InboundTypeFileComplete = "file-complete"
	InboundTypePing         = "ping"

	OutboundTypeUsersInRoom = "users-in-room"
	OutboundTypeUserJoined  = "user-joined"
	OutboundTypeUserLeft    = "user-left"
	OutboundTypeRoomStatus  = "room-status"
	OutboundTypePong        = "pong"
	OutboundTypeError       = "error"
)

// JoinData requests membership in a room. The code is sanitized
// server-side before validation.
type JoinData struct {
	Room string `json:"room"`
}

// LeaveData requests leaving a room.
type LeaveData struct {
	Room string `json:"room"`
}

// SignalData carries a connection-negotiation payload to one target
// connection. The relay forwards the payload verbatim and never
// inspects it.
type SignalData struct {
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

// FileInfoData announces an upcoming transfer to a room.
type FileInfoData struct {
	Room     string `json:"room"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

// FileChunkData carries one base64-encoded slice of the file.
type FileChunkData struct {
	Room       string `json:"room"`
	FileID     string `json:"fileId"`
	ChunkIndex int    `json:"chunkIndex"`
	Data       string `json:"data"`
	IsLast     bool   `json:"isLast"`
}

// FileCompleteData marks the end of a transfer.
type FileCompleteData struct {
	Room   string `json:"room"`
	FileID string `json:"fileId"`
}

// PingData is the client heartbeat. Timestamp is the sender's local
// clock in Unix milliseconds; the flags describe transfer activity.
type PingData struct {
	Timestamp    int64 `json:"timestamp"`
	Transferring bool  `json:"transferring,omitempty"`
	Background   bool  `json:"background,omitempty"`
}

// PongData echoes the ping timestamp together with the server clock.
type PongData struct {
	Timestamp  int64 `json:"timestamp"`
	ServerTime int64 `json:"serverTime"`
}

// UsersInRoomData lists current members, excluding the addressee.
type UsersInRoomData struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// UserEventData notifies about a single member joining or leaving.
type UserEventData struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// RoomStatusData is the room summary broadcast to every member.
type RoomStatusData struct {
	Room  string   `json:"room"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// Outbound is the envelope for messages sent to a device. From is the
// connection id of the originating device for relayed events.
type Outbound struct {
	Type  string          `json:"type"`
	From  string          `json:"from,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
