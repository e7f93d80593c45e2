package core

import "errors"

// Error codes for structured error events. None of these disconnect
// the offending client; the request is rejected and the session stays up.
const (
	ErrCodeInvalidRoomCode = "invalid_room_code"
	ErrCodeRoomFull        = "room_full"
	ErrCodeRateLimited     = "rate_limited"
)

var (
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrRoomFull        = errors.New("room full")
	ErrRateLimited     = errors.New("rate limited")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
