package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeRoomFull        = "room_full"
	ErrCodeInvalidNickname = "invalid_nickname"
	ErrCodeInvalidSettings = "invalid_settings"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeInvalidPhase    = "invalid_phase"
	ErrCodeNotInRoom       = "not_in_room"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeRateLimited     = "rate_limited"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room full")
	ErrInvalidNickname = errors.New("invalid nickname")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidPhase    = errors.New("invalid phase")
	ErrNotInRoom       = errors.New("not in room")
)

// Error wraps a code and human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}
