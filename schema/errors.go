package schema

import "errors"

var (
	// ErrUnknownMessageType indicates a wire message with an unrecognized type.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrInvalidMessage indicates a malformed wire payload.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrInvalidRole indicates a role that is neither teacher nor student.
	ErrInvalidRole = errors.New("invalid role")
	// ErrWrongPassword indicates the presenter secret did not match.
	ErrWrongPassword = errors.New("wrong password")
	// ErrTeacherOnly indicates a command reserved for the teacher role.
	ErrTeacherOnly = errors.New("teacher only")
	// ErrNotConnected indicates the sync client has no live connection.
	ErrNotConnected = errors.New("not connected")
	// ErrHubClosed indicates the hub has shut down.
	ErrHubClosed = errors.New("hub closed")
)
