package live

import "errors"

// Failure classes for live room operations. Connect-time lookups close the
// connection; protocol-time lookups report to the sender and keep it open.
var (
	// ErrRoomNotFound means no state-store document exists for the room id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomInactive means the room document exists but the room has ended.
	ErrRoomInactive = errors.New("room is not active")
	// ErrHostNotFound means the connecting host id has no directory entry.
	ErrHostNotFound = errors.New("host not found")
	// ErrParticipantNotFound means the target identity is not on the roster.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrConnClosed is returned by sends on a connection whose write loop exited.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a recipient cannot keep up with delivery.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrUpdateConflict means a room document write kept losing the version
	// race past the retry budget.
	ErrUpdateConflict = errors.New("room update conflict")
)
