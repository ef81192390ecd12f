package live

import "context"

// SessionKind distinguishes the two session pointer keyspaces.
type SessionKind int

const (
	// SessionParticipant maps participant-session:{participantId} -> session id.
	SessionParticipant SessionKind = iota
	// SessionHost maps host-session:{hostId} -> session id.
	SessionHost
)

// Store is the shared room state store. One document per room, one bounded
// chat list per room, and identity -> session-id pointers. UpdateRoom is the
// only way to mutate an existing document: implementations must apply the
// mutation atomically per room (versioned compare-and-swap, retried on
// conflict) so concurrent writers never silently lose an update.
type Store interface {
	CreateRoom(ctx context.Context, state *RoomState) error
	// GetRoom returns (nil, nil) when no document exists for the room id.
	GetRoom(ctx context.Context, roomID string) (*RoomState, error)
	// UpdateRoom loads the document, applies fn, and writes it back under a
	// version check. Returns ErrRoomNotFound when the document is absent and
	// the state as written on success.
	UpdateRoom(ctx context.Context, roomID string, fn func(*RoomState) error) (*RoomState, error)
	DeleteRoom(ctx context.Context, roomID string) error
	ListRoomIDs(ctx context.Context) ([]string, error)

	SetSessionPointer(ctx context.Context, kind SessionKind, identity, sessionID string) error
	// SessionPointer returns "" with nil error when no pointer exists.
	SessionPointer(ctx context.Context, kind SessionKind, identity string) (string, error)
	DeleteSessionPointer(ctx context.Context, kind SessionKind, identity string) error

	AppendChat(ctx context.Context, roomID string, entry ChatEntry) error
	ChatHistory(ctx context.Context, roomID string) ([]ChatEntry, error)
	DeleteChat(ctx context.Context, roomID string) error
}
