package live

import (
	"context"

	"go.uber.org/zap"
)

// Broadcaster is the fan-out engine: it resolves a room's roster and host to
// reachable connection handles and delivers one payload to each. A failed
// delivery prunes that one recipient (store pointer and registry entry) and
// never aborts the remainder. A pointer whose handle this process does not
// own is skipped, not retried.
type Broadcaster struct {
	store    Store
	registry *Registry
	logger   *zap.Logger
}

// NewBroadcaster creates a fan-out engine over the store and registry.
func NewBroadcaster(store Store, registry *Registry, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{store: store, registry: registry, logger: logger}
}

// member is one resolved fan-out target.
type member struct {
	kind     SessionKind
	identity string
}

func (b *Broadcaster) members(state *RoomState) []member {
	out := make([]member, 0, len(state.Participants)+1)
	out = append(out, member{kind: SessionHost, identity: state.HostID})
	for _, p := range state.Participants {
		out = append(out, member{kind: SessionParticipant, identity: p.ID})
	}
	return out
}

// resolve maps a member to its local connection handle. The second return is
// false when the member is unreachable from this process.
func (b *Broadcaster) resolve(ctx context.Context, m member) (Conn, string, bool) {
	sessionID, err := b.store.SessionPointer(ctx, m.kind, m.identity)
	if err != nil {
		b.logger.Warn("session pointer lookup failed", zap.String("identity", m.identity), zap.Error(err))
		return nil, "", false
	}
	if sessionID == "" {
		return nil, "", false
	}
	conn, ok := b.registry.Get(sessionID)
	if !ok {
		// Pointer exists but the socket lives elsewhere (or is gone).
		return nil, sessionID, false
	}
	return conn, sessionID, true
}

// prune removes the one failed recipient's pointer and registry entry.
func (b *Broadcaster) prune(ctx context.Context, m member, sessionID string) {
	if err := b.store.DeleteSessionPointer(ctx, m.kind, m.identity); err != nil {
		b.logger.Warn("prune pointer failed", zap.String("identity", m.identity), zap.Error(err))
	}
	b.registry.Remove(sessionID)
	b.logger.Debug("pruned unreachable recipient",
		zap.String("identity", m.identity), zap.String("session_id", sessionID))
}

// ToRoom delivers a JSON payload to the room's host and every roster entry.
func (b *Broadcaster) ToRoom(ctx context.Context, state *RoomState, payload interface{}) {
	for _, m := range b.members(state) {
		conn, sessionID, ok := b.resolve(ctx, m)
		if !ok {
			continue
		}
		if err := conn.SendJSON(payload); err != nil {
			b.prune(ctx, m, sessionID)
		}
	}
}

// ToRoomID loads the room document and fans out to it. Missing rooms are a
// no-op: the roster no longer exists to deliver to.
func (b *Broadcaster) ToRoomID(ctx context.Context, roomID string, payload interface{}) {
	state, err := b.store.GetRoom(ctx, roomID)
	if err != nil {
		b.logger.Warn("broadcast load room failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	if state == nil {
		return
	}
	b.ToRoom(ctx, state, payload)
}

// ToParticipant delivers a JSON payload to a single roster member.
// Returns false when the member could not be reached.
func (b *Broadcaster) ToParticipant(ctx context.Context, participantID string, payload interface{}) bool {
	m := member{kind: SessionParticipant, identity: participantID}
	conn, sessionID, ok := b.resolve(ctx, m)
	if !ok {
		return false
	}
	if err := conn.SendJSON(payload); err != nil {
		b.prune(ctx, m, sessionID)
		return false
	}
	return true
}

// RelayBinary delivers a raw frame to every room member except the sender's
// own session. Frame relay is fire-and-forget per recipient.
func (b *Broadcaster) RelayBinary(ctx context.Context, state *RoomState, senderSessionID string, frame []byte) {
	for _, m := range b.members(state) {
		conn, sessionID, ok := b.resolve(ctx, m)
		if !ok || sessionID == senderSessionID {
			continue
		}
		if err := conn.SendBinary(frame); err != nil {
			b.prune(ctx, m, sessionID)
		}
	}
}
