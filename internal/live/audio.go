package live

import (
	"context"
	"encoding/binary"

	"go.uber.org/zap"
)

// AudioRelay validates inbound binary frames and fans them out, unmodified,
// to the sender's room. Oversized and all-silent frames are dropped without
// surfacing an error to anyone.
type AudioRelay struct {
	store            Store
	registry         *Registry
	broadcast        *Broadcaster
	maxFrameBytes    int
	silenceThreshold int16
	logger           *zap.Logger
}

// NewAudioRelay creates the binary relay path.
func NewAudioRelay(store Store, registry *Registry, broadcast *Broadcaster, maxFrameBytes, silenceThreshold int, logger *zap.Logger) *AudioRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudioRelay{
		store:            store,
		registry:         registry,
		broadcast:        broadcast,
		maxFrameBytes:    maxFrameBytes,
		silenceThreshold: int16(silenceThreshold),
		logger:           logger,
	}
}

// isSilent interprets the frame as consecutive little-endian int16 samples
// and reports whether every sample's magnitude stays at or below the
// threshold. A trailing odd byte carries no complete sample and is ignored.
func isSilent(frame []byte, threshold int16) bool {
	for i := 0; i+1 < len(frame); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(frame[i:]))
		if sample > threshold || sample < -threshold {
			return false
		}
	}
	return true
}

// resolveRoom finds the sender's room. The registry index is authoritative
// for sessions this process registered; the store scan covers handles whose
// binding predates the index.
func (r *AudioRelay) resolveRoom(ctx context.Context, senderSessionID string) (*RoomState, bool) {
	if roomID, ok := r.registry.RoomOf(senderSessionID); ok {
		state, err := r.store.GetRoom(ctx, roomID)
		if err != nil || state == nil {
			return nil, false
		}
		return state, true
	}

	roomIDs, err := r.store.ListRoomIDs(ctx)
	if err != nil {
		r.logger.Warn("room scan failed", zap.Error(err))
		return nil, false
	}
	for _, roomID := range roomIDs {
		state, err := r.store.GetRoom(ctx, roomID)
		if err != nil || state == nil {
			continue
		}
		if state.HasSession(senderSessionID) {
			r.registry.Bind(senderSessionID, roomID)
			return state, true
		}
	}
	return nil, false
}

// Relay handles one binary frame from a sender.
func (r *AudioRelay) Relay(ctx context.Context, senderSessionID string, frame []byte) {
	if len(frame) > r.maxFrameBytes {
		r.logger.Debug("dropping oversized audio frame",
			zap.String("session_id", senderSessionID), zap.Int("bytes", len(frame)))
		return
	}
	if isSilent(frame, r.silenceThreshold) {
		return
	}

	state, ok := r.resolveRoom(ctx, senderSessionID)
	if !ok {
		r.logger.Debug("no room for audio sender", zap.String("session_id", senderSessionID))
		return
	}
	r.broadcast.RelayBinary(ctx, state, senderSessionID, frame)
}
