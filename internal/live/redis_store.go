package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	roomKeyPrefix               = "room:"
	chatKeyPrefix               = "chat:"
	participantSessionKeyPrefix = "participant-session:"
	hostSessionKeyPrefix        = "host-session:"

	// casAttempts bounds the optimistic-write retry loop per mutation.
	casAttempts = 8
)

// RedisStore implements Store on Redis. Room documents are JSON strings
// mutated under WATCH so a racing writer fails the transaction and retries
// against the fresh document instead of overwriting it.
type RedisStore struct {
	client    *redis.Client
	timeout   time.Duration
	chatLimit int64
	logger    *zap.Logger
}

// NewRedisStore creates a Redis-backed room state store. Every call is
// bounded by timeout; chatLimit caps each room's chat list.
func NewRedisStore(client *redis.Client, timeout time.Duration, chatLimit int, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client:    client,
		timeout:   timeout,
		chatLimit: int64(chatLimit),
		logger:    logger,
	}
}

func (s *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func sessionKey(kind SessionKind, identity string) string {
	if kind == SessionHost {
		return hostSessionKeyPrefix + identity
	}
	return participantSessionKeyPrefix + identity
}

// CreateRoom writes the initial document for a room.
func (s *RedisStore) CreateRoom(ctx context.Context, state *RoomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.client.Set(ctx, roomKeyPrefix+state.RoomID, raw, 0).Err(); err != nil {
		return fmt.Errorf("set room: %w", err)
	}
	return nil
}

// GetRoom loads a room document. Returns (nil, nil) when absent.
func (s *RedisStore) GetRoom(ctx context.Context, roomID string) (*RoomState, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	raw, err := s.client.Get(ctx, roomKeyPrefix+roomID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	var state RoomState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("unmarshal room: %w", err)
	}
	return &state, nil
}

// UpdateRoom applies fn under WATCH and retries on version conflict.
func (s *RedisStore) UpdateRoom(ctx context.Context, roomID string, fn func(*RoomState) error) (*RoomState, error) {
	key := roomKeyPrefix + roomID
	var updated *RoomState

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("get room: %w", err)
		}
		var state RoomState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return fmt.Errorf("unmarshal room: %w", err)
		}
		if err := fn(&state); err != nil {
			return err
		}
		state.Version++
		buf, err := json.Marshal(&state)
		if err != nil {
			return fmt.Errorf("marshal room: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &state
		return nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	for i := 0; i < casAttempts; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			s.logger.Debug("room write conflict, retrying", zap.String("room_id", roomID), zap.Int("attempt", i+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUpdateConflict, roomID)
}

// DeleteRoom removes the room document.
func (s *RedisStore) DeleteRoom(ctx context.Context, roomID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Del(ctx, roomKeyPrefix+roomID).Err()
}

// ListRoomIDs scans the room keyspace and returns the room ids.
func (s *RedisStore) ListRoomIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	var ids []string
	iter := s.client.Scan(ctx, 0, roomKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(roomKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	return ids, nil
}

// SetSessionPointer publishes an identity -> session-id association.
func (s *RedisStore) SetSessionPointer(ctx context.Context, kind SessionKind, identity, sessionID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Set(ctx, sessionKey(kind, identity), sessionID, 0).Err()
}

// SessionPointer resolves an identity to a session id; "" when absent.
func (s *RedisStore) SessionPointer(ctx context.Context, kind SessionKind, identity string) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	sessionID, err := s.client.Get(ctx, sessionKey(kind, identity)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session pointer: %w", err)
	}
	return sessionID, nil
}

// DeleteSessionPointer removes an identity's session pointer.
func (s *RedisStore) DeleteSessionPointer(ctx context.Context, kind SessionKind, identity string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Del(ctx, sessionKey(kind, identity)).Err()
}

// AppendChat pushes an entry and trims the list to the most recent chatLimit
// entries, evicting the oldest first.
func (s *RedisStore) AppendChat(ctx context.Context, roomID string, entry ChatEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal chat entry: %w", err)
	}
	key := chatKeyPrefix + roomID
	ctx, cancel := s.bound(ctx)
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -s.chatLimit, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append chat: %w", err)
	}
	return nil
}

// ChatHistory returns the room's chat log, oldest first.
func (s *RedisStore) ChatHistory(ctx context.Context, roomID string) ([]ChatEntry, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	raws, err := s.client.LRange(ctx, chatKeyPrefix+roomID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	entries := make([]ChatEntry, 0, len(raws))
	for _, raw := range raws {
		var e ChatEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			s.logger.Warn("skipping malformed chat entry", zap.String("room_id", roomID), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DeleteChat removes a room's chat log.
func (s *RedisStore) DeleteChat(ctx context.Context, roomID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Del(ctx, chatKeyPrefix+roomID).Err()
}
