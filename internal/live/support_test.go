package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// memStore is an in-memory Store used across the package tests so room
// lifecycle, dispatch, and fan-out run without Redis.
type memStore struct {
	mu        sync.Mutex
	rooms     map[string]string // roomID -> JSON document
	pointers  map[string]string
	chats     map[string][]ChatEntry
	chatLimit int
}

func newMemStore() *memStore {
	return &memStore{
		rooms:     make(map[string]string),
		pointers:  make(map[string]string),
		chats:     make(map[string][]ChatEntry),
		chatLimit: 100,
	}
}

func (s *memStore) CreateRoom(_ context.Context, state *RoomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[state.RoomID] = string(raw)
	return nil
}

func (s *memStore) GetRoom(_ context.Context, roomID string) (*RoomState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	var state RoomState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *memStore) UpdateRoom(_ context.Context, roomID string, fn func(*RoomState) error) (*RoomState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	var state RoomState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, err
	}
	if err := fn(&state); err != nil {
		return nil, err
	}
	state.Version++
	buf, err := json.Marshal(&state)
	if err != nil {
		return nil, err
	}
	s.rooms[roomID] = string(buf)
	return &state, nil
}

func (s *memStore) DeleteRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *memStore) ListRoomIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memStore) SetSessionPointer(_ context.Context, kind SessionKind, identity, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointers[sessionKey(kind, identity)] = sessionID
	return nil
}

func (s *memStore) SessionPointer(_ context.Context, kind SessionKind, identity string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointers[sessionKey(kind, identity)], nil
}

func (s *memStore) DeleteSessionPointer(_ context.Context, kind SessionKind, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pointers, sessionKey(kind, identity))
	return nil
}

func (s *memStore) AppendChat(_ context.Context, roomID string, entry ChatEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := append(s.chats[roomID], entry)
	if len(log) > s.chatLimit {
		log = log[len(log)-s.chatLimit:]
	}
	s.chats[roomID] = log
	return nil
}

func (s *memStore) ChatHistory(_ context.Context, roomID string) ([]ChatEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatEntry, len(s.chats[roomID]))
	copy(out, s.chats[roomID])
	return out, nil
}

func (s *memStore) DeleteChat(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, roomID)
	return nil
}

// fakeConn records deliveries in place of a real socket.
type fakeConn struct {
	id   string
	mu   sync.Mutex
	sent []interface{}
	bins [][]byte
	fail bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) SessionID() string { return f.id }

func (f *fakeConn) SendJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrConnClosed
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) SendBinary(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrConnClosed
	}
	f.bins = append(f.bins, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) payloads() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) binaries() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.bins))
	copy(out, f.bins)
	return out
}

// fakeDirectory is a static identity directory.
type fakeDirectory map[string]string

func (d fakeDirectory) DisplayNameByID(_ context.Context, identity string) (string, error) {
	return d[identity], nil
}

// fakeEvents records durable event calls.
type fakeEvents struct {
	mu      sync.Mutex
	created []string
	ended   []string
	fail    bool
}

func (e *fakeEvents) CreateEvent(_ context.Context, roomID, _, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return fmt.Errorf("durable store down")
	}
	e.created = append(e.created, roomID)
	return nil
}

func (e *fakeEvents) MarkEventEnded(_ context.Context, roomID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ended = append(e.ended, roomID)
	return nil
}

func (e *fakeEvents) endedRooms() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.ended))
	copy(out, e.ended)
	return out
}

// newTestRoomService wires the core over the in-memory store.
func newTestRoomService(store Store) (*RoomService, *Registry, *Broadcaster, *fakeEvents) {
	registry := NewRegistry()
	broadcast := NewBroadcaster(store, registry, zap.NewNop())
	durable := &fakeEvents{}
	directory := fakeDirectory{"42": "DJ Prime", "7": "Alice"}
	rooms := NewRoomService(store, registry, broadcast, durable, directory, "ws://localhost:8080", zap.NewNop())
	return rooms, registry, broadcast, durable
}

// joinConn registers a fake connection and joins it to a room.
func joinConn(t interface {
	Helper()
	Fatalf(string, ...interface{})
}, rooms *RoomService, registry *Registry, roomID, userID, name, sessionID string) *fakeConn {
	t.Helper()
	conn := newFakeConn(sessionID)
	registry.Add(conn)
	if _, _, err := rooms.Join(context.Background(), roomID, userID, name, sessionID); err != nil {
		t.Fatalf("join %s: %v", userID, err)
	}
	return conn
}
