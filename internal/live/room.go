package live

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityDirectory resolves a numeric identity to a display name. Returns
// "" with nil error when the identity is unknown.
type IdentityDirectory interface {
	DisplayNameByID(ctx context.Context, identity string) (string, error)
}

// DurableEvents is the durable room record collaborator.
type DurableEvents interface {
	CreateEvent(ctx context.Context, roomID, hostID, streamType string) error
	MarkEventEnded(ctx context.Context, roomID string) error
}

// FirstJoinFunc is invoked asynchronously for every first-time (non-
// reconnecting) join so participation can be recorded without blocking
// the join acknowledgment.
type FirstJoinFunc func(roomID, userID, username string, total int)

// RoomService owns room lifecycle: creation on host connect, participant
// joins, and termination.
type RoomService struct {
	store       Store
	registry    *Registry
	broadcast   *Broadcaster
	events      DurableEvents
	directory   IdentityDirectory
	joinURLBase string
	onFirstJoin FirstJoinFunc
	logger      *zap.Logger
}

// NewRoomService creates the room lifecycle service. joinURLBase is the
// externally reachable WebSocket base URL embedded in join links.
func NewRoomService(store Store, registry *Registry, broadcast *Broadcaster, events DurableEvents, directory IdentityDirectory, joinURLBase string, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{
		store:       store,
		registry:    registry,
		broadcast:   broadcast,
		events:      events,
		directory:   directory,
		joinURLBase: joinURLBase,
		logger:      logger,
	}
}

// SetFirstJoinHandler sets the async first-join participation hook.
func (s *RoomService) SetFirstJoinHandler(fn FirstJoinFunc) {
	s.onFirstJoin = fn
}

// Create builds a room for an authenticated host: a fresh room id, an empty
// roster, the host session pointer, and the durable event record. Returns
// the room state and the join URL for distribution.
func (s *RoomService) Create(ctx context.Context, hostID, hostSessionID string) (*RoomState, string, error) {
	hostName, err := s.directory.DisplayNameByID(ctx, hostID)
	if err != nil {
		return nil, "", fmt.Errorf("directory lookup: %w", err)
	}
	if hostName == "" {
		return nil, "", ErrHostNotFound
	}

	state := &RoomState{
		RoomID:        uuid.New().String(),
		HostID:        hostID,
		HostName:      hostName,
		HostSessionID: hostSessionID,
		Status:        StatusActive,
		StreamType:    StreamTypeAudio,
		CreatedAt:     time.Now().UTC(),
		Participants:  []Participant{},
	}

	if err := s.events.CreateEvent(ctx, state.RoomID, hostID, state.StreamType); err != nil {
		return nil, "", fmt.Errorf("persist event: %w", err)
	}
	if err := s.store.CreateRoom(ctx, state); err != nil {
		return nil, "", err
	}
	if err := s.store.SetSessionPointer(ctx, SessionHost, hostID, hostSessionID); err != nil {
		return nil, "", err
	}
	s.registry.Bind(hostSessionID, state.RoomID)

	joinURL := fmt.Sprintf("%s/ws/stream/live/join/event/%s/%s/%s/",
		s.joinURLBase, state.RoomID, hostName, hostID)
	s.logger.Info("room created",
		zap.String("room_id", state.RoomID), zap.String("host_id", hostID))
	return state, joinURL, nil
}

// Join registers or re-registers a participant. A join with an identity
// already on the roster updates that entry in place and never moves the
// counter. After the state write it fans out the join notice, the roster,
// the count, and (first joins only) sends the chat snapshot to the joiner.
func (s *RoomService) Join(ctx context.Context, roomID, participantID, displayName, sessionID string) (*RoomState, bool, error) {
	if displayName == "" {
		displayName = "Guest"
	}

	var reconnect bool
	state, err := s.store.UpdateRoom(ctx, roomID, func(r *RoomState) error {
		if r.Status != StatusActive {
			return ErrRoomInactive
		}
		reconnect = r.Join(participantID, displayName, sessionID, time.Now().UTC())
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if err := s.store.SetSessionPointer(ctx, SessionParticipant, participantID, sessionID); err != nil {
		s.logger.Warn("publish session pointer failed", zap.String("participant_id", participantID), zap.Error(err))
	}
	s.registry.Bind(sessionID, roomID)

	verb := "joined"
	if reconnect {
		verb = "reconnected to"
	}
	notice := newNotice(
		fmt.Sprintf("%s %s the live event", displayName, verb),
		displayName, participantID, time.Now().UTC())
	s.broadcast.ToRoom(ctx, state, notice)
	s.broadcast.ToRoom(ctx, state, newParticipantList(state))
	s.broadcast.ToRoom(ctx, state, newParticipantCount(state))

	if !reconnect {
		if history, err := s.store.ChatHistory(ctx, roomID); err == nil {
			if history == nil {
				history = []ChatEntry{}
			}
			s.broadcast.ToParticipant(ctx, participantID, chatHistoryPayload{Type: "chat_history", Messages: history})
		} else {
			s.logger.Warn("chat history load failed", zap.String("room_id", roomID), zap.Error(err))
		}
		if s.onFirstJoin != nil {
			go s.onFirstJoin(roomID, participantID, displayName, state.ParticipantCount)
		}
	}

	s.logger.Info("participant joined",
		zap.String("room_id", roomID),
		zap.String("participant_id", participantID),
		zap.Bool("reconnect", reconnect))
	return state, reconnect, nil
}

// DropSessionPointer clears an identity's session pointer when it still
// references sessionID. A reconnect overwrites the pointer with the new
// session, so teardown of a superseded connection leaves it alone.
func (s *RoomService) DropSessionPointer(ctx context.Context, kind SessionKind, identity, sessionID string) {
	current, err := s.store.SessionPointer(ctx, kind, identity)
	if err != nil {
		s.logger.Warn("session pointer lookup failed", zap.String("identity", identity), zap.Error(err))
		return
	}
	if current != sessionID {
		return
	}
	if err := s.store.DeleteSessionPointer(ctx, kind, identity); err != nil {
		s.logger.Warn("delete session pointer failed", zap.String("identity", identity), zap.Error(err))
	}
}

// End terminates a room: a terminal notice to the full roster, the durable
// ended mark, then deletion of the room document, chat log, and session
// pointers. Ending an already-absent room is a no-op.
func (s *RoomService) End(ctx context.Context, roomID string) error {
	state, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	s.broadcast.ToRoom(ctx, state, eventEndedPayload{
		Type:    "event_ended",
		RoomID:  roomID,
		Message: "The live event has ended",
	})

	if err := s.events.MarkEventEnded(ctx, roomID); err != nil {
		s.logger.Error("mark event ended failed", zap.String("room_id", roomID), zap.Error(err))
	}

	if err := s.store.DeleteSessionPointer(ctx, SessionHost, state.HostID); err != nil {
		s.logger.Warn("delete host pointer failed", zap.String("host_id", state.HostID), zap.Error(err))
	}
	for _, p := range state.Participants {
		if err := s.store.DeleteSessionPointer(ctx, SessionParticipant, p.ID); err != nil {
			s.logger.Warn("delete participant pointer failed", zap.String("participant_id", p.ID), zap.Error(err))
		}
	}
	if err := s.store.DeleteChat(ctx, roomID); err != nil {
		s.logger.Warn("delete chat log failed", zap.String("room_id", roomID), zap.Error(err))
	}
	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	s.logger.Info("room ended", zap.String("room_id", roomID))
	return nil
}
