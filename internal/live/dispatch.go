package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender identifies the connection a control frame arrived on.
type Sender struct {
	SessionID string
	UserID    string
	Name      string
	IsHost    bool
}

// Dispatcher decodes control frames and routes them to room mutations.
// Malformed or unknown frames produce a local error to the sender only;
// nothing here may take down the connection's read loop.
type Dispatcher struct {
	store     Store
	registry  *Registry
	broadcast *Broadcaster
	rooms     *RoomService
	logger    *zap.Logger
}

// NewDispatcher creates the control protocol dispatcher.
func NewDispatcher(store Store, registry *Registry, broadcast *Broadcaster, rooms *RoomService, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:     store,
		registry:  registry,
		broadcast: broadcast,
		rooms:     rooms,
		logger:    logger,
	}
}

func (d *Dispatcher) replyError(conn Conn, message, details string) {
	if err := conn.SendJSON(newError(message, details)); err != nil {
		d.logger.Debug("error reply not delivered", zap.Error(err))
	}
}

// Handle processes one inbound text frame from conn.
func (d *Dispatcher) Handle(ctx context.Context, conn Conn, sender Sender, raw []byte) {
	msg, err := DecodeControl(raw)
	if err != nil {
		d.logger.Debug("rejected control frame",
			zap.String("session_id", sender.SessionID), zap.Error(err))
		d.replyError(conn, "Error", "Invalid message format")
		return
	}

	state, err := d.store.GetRoom(ctx, msg.RoomID)
	if err != nil {
		d.logger.Warn("room lookup failed", zap.String("room_id", msg.RoomID), zap.Error(err))
		d.replyError(conn, "Error", "Room lookup failed")
		return
	}
	if state == nil {
		d.replyError(conn, "Event not found",
			"This event id you're trying to join is not found in the system.")
		return
	}

	switch msg.Type {
	case TypeInviteCoHost:
		d.handleInviteCoHost(ctx, state, msg)
	case TypeAcceptCoHost:
		d.handleCoHostFlag(ctx, conn, sender, msg, true)
	case TypeRemoveCoHost:
		d.handleCoHostFlag(ctx, conn, sender, msg, false)
	case TypeLeaveRoom:
		d.handleRemoval(ctx, conn, sender, msg, false)
	case TypeRemoveUser:
		d.handleRemoval(ctx, conn, sender, msg, true)
	case TypeChatMessage:
		d.handleChat(ctx, conn, sender, msg)
	case TypeStreamEnded:
		if err := d.rooms.End(ctx, msg.RoomID); err != nil {
			d.logger.Error("end room failed", zap.String("room_id", msg.RoomID), zap.Error(err))
			d.replyError(conn, "Error", "Failed to end the event")
		}
	}
}

// handleInviteCoHost delivers an invitation to the target only. A target
// that is not on the roster or has no reachable session fails silently.
func (d *Dispatcher) handleInviteCoHost(ctx context.Context, state *RoomState, msg ControlMessage) {
	target, ok := state.Find(msg.TargetID)
	if !ok {
		d.logger.Info("co-host invite target not on roster",
			zap.String("room_id", msg.RoomID), zap.String("target_id", msg.TargetID))
		return
	}
	delivered := d.broadcast.ToParticipant(ctx, target.ID, cohostInvitePayload{
		Type:    "cohost_invite",
		RoomID:  msg.RoomID,
		Message: "The host invited you to co-host this event",
	})
	if !delivered {
		d.logger.Info("co-host invite target unreachable",
			zap.String("room_id", msg.RoomID), zap.String("target_id", msg.TargetID))
	}
}

// handleCoHostFlag toggles a roster entry's co-host flag and announces it.
// Grants refresh the roster afterwards; revocations announce only, since
// membership is unchanged.
func (d *Dispatcher) handleCoHostFlag(ctx context.Context, conn Conn, sender Sender, msg ControlMessage, grant bool) {
	targetID := msg.TargetID
	if targetID == "" {
		targetID = sender.UserID
	}

	var target Participant
	state, err := d.store.UpdateRoom(ctx, msg.RoomID, func(r *RoomState) error {
		p, ok := r.SetCoHost(targetID, grant)
		if !ok {
			return fmt.Errorf("participant %s: %w", targetID, ErrParticipantNotFound)
		}
		target = *p
		return nil
	})
	if err != nil {
		d.logger.Warn("co-host update failed",
			zap.String("room_id", msg.RoomID), zap.String("target_id", targetID), zap.Error(err))
		if errors.Is(err, ErrParticipantNotFound) {
			d.replyError(conn, "Error", "Participant not found in this event")
		} else {
			d.replyError(conn, "Error", "Failed to update the event")
		}
		return
	}

	text := fmt.Sprintf("%s joined as co-host", target.Name)
	if !grant {
		text = fmt.Sprintf("%s is no longer a co-host", target.Name)
	}
	d.broadcast.ToRoom(ctx, state, newNotice(text, target.Name, target.ID, time.Now().UTC()))
	if grant {
		d.broadcast.ToRoom(ctx, state, newParticipantList(state))
	}
}

// handleRemoval removes an identity from the roster. Self-initiated leave
// and host-initiated removal are the same state transition; only the notice
// text differs.
func (d *Dispatcher) handleRemoval(ctx context.Context, conn Conn, sender Sender, msg ControlMessage, byHost bool) {
	targetID := msg.TargetID
	if targetID == "" {
		targetID = sender.UserID
	}

	var removed Participant
	state, err := d.store.UpdateRoom(ctx, msg.RoomID, func(r *RoomState) error {
		p, ok := r.Remove(targetID)
		if !ok {
			return fmt.Errorf("participant %s: %w", targetID, ErrParticipantNotFound)
		}
		removed = p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrParticipantNotFound) {
			d.replyError(conn, "Error", "Participant not found in this event")
			return
		}
		d.logger.Error("removal failed",
			zap.String("room_id", msg.RoomID), zap.String("target_id", targetID), zap.Error(err))
		d.replyError(conn, "Error", "Failed to update the event")
		return
	}

	if err := d.store.DeleteSessionPointer(ctx, SessionParticipant, removed.ID); err != nil {
		d.logger.Warn("delete session pointer failed",
			zap.String("participant_id", removed.ID), zap.Error(err))
	}

	text := fmt.Sprintf("%s left the live event", removed.Name)
	if byHost {
		text = fmt.Sprintf("%s was removed from the live event", removed.Name)
	}
	d.broadcast.ToRoom(ctx, state, newNotice(text, removed.Name, removed.ID, time.Now().UTC()))
	d.broadcast.ToRoom(ctx, state, newParticipantList(state))
	d.broadcast.ToRoom(ctx, state, newParticipantCount(state))
}

// handleChat appends to the bounded chat log and fans the entry out.
// Empty or whitespace-only text is rejected locally.
func (d *Dispatcher) handleChat(ctx context.Context, conn Conn, sender Sender, msg ControlMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		d.replyError(conn, "Error", "Message text is empty")
		return
	}

	entry := ChatEntry{
		UserID:    sender.UserID,
		Username:  sender.Name,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	if err := d.store.AppendChat(ctx, msg.RoomID, entry); err != nil {
		d.logger.Error("append chat failed", zap.String("room_id", msg.RoomID), zap.Error(err))
		d.replyError(conn, "Error", "Failed to store the message")
		return
	}
	d.broadcast.ToRoomID(ctx, msg.RoomID, newNotice(entry.Text, entry.Username, entry.UserID, entry.Timestamp))
}
