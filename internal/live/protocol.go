package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType is the closed set of inbound control operations. The
// dispatcher matches it exhaustively; anything outside the set is a
// validation error reported to the sender.
type MessageType string

const (
	TypeInviteCoHost MessageType = "invite_cohost"
	TypeAcceptCoHost MessageType = "accept_cohost"
	TypeRemoveCoHost MessageType = "remove_cohost"
	TypeLeaveRoom    MessageType = "leave_room"
	TypeRemoveUser   MessageType = "remove_user_in_room"
	TypeChatMessage  MessageType = "chat_message"
	TypeStreamEnded  MessageType = "stream_ended"
)

// Decode errors.
var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
	ErrMissingRoomID    = errors.New("missing room id")
)

// ControlMessage is a decoded inbound control frame.
type ControlMessage struct {
	Type     MessageType
	RoomID   string
	TargetID string
	Text     string
}

// rawControl matches the wire shape. Clients use room_id or event_id for the
// room, and user_id or participant_id for the target identity.
type rawControl struct {
	Type          string `json:"type"`
	RoomID        string `json:"room_id"`
	EventID       string `json:"event_id"`
	UserID        string `json:"user_id"`
	ParticipantID string `json:"participant_id"`
	Message       string `json:"message"`
}

// DecodeControl parses an inbound text frame into a ControlMessage.
// Chat is accepted under four historical aliases.
func DecodeControl(data []byte) (ControlMessage, error) {
	var raw rawControl
	if err := json.Unmarshal(data, &raw); err != nil {
		return ControlMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var typ MessageType
	switch raw.Type {
	case "invite_cohost":
		typ = TypeInviteCoHost
	case "accept_cohost":
		typ = TypeAcceptCoHost
	case "remove_cohost":
		typ = TypeRemoveCoHost
	case "leave_room":
		typ = TypeLeaveRoom
	case "remove_user_in_room":
		typ = TypeRemoveUser
	case "chat_message", "text_message", "chat", "broadcast_message":
		typ = TypeChatMessage
	case "stream_ended":
		typ = TypeStreamEnded
	default:
		return ControlMessage{}, fmt.Errorf("%w: %q", ErrUnknownType, raw.Type)
	}

	roomID := raw.RoomID
	if roomID == "" {
		roomID = raw.EventID
	}
	if roomID == "" {
		return ControlMessage{}, ErrMissingRoomID
	}

	target := raw.UserID
	if target == "" {
		target = raw.ParticipantID
	}

	return ControlMessage{
		Type:     typ,
		RoomID:   roomID,
		TargetID: target,
		Text:     raw.Message,
	}, nil
}

// Outbound payload types.

// streamLinkPayload is the only value returned synchronously to a host.
type streamLinkPayload struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id"`
	JoinURL string `json:"join_url"`
}

// noticePayload carries join/leave/co-host notices and chat messages.
type noticePayload struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Username  string    `json:"username"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type participantSummary struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	CoHost   bool      `json:"is_cohost"`
	JoinedAt time.Time `json:"joined_at"`
}

type participantListPayload struct {
	Type         string               `json:"type"`
	Participants []participantSummary `json:"participants"`
}

type participantCountPayload struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type chatHistoryPayload struct {
	Type     string      `json:"type"`
	Messages []ChatEntry `json:"messages"`
}

type cohostInvitePayload struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

type eventEndedPayload struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

// errorPayload is sent before an error close, or alone for recoverable
// protocol errors.
type errorPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func newNotice(message, username, userID string, at time.Time) noticePayload {
	return noticePayload{
		Type:      "broadcast_message",
		Message:   message,
		Username:  username,
		UserID:    userID,
		Timestamp: at,
	}
}

func newParticipantList(state *RoomState) participantListPayload {
	list := make([]participantSummary, 0, len(state.Participants))
	for _, p := range state.Participants {
		list = append(list, participantSummary{
			ID:       p.ID,
			Username: p.Name,
			CoHost:   p.CoHost,
			JoinedAt: p.JoinedAt,
		})
	}
	return participantListPayload{Type: "participant_list", Participants: list}
}

func newParticipantCount(state *RoomState) participantCountPayload {
	return participantCountPayload{Type: "participant_count", Count: state.ParticipantCount}
}

func newError(message, details string) errorPayload {
	return errorPayload{Status: "error", Message: message, Details: details}
}
