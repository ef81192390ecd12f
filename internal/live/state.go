package live

import "time"

// Room statuses.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// StreamTypeAudio is the only stream kind currently produced.
const StreamTypeAudio = "audio"

// Participant is one roster entry in a room document.
type Participant struct {
	ID          string    `json:"participant_id"`
	Name        string    `json:"username"`
	SessionID   string    `json:"session_id"`
	JoinedAt    time.Time `json:"joined_at"`
	Reconnected bool      `json:"is_reconnect"`
	CoHost      bool      `json:"is_cohost"`
}

// RoomState is the authoritative room document held in the state store.
// Every write bumps Version; the store rejects overwrites of a newer version.
type RoomState struct {
	Version          int64         `json:"version"`
	RoomID           string        `json:"room_id"`
	HostID           string        `json:"host_id"`
	HostName         string        `json:"host_name"`
	HostSessionID    string        `json:"session_id"`
	Status           string        `json:"status"`
	StreamType       string        `json:"stream_type"`
	CreatedAt        time.Time     `json:"created_at"`
	EndedAt          *time.Time    `json:"ended_at,omitempty"`
	ParticipantCount int           `json:"total_participants"`
	Participants     []Participant `json:"participants"`
}

// ChatEntry is one message in a room's bounded chat log.
type ChatEntry struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Find returns the roster entry for an identity.
func (r *RoomState) Find(participantID string) (*Participant, bool) {
	for i := range r.Participants {
		if r.Participants[i].ID == participantID {
			return &r.Participants[i], true
		}
	}
	return nil, false
}

// Join appends a new roster entry, or marks the existing entry for the same
// identity as reconnecting. The participant counter only moves for first-time
// joins; a rejoin updates the entry in place.
func (r *RoomState) Join(participantID, name, sessionID string, now time.Time) (reconnect bool) {
	if p, ok := r.Find(participantID); ok {
		p.Name = name
		p.SessionID = sessionID
		p.Reconnected = true
		return true
	}
	r.Participants = append(r.Participants, Participant{
		ID:        participantID,
		Name:      name,
		SessionID: sessionID,
		JoinedAt:  now,
	})
	r.ParticipantCount++
	return false
}

// Remove drops an identity from the roster and decrements the counter,
// clamped at zero. Returns the removed entry.
func (r *RoomState) Remove(participantID string) (Participant, bool) {
	for i := range r.Participants {
		if r.Participants[i].ID == participantID {
			removed := r.Participants[i]
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			if r.ParticipantCount > 0 {
				r.ParticipantCount--
			}
			return removed, true
		}
	}
	return Participant{}, false
}

// SetCoHost toggles the co-host flag on a roster entry. Idempotent: setting
// an already-set flag changes nothing.
func (r *RoomState) SetCoHost(participantID string, grant bool) (*Participant, bool) {
	p, ok := r.Find(participantID)
	if !ok {
		return nil, false
	}
	p.CoHost = grant
	return p, true
}

// HasSession reports whether a session id belongs to the room's host or any
// roster entry.
func (r *RoomState) HasSession(sessionID string) bool {
	if r.HostSessionID == sessionID {
		return true
	}
	for i := range r.Participants {
		if r.Participants[i].SessionID == sessionID {
			return true
		}
	}
	return false
}
