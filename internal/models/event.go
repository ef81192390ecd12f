package models

import "time"

// Event statuses in durable storage.
const (
	EventStatusActive = "active"
	EventStatusEnded  = "ended"
)

// Event is the durable record of a live room.
type Event struct {
	ID                int64      `json:"id"`
	RoomID            string     `json:"room_id"`
	HostID            string     `json:"host_id"`
	Status            string     `json:"status"`
	StreamType        string     `json:"stream_type"`
	TotalParticipants int64      `json:"total_participants"`
	EndTimestamp      *time.Time `json:"end_timestamp,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EventParticipant is one durable participation row per (room, user).
type EventParticipant struct {
	ID       int64     `json:"id"`
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}
