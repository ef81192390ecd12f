package events

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airwave-live/backend/internal/models"
)

// Repository handles durable event records and the participation log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create persists the durable record for a freshly created room.
func (r *Repository) Create(ctx context.Context, roomID, hostID, streamType string) (*models.Event, error) {
	const q = `INSERT INTO events (room_id, host_id, status, stream_type)
		VALUES ($1, $2, 'active', $3)
		RETURNING id, room_id, host_id, status, stream_type, total_participants, end_timestamp, created_at, updated_at`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, roomID, hostID, streamType).
		Scan(&e.ID, &e.RoomID, &e.HostID, &e.Status, &e.StreamType, &e.TotalParticipants, &e.EndTimestamp, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByRoomID returns the event for a room id, or nil if absent.
func (r *Repository) GetByRoomID(ctx context.Context, roomID string) (*models.Event, error) {
	const q = `SELECT id, room_id, host_id, status, stream_type, total_participants, end_timestamp, created_at, updated_at
		FROM events WHERE room_id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, roomID).
		Scan(&e.ID, &e.RoomID, &e.HostID, &e.Status, &e.StreamType, &e.TotalParticipants, &e.EndTimestamp, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// MarkEnded sets status to ended with an end timestamp. Idempotent: a second
// call leaves the original end timestamp in place.
func (r *Repository) MarkEnded(ctx context.Context, roomID string) error {
	const q = `UPDATE events SET status = 'ended', end_timestamp = COALESCE(end_timestamp, NOW()), updated_at = NOW()
		WHERE room_id = $1`
	_, err := r.pool.Exec(ctx, q, roomID)
	return err
}

// RecordParticipation inserts one participation row per (room, user) and
// refreshes the running total. Reconnects hit the conflict clause and are
// not double-counted.
func (r *Repository) RecordParticipation(ctx context.Context, roomID, userID, username string, total int) error {
	const q = `INSERT INTO event_participants (room_id, user_id, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, roomID, userID, username); err != nil {
		return err
	}
	const qc = `UPDATE events SET total_participants = GREATEST(total_participants, $1), updated_at = NOW()
		WHERE room_id = $2`
	_, err := r.pool.Exec(ctx, qc, total, roomID)
	return err
}

// HasParticipation reports whether a participation row already exists.
func (r *Repository) HasParticipation(ctx context.Context, roomID, userID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM event_participants WHERE room_id = $1 AND user_id = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, roomID, userID).Scan(&exists)
	return exists, err
}

// ListParticipants returns the durable participation log for a room.
func (r *Repository) ListParticipants(ctx context.Context, roomID string) ([]models.EventParticipant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_id, user_id, username, joined_at
		 FROM event_participants WHERE room_id = $1 ORDER BY joined_at`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventParticipant
	for rows.Next() {
		var p models.EventParticipant
		if err := rows.Scan(&p.ID, &p.RoomID, &p.UserID, &p.Username, &p.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
