package events

import "context"

// Recorder adapts the repository to the narrow durable-record contract the
// live core consumes.
type Recorder struct {
	repo *Repository
}

// NewRecorder wraps a repository.
func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

// CreateEvent persists the durable record for a new room.
func (r *Recorder) CreateEvent(ctx context.Context, roomID, hostID, streamType string) error {
	_, err := r.repo.Create(ctx, roomID, hostID, streamType)
	return err
}

// MarkEventEnded marks a room ended with an end timestamp.
func (r *Recorder) MarkEventEnded(ctx context.Context, roomID string) error {
	return r.repo.MarkEnded(ctx, roomID)
}
