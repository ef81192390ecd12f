package worker

import (
	"context"
	"testing"

	"github.com/airwave-live/backend/pkg/queue"
)

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewParticipationProcessor(nil, nil, nil)

	err := p.Process(context.Background(), &queue.Job{
		ID:   "j1",
		Type: "email_blast",
	})
	if err == nil {
		t.Fatal("Process() accepted a job type it cannot handle")
	}
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	p := NewParticipationProcessor(nil, nil, nil)

	err := p.Process(context.Background(), &queue.Job{
		ID:      "j2",
		Type:    queue.JobTypeParticipationRecord,
		Payload: []byte(`{"room_id":`),
	})
	if err == nil {
		t.Fatal("Process() accepted a malformed payload")
	}
}
