package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/airwave-live/backend/internal/events"
	"github.com/airwave-live/backend/pkg/queue"
)

// ParticipationProcessor consumes participation jobs and writes the durable
// participation log. Joins never wait on these writes; a failed job is
// retried and eventually dead-lettered.
type ParticipationProcessor struct {
	repo   *events.Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewParticipationProcessor creates a participation record processor.
func NewParticipationProcessor(repo *events.Repository, q *queue.Queue, logger *zap.Logger) *ParticipationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipationProcessor{repo: repo, queue: q, logger: logger}
}

// Process executes one participation record job.
func (p *ParticipationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeParticipationRecord {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ParticipationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	exists, err := p.repo.HasParticipation(ctx, payload.RoomID, payload.UserID)
	if err != nil {
		return fmt.Errorf("participation lookup: %w", err)
	}
	if exists {
		p.logger.Debug("participation already recorded",
			zap.String("room_id", payload.RoomID), zap.String("user_id", payload.UserID))
		return nil
	}

	if err := p.repo.RecordParticipation(ctx, payload.RoomID, payload.UserID, payload.DisplayName, payload.Count); err != nil {
		return fmt.Errorf("record participation: %w", err)
	}

	p.logger.Info("participation recorded",
		zap.String("room_id", payload.RoomID), zap.String("user_id", payload.UserID))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ParticipationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("participation worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
