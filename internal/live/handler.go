package live

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/airwave-live/backend/pkg/response"
)

// Handler serves the read-only REST surface over live room state.
type Handler struct {
	store    Store
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates the live REST handler.
func NewHandler(store Store, registry *Registry, logger *zap.Logger) *Handler {
	return &Handler{store: store, registry: registry, logger: logger}
}

type roomSummary struct {
	RoomID           string    `json:"room_id"`
	HostID           string    `json:"host_id"`
	HostName         string    `json:"host_name"`
	StreamType       string    `json:"stream_type"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListActive returns summaries of every active room in the state store.
func (h *Handler) ListActive(c *gin.Context) {
	ctx := c.Request.Context()
	ids, err := h.store.ListRoomIDs(ctx)
	if err != nil {
		h.logger.Error("list rooms failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	summaries := make([]roomSummary, 0, len(ids))
	for _, id := range ids {
		state, err := h.store.GetRoom(ctx, id)
		if err != nil || state == nil || state.Status != StatusActive {
			continue
		}
		summaries = append(summaries, roomSummary{
			RoomID:           state.RoomID,
			HostID:           state.HostID,
			HostName:         state.HostName,
			StreamType:       state.StreamType,
			ParticipantCount: state.ParticipantCount,
			CreatedAt:        state.CreatedAt,
		})
	}
	response.OK(c, summaries)
}

// AudienceCount returns the participant count for one room.
func (h *Handler) AudienceCount(c *gin.Context) {
	state, err := h.store.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("get room failed", zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	if state == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, gin.H{"room_id": state.RoomID, "count": state.ParticipantCount})
}
