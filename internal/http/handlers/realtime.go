package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feralops/tnr-backend/internal/http/response"
	"github.com/feralops/tnr-backend/internal/platform/logger"
	"github.com/feralops/tnr-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// GET /api/events/stream?channel=<name>[&channel=...]
//
// Clients pass the channels they want up front; there is no separate
// subscribe call. A stream for a single run subscribes to
// services.IngestRunChannel(runID).
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	var channels []string
	for _, ch := range c.QueryArray("channel") {
		if ch = strings.TrimSpace(ch); ch != "" {
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		response.RespondError(c, http.StatusBadRequest, "missing_channel", nil)
		return
	}

	client := h.hub.NewSSEClient()
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	h.log.Info("SSE stream open", "client_id", client.ID.String(), "channels", channels)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Info("SSE stream closed", "client_id", client.ID.String())
}
