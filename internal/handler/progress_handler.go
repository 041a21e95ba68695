package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/notify"
	"github.com/webrecap/webrecap/internal/pkg/errcode"
	"github.com/webrecap/webrecap/internal/pkg/response"
	"github.com/webrecap/webrecap/internal/service"
)

const heartbeatInterval = 30 * time.Second

// ProgressHandler streams pipeline progress for one document over SSE.
type ProgressHandler struct {
	documents *service.DocumentService
	bus       notify.Bus
}

func NewProgressHandler(documents *service.DocumentService, bus notify.Bus) *ProgressHandler {
	return &ProgressHandler{documents: documents, bus: bus}
}

// Stream subscribes before checking document state, so an event landing
// between the check and the subscription is not lost. The stream closes after
// a terminal stage or client disconnect.
func (h *ProgressHandler) Stream(c *gin.Context) {
	docID := c.Param("docId")
	if docID == "" {
		response.Error(c, errcode.ErrInvalid, "docId required")
		return
	}
	doc, err := h.documents.GetDocument(c.Request.Context(), docID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events, cancel := h.bus.Subscribe(notify.ChannelProgressUpdate)
	defer cancel()

	writeEvent(c, model.ProgressEvent{ID: docID, Stage: model.StageConnected})
	if model.Terminal(doc.Status) {
		writeEvent(c, model.ProgressEvent{ID: docID, Stage: doc.Status})
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeEvent(c, model.ProgressEvent{ID: docID, Stage: model.StageHeartbeat})
		case payload, ok := <-events:
			if !ok {
				return
			}
			var event model.ProgressEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				logutil.GetLogger(ctx).Warn("ignoring malformed progress event", zap.Error(err))
				continue
			}
			if event.ID != docID {
				continue
			}
			writeEvent(c, event)
			if model.Terminal(event.Stage) {
				return
			}
		}
	}
}

func writeEvent(c *gin.Context, event model.ProgressEvent) {
	blob, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", blob)
	c.Writer.Flush()
}
