package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/internal/contract"
	"github.com/designduel/grading-pipeline/internal/events"
	"github.com/designduel/grading-pipeline/pkg/logger"
)

// ProgressSocketHandler serves the same Event Log feed as Stream, but over a
// websocket connection instead of SSE — used by the interviewer-facing live
// console. Messages the client sends on the socket are read and discarded;
// only a read error (including a close frame) ends the feed early.
type ProgressSocketHandler struct {
	poller *events.Poller
}

func NewProgressSocketHandler(poller *events.Poller) *ProgressSocketHandler {
	return &ProgressSocketHandler{poller: poller}
}

// HandleConnection streams every event for the submission named by the
// connection's "id" path param, starting from ordinal 0, until a terminal
// event arrives, the poller's max-duration budget elapses, or the client
// sends a close frame.
func (h *ProgressSocketHandler) HandleConnection(c *websocket.Conn) {
	submissionID := c.Params("id")
	logger.Info("Progress socket opened", zap.String("submission_id", submissionID))

	defer func() {
		c.Close()
		logger.Info("Progress socket closed", zap.String("submission_id", submissionID))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	err := h.poller.Poll(ctx, submissionID, 0, func(e events.Event) error {
		frame := streamEventJSON{
			Status:  string(e.Status),
			Message: e.Message,
			Phase:   e.Phase,
		}
		if e.Progress > 0 || e.Status == contract.StatusProcessing {
			p := e.Progress
			frame.Progress = &p
		}
		return c.WriteJSON(frame)
	})
	if err != nil {
		logger.Debug("Progress socket poll ended", zap.String("submission_id", submissionID), zap.Error(err))
	}
}
