package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/clipforge/api/internal/service"
)

// RenderWorker consumes render tasks from the queue and drives each job to a
// terminal state through the render service.
type RenderWorker struct {
	renderService *service.RenderService
	logger        *zap.Logger
}

// NewRenderWorker creates a new render worker
func NewRenderWorker(renderService *service.RenderService, logger *zap.Logger) *RenderWorker {
	return &RenderWorker{
		renderService: renderService,
		logger:        logger,
	}
}

// ProcessTask handles one queued render job.
func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload struct {
		RenderID string `json:"renderId"`
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	w.logger.Info("starting render job", zap.String("renderId", payload.RenderID))

	if err := w.renderService.Execute(ctx, payload.RenderID); err != nil {
		w.logger.Error("render job execution error",
			zap.String("renderId", payload.RenderID), zap.Error(err))
		return err
	}
	return nil
}
