package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/clipforge/api/internal/client"
	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/store"
	ws "github.com/clipforge/api/internal/websocket"
)

const TaskTypeRender = "render:process"

// renderTaskPayload is the asynq task body.
type renderTaskPayload struct {
	RenderID string `json:"renderId"`
}

// NewRenderTask builds the asynq task for a pending job.
func NewRenderTask(renderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(renderTaskPayload{RenderID: renderID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeRender, payload), nil
}

// RenderService manages render jobs: submission, execution against the
// external engine, status queries, cancellation and batching. Each render id
// is owned by exactly one in-flight execution; the engine is invoked at most
// once per job and never retried by the service.
type RenderService struct {
	jobs        store.JobStore
	catalog     *TemplateCatalog
	engine      client.RenderEngine
	storage     client.StorageClient
	asynqClient *asynq.Client
	hub         *ws.Hub
	logger      *zap.Logger
	timeout     time.Duration
}

// NewRenderService creates the render service. storage, asynqClient and hub
// may be nil: without storage the engine's output path is reported directly,
// without an asynq client StartRender cannot enqueue (batch still works), and
// without a hub no events are pushed.
func NewRenderService(
	jobs store.JobStore,
	catalog *TemplateCatalog,
	engine client.RenderEngine,
	storage client.StorageClient,
	asynqClient *asynq.Client,
	hub *ws.Hub,
	logger *zap.Logger,
	timeout time.Duration,
) *RenderService {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &RenderService{
		jobs:        jobs,
		catalog:     catalog,
		engine:      engine,
		storage:     storage,
		asynqClient: asynqClient,
		hub:         hub,
		logger:      logger,
		timeout:     timeout,
	}
}

// StartRender validates the request, persists a pending job and enqueues it
// for asynchronous execution. An unknown template id fails before any job
// record exists.
func (s *RenderService) StartRender(ctx context.Context, req *model.RenderStartRequest) (*model.RenderStartResponse, error) {
	job, err := s.createJob(ctx, req)
	if err != nil {
		return nil, err
	}

	task, err := NewRenderTask(job.RenderID)
	if err != nil {
		return nil, err
	}

	if s.asynqClient == nil {
		return nil, fmt.Errorf("render queue not configured")
	}
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("render"),
		asynq.MaxRetry(0), // the engine is invoked at most once per job
		asynq.Timeout(s.timeout+30*time.Second),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.RenderStartResponse{
		RenderID:  job.RenderID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// createJob freezes the merged props onto a new pending job record. Template
// defaults lose to caller overrides on key collision.
func (s *RenderService) createJob(ctx context.Context, req *model.RenderStartRequest) (*model.RenderJob, error) {
	tpl, err := s.catalog.Lookup(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	props := make(map[string]interface{}, len(tpl.DefaultProps)+len(req.Props))
	for k, v := range tpl.DefaultProps {
		props[k] = v
	}
	for k, v := range req.Props {
		props[k] = v
	}

	quality := req.Quality
	if quality == "" {
		quality = model.QualityHigh
	}

	job := &model.RenderJob{
		RenderID:   uuid.New().String(),
		TemplateID: req.TemplateID,
		Props:      props,
		Status:     model.JobStatusPending,
		Quality:    quality,
		FrameRange: req.FrameRange,
		CreatedAt:  time.Now(),
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	return job, nil
}

// Execute runs a pending job to a terminal state. Canceled and already
// started jobs are skipped, which keeps redelivery harmless.
func (s *RenderService) Execute(ctx context.Context, renderID string) error {
	job, err := s.jobs.Get(ctx, renderID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownRender, renderID)
	}
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusPending {
		s.logger.Info("skipping render job", zap.String("renderId", renderID), zap.String("status", string(job.Status)))
		return nil
	}

	now := time.Now()
	job.Status = model.JobStatusRendering
	job.StartedAt = &now
	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	s.broadcastStatus(job)

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	out, err := s.invokeEngine(rctx, job)
	elapsed := time.Since(started)

	if err != nil {
		msg := fmt.Sprintf("render engine: %v", err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("render engine timed out after %s: %v", s.timeout, err)
		}
		return s.failJob(ctx, job, msg)
	}

	outputFile := out.OutputFile
	if s.storage != nil {
		key := fmt.Sprintf("renders/%s.mp4", job.RenderID)
		if url, upErr := s.storage.UploadFile(ctx, key, out.OutputFile); upErr == nil {
			outputFile = url
		} else {
			s.logger.Warn("artifact upload failed, reporting local path",
				zap.String("renderId", job.RenderID), zap.Error(upErr))
		}
	}

	completedAt := time.Now()
	job.Status = model.JobStatusCompleted
	job.OutputFile = outputFile
	job.FileSize = out.FileSize
	job.DurationMs = elapsed.Milliseconds()
	job.CompletedAt = &completedAt
	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastComplete(job.RenderID, job)
	}
	s.logger.Info("render job completed",
		zap.String("renderId", job.RenderID),
		zap.Int64("durationMs", job.DurationMs),
		zap.Int64("fileSize", job.FileSize))
	return nil
}

func (s *RenderService) invokeEngine(ctx context.Context, job *model.RenderJob) (*client.RenderOutput, error) {
	if s.engine == nil || !s.engine.IsConfigured() {
		return s.mockRender(ctx, job)
	}
	return s.engine.Render(ctx, &client.RenderRequest{
		TemplateID: job.TemplateID,
		Props:      job.Props,
		Quality:    job.Quality,
		FrameRange: job.FrameRange,
	})
}

// mockRender produces a deterministic artifact for development when no
// engine is configured.
func (s *RenderService) mockRender(ctx context.Context, job *model.RenderJob) (*client.RenderOutput, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}

	tpl, err := s.catalog.Lookup(ctx, job.TemplateID)
	if err != nil {
		return nil, err
	}
	return &client.RenderOutput{
		OutputFile: fmt.Sprintf("renders/%s.mp4", job.RenderID),
		FileSize:   int64(tpl.DurationInFrames) * 2048,
	}, nil
}

func (s *RenderService) failJob(ctx context.Context, job *model.RenderJob, msg string) error {
	now := time.Now()
	job.Status = model.JobStatusFailed
	job.Error = &msg
	job.CompletedAt = &now
	if err := s.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if s.hub != nil {
		s.hub.BroadcastError(job.RenderID, "RENDER_FAILED", msg)
	}
	s.logger.Warn("render job failed", zap.String("renderId", job.RenderID), zap.String("error", msg))
	return nil
}

func (s *RenderService) broadcastStatus(job *model.RenderJob) {
	if s.hub != nil {
		s.hub.BroadcastStatus(job.RenderID, job.Status)
	}
}

// GetStatus returns the real current state of a job.
func (s *RenderService) GetStatus(ctx context.Context, renderID string) (*model.RenderStatusResponse, error) {
	job, err := s.getJob(ctx, renderID)
	if err != nil {
		return nil, err
	}
	return &model.RenderStatusResponse{
		RenderID:    job.RenderID,
		TemplateID:  job.TemplateID,
		Status:      job.Status,
		OutputFile:  job.OutputFile,
		FileSize:    job.FileSize,
		DurationMs:  job.DurationMs,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// GetResult returns the completed job record.
func (s *RenderService) GetResult(ctx context.Context, renderID string) (*model.RenderJob, error) {
	job, err := s.getJob(ctx, renderID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted {
		return nil, ErrJobNotCompleted
	}
	return job, nil
}

// Cancel prevents a pending job from starting. A job that has reached
// rendering or a terminal state cannot be canceled.
func (s *RenderService) Cancel(ctx context.Context, renderID string) (*model.RenderCancelResponse, error) {
	job, err := s.getJob(ctx, renderID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusPending {
		return nil, ErrNotCancelable
	}

	now := time.Now()
	job.Status = model.JobStatusCanceled
	job.CompletedAt = &now
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	s.broadcastStatus(job)

	return &model.RenderCancelResponse{
		RenderID: job.RenderID,
		Status:   job.Status,
	}, nil
}

func (s *RenderService) getJob(ctx context.Context, renderID string) (*model.RenderJob, error) {
	job, err := s.jobs.Get(ctx, renderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRender, renderID)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// BatchRender runs tasks through the job manager one at a time. One task's
// failure is contained to its result slot and never aborts the batch; result
// order matches input order. The call itself only fails when the task list is
// malformed.
func (s *RenderService) BatchRender(ctx context.Context, req *model.BatchRenderRequest) (*model.BatchRenderResponse, error) {
	if req == nil || len(req.Tasks) == 0 {
		return nil, fmt.Errorf("%w: empty task list", ErrMalformedBatch)
	}
	for i, task := range req.Tasks {
		if task.TemplateID == "" {
			return nil, fmt.Errorf("%w: task %d missing templateId", ErrMalformedBatch, i)
		}
	}

	results := make([]model.BatchTaskResult, 0, len(req.Tasks))
	for _, task := range req.Tasks {
		results = append(results, s.runBatchTask(ctx, task))
	}
	return &model.BatchRenderResponse{Results: results}, nil
}

func (s *RenderService) runBatchTask(ctx context.Context, task model.RenderStartRequest) model.BatchTaskResult {
	job, err := s.createJob(ctx, &task)
	if err != nil {
		return model.BatchTaskResult{
			TemplateID: task.TemplateID,
			Status:     model.BatchTaskFailed,
			Error:      err.Error(),
		}
	}

	if err := s.Execute(ctx, job.RenderID); err != nil {
		return model.BatchTaskResult{
			TemplateID: task.TemplateID,
			Status:     model.BatchTaskFailed,
			Error:      err.Error(),
		}
	}

	final, err := s.getJob(ctx, job.RenderID)
	if err != nil {
		return model.BatchTaskResult{
			TemplateID: task.TemplateID,
			Status:     model.BatchTaskFailed,
			Error:      err.Error(),
		}
	}
	if final.Status != model.JobStatusCompleted {
		errMsg := "render failed"
		if final.Error != nil {
			errMsg = *final.Error
		}
		return model.BatchTaskResult{
			TemplateID: task.TemplateID,
			Status:     model.BatchTaskFailed,
			Job:        final,
			Error:      errMsg,
		}
	}
	return model.BatchTaskResult{
		TemplateID: task.TemplateID,
		Status:     model.BatchTaskSuccess,
		Job:        final,
	}
}
