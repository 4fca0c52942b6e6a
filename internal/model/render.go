package model

import "time"

// Job status
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRendering JobStatus = "rendering"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCanceled
}

// Render quality levels
type Quality string

const (
	QualityDraft Quality = "draft"
	QualityHigh  Quality = "high"
)

// Template is a read-only composition descriptor bundled from the render
// engine.
type Template struct {
	ID               string                 `json:"id"`
	DurationInFrames int                    `json:"durationInFrames"`
	FPS              int                    `json:"fps"`
	Width            int                    `json:"width"`
	Height           int                    `json:"height"`
	DefaultProps     map[string]interface{} `json:"defaultProps"`
}

// RenderJob is a single rendering attempt. RenderID and Props are frozen at
// submission; Status only moves pending -> rendering -> completed|failed, or
// pending -> canceled.
type RenderJob struct {
	RenderID    string                 `json:"renderId"`
	TemplateID  string                 `json:"templateId"`
	Props       map[string]interface{} `json:"props"`
	Status      JobStatus              `json:"status"`
	Quality     Quality                `json:"quality,omitempty"`
	FrameRange  *[2]int                `json:"frameRange,omitempty"`
	OutputFile  string                 `json:"outputFile,omitempty"`
	FileSize    int64                  `json:"fileSize,omitempty"`
	DurationMs  int64                  `json:"durationMs,omitempty"`
	Error       *string                `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// RenderStartRequest starts a render job for a template with prop overrides.
type RenderStartRequest struct {
	TemplateID string                 `json:"templateId" validate:"required"`
	Props      map[string]interface{} `json:"props,omitempty"`
	Quality    Quality                `json:"quality,omitempty" validate:"omitempty,oneof=draft high"`
	FrameRange *[2]int                `json:"frameRange,omitempty"`
}

// RenderStartResponse acknowledges an accepted render job.
type RenderStartResponse struct {
	RenderID  string    `json:"renderId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// RenderStatusResponse reports the real current state of a job.
type RenderStatusResponse struct {
	RenderID    string     `json:"renderId"`
	TemplateID  string     `json:"templateId"`
	Status      JobStatus  `json:"status"`
	OutputFile  string     `json:"outputFile,omitempty"`
	FileSize    int64      `json:"fileSize,omitempty"`
	DurationMs  int64      `json:"durationMs,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// RenderCancelResponse acknowledges a cancellation.
type RenderCancelResponse struct {
	RenderID string    `json:"renderId"`
	Status   JobStatus `json:"status"`
}

// BatchRenderRequest sequences multiple render tasks.
type BatchRenderRequest struct {
	Tasks []RenderStartRequest `json:"tasks" validate:"required,min=1"`
}

// Batch task statuses
const (
	BatchTaskSuccess = "success"
	BatchTaskFailed  = "failed"
)

// BatchTaskResult is the per-task outcome slot; results are returned in input
// order regardless of execution order.
type BatchTaskResult struct {
	TemplateID string     `json:"templateId"`
	Status     string     `json:"status"`
	Job        *RenderJob `json:"job,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// BatchRenderResponse is the ordered list of per-task outcomes.
type BatchRenderResponse struct {
	Results []BatchTaskResult `json:"results"`
}
