package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clipforge/api/internal/client"
	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/store"
)

// newTestRenderService wires a render service against in-memory storage and
// the builtin template fallback. Engine may be nil for the mock path.
func newTestRenderService(t *testing.T, engine client.RenderEngine, timeout time.Duration) (*RenderService, *store.MemoryJobStore) {
	t.Helper()
	jobs := store.NewMemoryJobStore()
	catalog := NewTemplateCatalog(engine, testLogger())
	svc := NewRenderService(jobs, catalog, engine, nil, nil, nil, testLogger(), timeout)
	return svc, jobs
}

func TestCreateJobUnknownTemplate(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)

	_, err := svc.createJob(context.Background(), &model.RenderStartRequest{TemplateID: "nope"})
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestCreateJobFreezesProps(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)

	job, err := svc.createJob(context.Background(), &model.RenderStartRequest{
		TemplateID: "caption-basic",
		Props:      map[string]interface{}{"backgroundColor": "#ff0000"},
	})
	if err != nil {
		t.Fatalf("createJob: %v", err)
	}
	if job.Status != model.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.Props["backgroundColor"] != "#ff0000" {
		t.Errorf("caller override lost: %v", job.Props["backgroundColor"])
	}
	if job.Props["title"] != "Untitled" {
		t.Errorf("template default lost: %v", job.Props["title"])
	}
	if job.Quality != model.QualityHigh {
		t.Errorf("quality = %s, want default high", job.Quality)
	}
}

func TestExecuteMockRenderCompletes(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)

	job, err := svc.createJob(context.Background(), &model.RenderStartRequest{TemplateID: "caption-basic"})
	if err != nil {
		t.Fatalf("createJob: %v", err)
	}

	if err := svc.Execute(context.Background(), job.RenderID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	status, err := svc.GetStatus(context.Background(), job.RenderID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", status.Status)
	}
	if status.OutputFile == "" {
		t.Error("completed job missing output file")
	}
	if status.FileSize != 900*2048 {
		t.Errorf("fileSize = %d, want frame-derived mock size", status.FileSize)
	}
	if status.StartedAt == nil || status.CompletedAt == nil {
		t.Error("timestamps not recorded")
	}
}

func TestExecuteSkipsNonPending(t *testing.T) {
	svc, jobs := newTestRenderService(t, nil, 0)

	job := &model.RenderJob{
		RenderID:   "already-done",
		TemplateID: "caption-basic",
		Status:     model.JobStatusCompleted,
		OutputFile: "renders/already-done.mp4",
		CreatedAt:  time.Now(),
	}
	if err := jobs.Save(context.Background(), job); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := svc.Execute(context.Background(), job.RenderID); err != nil {
		t.Fatalf("Execute on completed job should be a no-op: %v", err)
	}
	got, _ := jobs.Get(context.Background(), job.RenderID)
	if got.Status != model.JobStatusCompleted || got.OutputFile != "renders/already-done.mp4" {
		t.Errorf("completed job was mutated: %+v", got)
	}
}

func TestExecuteEngineFailure(t *testing.T) {
	engine := &stubEngine{
		configured: true,
		bundleFn: func(ctx context.Context) ([]model.Template, error) {
			return []model.Template{{ID: "t1", DurationInFrames: 100}}, nil
		},
		renderFn: func(ctx context.Context, req *client.RenderRequest) (*client.RenderOutput, error) {
			return nil, errors.New("composition crashed")
		},
	}
	svc, _ := newTestRenderService(t, engine, 0)

	job, err := svc.createJob(context.Background(), &model.RenderStartRequest{TemplateID: "t1"})
	if err != nil {
		t.Fatalf("createJob: %v", err)
	}
	if err := svc.Execute(context.Background(), job.RenderID); err != nil {
		t.Fatalf("Execute should absorb the engine failure into the job: %v", err)
	}

	status, err := svc.GetStatus(context.Background(), job.RenderID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != model.JobStatusFailed {
		t.Errorf("status = %s, want failed", status.Status)
	}
	if status.Error == nil || !strings.Contains(*status.Error, "composition crashed") {
		t.Errorf("error = %v", status.Error)
	}
}

func TestExecuteTimeout(t *testing.T) {
	engine := &stubEngine{
		configured: true,
		bundleFn: func(ctx context.Context) ([]model.Template, error) {
			return []model.Template{{ID: "t1", DurationInFrames: 100}}, nil
		},
		renderFn: func(ctx context.Context, req *client.RenderRequest) (*client.RenderOutput, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc, _ := newTestRenderService(t, engine, 30*time.Millisecond)

	job, err := svc.createJob(context.Background(), &model.RenderStartRequest{TemplateID: "t1"})
	if err != nil {
		t.Fatalf("createJob: %v", err)
	}
	if err := svc.Execute(context.Background(), job.RenderID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	status, err := svc.GetStatus(context.Background(), job.RenderID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed after timeout", status.Status)
	}
	if status.Error == nil || !strings.Contains(*status.Error, "timed out") {
		t.Errorf("error = %v, want timeout message", status.Error)
	}
}

func TestGetStatusUnknownRender(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)
	_, err := svc.GetStatus(context.Background(), "missing")
	if !errors.Is(err, ErrUnknownRender) {
		t.Errorf("expected ErrUnknownRender, got %v", err)
	}
}

func TestGetResultOnlyWhenCompleted(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)

	job, err := svc.createJob(context.Background(), &model.RenderStartRequest{TemplateID: "caption-basic"})
	if err != nil {
		t.Fatalf("createJob: %v", err)
	}

	if _, err := svc.GetResult(context.Background(), job.RenderID); !errors.Is(err, ErrJobNotCompleted) {
		t.Errorf("expected ErrJobNotCompleted for pending job, got %v", err)
	}

	if err := svc.Execute(context.Background(), job.RenderID); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result, err := svc.GetResult(context.Background(), job.RenderID)
	if err != nil {
		t.Fatalf("GetResult after completion: %v", err)
	}
	if result.Status != model.JobStatusCompleted {
		t.Errorf("status = %s", result.Status)
	}
}

func TestCancelPendingOnly(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)

	job, err := svc.createJob(context.Background(), &model.RenderStartRequest{TemplateID: "caption-basic"})
	if err != nil {
		t.Fatalf("createJob: %v", err)
	}

	resp, err := svc.Cancel(context.Background(), job.RenderID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.Status != model.JobStatusCanceled {
		t.Errorf("status = %s, want canceled", resp.Status)
	}

	if _, err := svc.Cancel(context.Background(), job.RenderID); !errors.Is(err, ErrNotCancelable) {
		t.Errorf("second cancel should fail with ErrNotCancelable, got %v", err)
	}

	// A canceled job never reaches the engine.
	if err := svc.Execute(context.Background(), job.RenderID); err != nil {
		t.Fatalf("Execute on canceled job: %v", err)
	}
	status, _ := svc.GetStatus(context.Background(), job.RenderID)
	if status.Status != model.JobStatusCanceled {
		t.Errorf("canceled job transitioned to %s", status.Status)
	}
}

func TestBatchRenderMalformed(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)

	_, err := svc.BatchRender(context.Background(), &model.BatchRenderRequest{})
	if !errors.Is(err, ErrMalformedBatch) {
		t.Errorf("empty batch should fail with ErrMalformedBatch, got %v", err)
	}

	_, err = svc.BatchRender(context.Background(), &model.BatchRenderRequest{
		Tasks: []model.RenderStartRequest{
			{TemplateID: "caption-basic"},
			{TemplateID: ""},
		},
	})
	if !errors.Is(err, ErrMalformedBatch) {
		t.Errorf("missing templateId should fail with ErrMalformedBatch, got %v", err)
	}
}

func TestBatchRenderFailureIsolation(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)

	resp, err := svc.BatchRender(context.Background(), &model.BatchRenderRequest{
		Tasks: []model.RenderStartRequest{
			{TemplateID: "caption-basic"},
			{TemplateID: "highlight-reel", Props: map[string]interface{}{"badProp": true}},
			{TemplateID: "highlight-reel"},
		},
	})
	if err != nil {
		t.Fatalf("BatchRender: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}

	wantTemplates := []string{"caption-basic", "highlight-reel", "highlight-reel"}
	for i, r := range resp.Results {
		if r.TemplateID != wantTemplates[i] {
			t.Errorf("result %d templateId = %q, want %q (input order)", i, r.TemplateID, wantTemplates[i])
		}
		if r.Status != model.BatchTaskSuccess {
			t.Errorf("result %d status = %q: %s", i, r.Status, r.Error)
		}
		if r.Job == nil || r.Job.Status != model.JobStatusCompleted {
			t.Errorf("result %d missing completed job", i)
		}
	}
}

func TestBatchRenderBadTaskDoesNotAbort(t *testing.T) {
	svc, _ := newTestRenderService(t, nil, 0)

	resp, err := svc.BatchRender(context.Background(), &model.BatchRenderRequest{
		Tasks: []model.RenderStartRequest{
			{TemplateID: "caption-basic"},
			{TemplateID: "no-such-template"},
			{TemplateID: "highlight-reel"},
		},
	})
	if err != nil {
		t.Fatalf("BatchRender: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Status != model.BatchTaskSuccess {
		t.Errorf("result 0 = %+v", resp.Results[0])
	}
	if resp.Results[1].Status != model.BatchTaskFailed {
		t.Errorf("result 1 should fail on unknown template, got %+v", resp.Results[1])
	}
	if !strings.Contains(resp.Results[1].Error, "no-such-template") {
		t.Errorf("result 1 error = %q", resp.Results[1].Error)
	}
	if resp.Results[2].Status != model.BatchTaskSuccess {
		t.Errorf("result 2 = %+v", resp.Results[2])
	}
}
