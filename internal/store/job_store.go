// Package store holds the durable keyed state the pipeline depends on: the
// renderId -> RenderJob mapping and saved transcripts. Redis implementations
// back the running service; memory implementations back tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipforge/api/internal/model"
)

// ErrNotFound is returned when a key was never issued or has expired.
var ErrNotFound = errors.New("not found")

// JobStore owns the renderId -> RenderJob mapping. Writes to a given job only
// happen along its own state transitions; reads may be concurrent.
type JobStore interface {
	Save(ctx context.Context, job *model.RenderJob) error
	Get(ctx context.Context, renderID string) (*model.RenderJob, error)
}

// RedisJobStore persists jobs as JSON values with a retention TTL.
type RedisJobStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisJobStore(client *redis.Client, retention time.Duration) *RedisJobStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RedisJobStore{client: client, retention: retention}
}

func jobKey(renderID string) string {
	return fmt.Sprintf("render:job:%s", renderID)
}

func (s *RedisJobStore) Save(ctx context.Context, job *model.RenderJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.RenderID), data, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *RedisJobStore) Get(ctx context.Context, renderID string) (*model.RenderJob, error) {
	data, err := s.client.Get(ctx, jobKey(renderID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	var job model.RenderJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// MemoryJobStore is a process-local JobStore used in tests and development.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.RenderJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*model.RenderJob)}
}

func (s *MemoryJobStore) Save(_ context.Context, job *model.RenderJob) error {
	copied := *job
	s.mu.Lock()
	s.jobs[job.RenderID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, renderID string) (*model.RenderJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[renderID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}
