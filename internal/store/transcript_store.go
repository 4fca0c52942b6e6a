package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/clipforge/api/internal/model"
)

// TranscriptStore persists consolidated transcripts keyed by id.
type TranscriptStore interface {
	Save(ctx context.Context, saved *model.SavedTranscript) error
	Get(ctx context.Context, id string) (*model.SavedTranscript, error)
}

// RedisTranscriptStore persists transcripts as JSON values. Transcripts are
// content-addressed by the service, so a repeated save of an equal transcript
// overwrites the same key with the same bytes.
type RedisTranscriptStore struct {
	client *redis.Client
}

func NewRedisTranscriptStore(client *redis.Client) *RedisTranscriptStore {
	return &RedisTranscriptStore{client: client}
}

func transcriptKey(id string) string {
	return fmt.Sprintf("transcript:%s", id)
}

func (s *RedisTranscriptStore) Save(ctx context.Context, saved *model.SavedTranscript) error {
	data, err := json.Marshal(saved.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := s.client.Set(ctx, transcriptKey(saved.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (s *RedisTranscriptStore) Get(ctx context.Context, id string) (*model.SavedTranscript, error) {
	data, err := s.client.Get(ctx, transcriptKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	var t model.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &model.SavedTranscript{ID: id, Transcript: &t}, nil
}

// MemoryTranscriptStore is a process-local TranscriptStore used in tests.
type MemoryTranscriptStore struct {
	mu          sync.RWMutex
	transcripts map[string]*model.Transcript
}

func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{transcripts: make(map[string]*model.Transcript)}
}

func (s *MemoryTranscriptStore) Save(_ context.Context, saved *model.SavedTranscript) error {
	s.mu.Lock()
	s.transcripts[saved.ID] = saved.Transcript
	s.mu.Unlock()
	return nil
}

func (s *MemoryTranscriptStore) Get(_ context.Context, id string) (*model.SavedTranscript, error) {
	s.mu.RLock()
	t, ok := s.transcripts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &model.SavedTranscript{ID: id, Transcript: t}, nil
}
