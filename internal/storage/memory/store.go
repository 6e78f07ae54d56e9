// Package memory is an in-memory ExecutionStore for tests and embedding.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voxkit/datamap/internal/storage"
)

// Store is a mutex-guarded in-memory implementation of ExecutionStore.
type Store struct {
	mu         sync.RWMutex
	executions map[string]*storage.ExecutionRecord
}

var _ storage.ExecutionStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{executions: make(map[string]*storage.ExecutionRecord)}
}

func (s *Store) RecordExecution(ctx context.Context, rec *storage.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[rec.ID]; exists {
		return fmt.Errorf("execution %s already exists", rec.ID)
	}

	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.executions[rec.ID] = &stored
	return nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*storage.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.executions[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := *rec
	return &out, nil
}

func (s *Store) ListExecutions(ctx context.Context, opts storage.ListOptions) ([]*storage.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.ExecutionRecord
	for _, rec := range s.executions {
		if opts.Function != "" && rec.Function != opts.Function {
			continue
		}
		if opts.Outcome != "" && rec.Outcome != opts.Outcome {
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}

	// Newest first; ties broken by ID so paging is stable.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
