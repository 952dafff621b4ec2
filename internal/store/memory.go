package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/nvandessel/dasstrial/internal/models"
)

// InMemoryRunStore implements RunStore for testing and for sessions that run
// without an archive on disk.
type InMemoryRunStore struct {
	mu           sync.RWMutex
	runs         map[string]RunMeta
	observations map[string][]models.LongRecord
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs:         make(map[string]RunMeta),
		observations: make(map[string][]models.LongRecord),
	}
}

// SaveRun stores a copy of the rows, replacing any run with the same parameters.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, meta RunMeta, long []models.LongRecord) (RunMeta, error) {
	if err := validateRows(long); err != nil {
		return RunMeta{}, err
	}
	meta = prepareMeta(meta, len(long))
	meta.Weights = slices.Clone(meta.Weights)
	meta.Timepoints = slices.Clone(meta.Timepoints)

	rows := slices.Clone(long)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Less(rows[j]) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[meta.ID] = meta
	s.observations[meta.ID] = rows
	return meta, nil
}

// ListRuns returns all runs, newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context) ([]RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunMeta, 0, len(s.runs))
	for _, m := range s.runs {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetRun returns a run by ID. Returns nil if not found.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// LoadObservations returns a copy of the run's rows.
func (s *InMemoryRunStore) LoadObservations(ctx context.Context, id string) ([]models.LongRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.observations[id]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return slices.Clone(rows), nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("run not found: %s", id)
	}
	delete(s.runs, id)
	delete(s.observations, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}
