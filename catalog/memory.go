package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/kinase-msm/kinmsm/tica"
)

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]Run
	paths       map[string][]tica.Step
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]Run)
	s.paths = make(map[string][]tica.Step)
	return nil
}

var errNotInitialized = errors.New("store is not initialized")

func (s *MemoryStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	run.Artifacts = append([]Artifact(nil), run.Artifacts...)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, protein string) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Run
	for _, run := range s.runs {
		if protein == "" || run.Protein == protein {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) SavePath(_ context.Context, runID string, steps []tica.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.paths[runID] = append([]tica.Step(nil), steps...)
	return nil
}

func (s *MemoryStore) GetPath(_ context.Context, runID string) ([]tica.Step, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps, ok := s.paths[runID]
	return steps, ok, nil
}
