package persistence

import (
	"sort"
	"sync"

	"github.com/petrijr/pausable/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe implementation of
// PipelineStore and RunStore backed by maps.
type InMemoryStore struct {
	mu        sync.RWMutex
	pipelines map[string]api.PipelineDefinition
	runs      map[string]*api.RunInstance
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pipelines: make(map[string]api.PipelineDefinition),
		runs:      make(map[string]*api.RunInstance),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ PipelineStore = (*InMemoryStore)(nil)

var _ RunStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SavePipeline(def api.PipelineDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pipelines[def.Name] = def
	return nil
}

func (s *InMemoryStore) GetPipeline(name string) (api.PipelineDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.pipelines[name]
	if !ok {
		return api.PipelineDefinition{}, ErrPipelineNotFound
	}

	return def, nil
}

func (s *InMemoryStore) SaveRun(run *api.RunInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run.Clone()
	return nil
}

func (s *InMemoryStore) UpdateRun(run *api.RunInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}

	s.runs[run.ID] = run.Clone()
	return nil
}

func (s *InMemoryStore) GetRun(id string) (*api.RunInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}

	return run.Clone(), nil
}

// ListRuns returns matching runs ordered by start time.
func (s *InMemoryStore) ListRuns(filter RunFilter) ([]*api.RunInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.RunInstance

	for _, run := range s.runs {
		if filter.Pipeline != "" && run.Pipeline != filter.Pipeline {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, run.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartedAt.Before(result[j].StartedAt)
	})

	return result, nil
}
