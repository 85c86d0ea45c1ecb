package persistence

import (
	"errors"

	"github.com/petrijr/pausable/pkg/api"
)

var (
	// ErrPipelineNotFound is returned when a pipeline definition is not found.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrRunNotFound is returned when a run is not found.
	ErrRunNotFound = errors.New("run not found")
)

// PipelineStore handles storage of pipeline definitions.
type PipelineStore interface {
	SavePipeline(def api.PipelineDefinition) error
	GetPipeline(name string) (api.PipelineDefinition, error)
}

// RunFilter is used to select runs from the store.
// Empty string / zero status mean "no filter" for that field.
type RunFilter struct {
	Pipeline string
	Status   api.Status
}

// RunStore handles storage of run records. Implementations store and
// return copies so callers never share a record with a running pipeline.
type RunStore interface {
	SaveRun(run *api.RunInstance) error
	UpdateRun(run *api.RunInstance) error
	GetRun(id string) (*api.RunInstance, error)
	ListRuns(filter RunFilter) ([]*api.RunInstance, error)
}
