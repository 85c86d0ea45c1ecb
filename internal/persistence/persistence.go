package persistence

// Persistence bundles the store interfaces so the engine can depend on a
// single abstraction.
type Persistence struct {
	Pipelines PipelineStore
	Runs      RunStore
	Events    EventStore
}

// NewInMemory returns a Persistence backed entirely by process memory.
func NewInMemory() Persistence {
	mem := NewInMemoryStore()
	return Persistence{
		Pipelines: mem,
		Runs:      mem,
		Events:    NewInMemoryEventStore(),
	}
}
