// Package worker drives pipeline runs from a task queue.
//
// A Worker takes start-run tasks from a taskqueue.Queue and runs each one to
// completion on an api.Runner. Several workers may share one queue.
//
// Workers honour the runner's pause gate twice: they stop taking new tasks
// while the gate is closed, and the runs they execute wait on the same gate
// before every step.
//
// Most applications use the LocalRunner in the root package, which owns the
// runner, queue and worker goroutines.
package worker
