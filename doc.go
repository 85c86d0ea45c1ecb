// Package pausable runs multi-step pipelines that can be paused and resumed
// from outside and that recover from step failures before retrying.
//
// The package is embeddable: everything runs in-process, and the only
// optional external piece is a database for run history (SQLite here, or
// PostgreSQL through the github.com/petrijr/pausable/postgres module).
//
// # Core Concepts
//
//  1. Gate
//  2. Runner
//  3. PipelineBuilder
//  4. RecoveryFunc
//  5. LocalRunner
//
// # Gate
//
// A Gate holds a single pause flag. One controller calls Pause and Resume;
// any number of readers observe it. Every run of a Runner shares the
// Runner's gate and waits for it to be open before each step. Steps reach
// the gate through their context (see pkg/pause.FromContext) and can use it
// for pausable timers and gated channels:
//
//	t := pause.NewTimer(ctx, pause.FromContext(ctx), pause.TimerConfig{
//	    InitialDelay: 2 * time.Second,
//	})
//	defer t.Stop()
//	<-t.C // never fires while the gate is closed
//
// # Runner
//
// A Runner stores pipeline definitions and executes runs. An attempt runs
// the steps in order, feeding each output to the next step. When a step
// fails:
//
//   - the failure is reported to observers and to the outcome stream
//   - the pipeline's RecoveryFunc runs
//   - if recovery succeeds and retries remain, the whole pipeline runs
//     again from the first step
//
// A failed recovery ends the run with a *RecoveryError. Running out of
// retries ends it with a *RetryExhaustedError wrapping the last step
// failure. Every pipeline must carry an explicit RetryPolicy.
//
// # PipelineBuilder
//
// PipelineBuilder is the fluent way to define pipelines:
//
//	pausable.New("Checkout").
//	    Step("openCart", openCart).
//	    Checkpoint("maybe-wait").
//	    Step("pay", pay).
//	    Recover(goHome).
//	    Retry(pausable.Retry(2))
//
// # LocalRunner
//
// LocalRunner bundles an in-memory Runner, a task queue and worker
// goroutines. Pausing it stops workers from taking new runs and holds
// running pipelines at their next step.
//
// Runs are not durable across restarts. NewSQLiteRunner and NewSQLiteBundle
// only keep the event history of each run.
package pausable
