package worker_test

import (
	"context"
	"fmt"
	"log"

	"github.com/petrijr/pausable"
	"github.com/petrijr/pausable/pkg/worker"
)

// ExampleWorker constructs a Worker explicitly and processes one task.
func ExampleWorker() {
	ctx := context.Background()

	runner := pausable.NewInMemoryRunner()
	queue := pausable.NewInMemoryQueue(1024)

	p := pausable.New("BackgroundJob").
		Step("doWork", func(ctx context.Context, input any) (any, error) {
			return fmt.Sprintf("processed:%v", input), nil
		}).
		Retry(pausable.Retry(1))

	if err := p.Register(runner); err != nil {
		log.Fatal(err)
	}

	w := worker.New(runner, queue)

	if _, err := w.EnqueueStartRun(ctx, p.Name(), "payload"); err != nil {
		log.Fatal(err)
	}

	// In a real application ProcessOne runs in a loop, as LocalRunner does.
	processed, err := w.ProcessOne(ctx)
	if err != nil {
		log.Fatal(err)
	}

	runs, _ := runner.ListRuns(ctx, pausable.RunListOptions{Pipeline: p.Name()})
	fmt.Println(processed, runs[0].Output)
	// Output: true processed:payload
}
