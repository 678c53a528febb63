package utils

import (
	"fmt"
	"sync"
)

type Task[In any] struct {
	Index int
	Input In
}

type CompletedTask[T any] struct {
	Index  int
	Result T
	Error  error
}

// RunInPool drains queue on up to maxWorkers goroutines and closes completed
// once every task has been reported.
func RunInPool[In any, Out any](worker func(In) (Out, error), queue chan Task[In], completed chan CompletedTask[Out], maxWorkers int) {
	workers := max(min(len(queue), maxWorkers), 1)

	go func() {
		wg := sync.WaitGroup{}
		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				for next := range queue {
					res, err := worker(next.Input)
					completed <- CompletedTask[Out]{Index: next.Index, Result: res, Error: err}
				}
			}()
		}

		wg.Wait()

		close(completed)
	}()
}

// MapOrdered applies worker to every input through RunInPool and returns the
// results in input order. onDone, if set, is called once per finished input.
// The first error (by input position) is returned.
func MapOrdered[In any, Out any](inputs []In, worker func(In) (Out, error), maxWorkers int, onDone func()) ([]Out, error) {
	queue := make(chan Task[In], len(inputs))
	for i, input := range inputs {
		queue <- Task[In]{Index: i, Input: input}
	}
	close(queue)

	completed := make(chan CompletedTask[Out], len(inputs))
	RunInPool(worker, queue, completed, maxWorkers)

	out := make([]Out, len(inputs))
	errs := make([]error, len(inputs))
	for task := range completed {
		out[task.Index], errs[task.Index] = task.Result, task.Error
		if onDone != nil {
			onDone()
		}
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return out, nil
}
