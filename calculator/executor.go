package calculator

import (
	"context"
	"sync"
	"time"
)

// task is a half-open range of domain members.
type task struct {
	start int
	end   int
}

// executor hands index ranges to a fixed number of workers. Every task writes
// to its own slots, so nothing is locked.
type executor struct {
	workers int
}

func newExecutor(workers int) *executor {
	if workers < 1 {
		workers = 1
	}
	return &executor{workers: workers}
}

// split cuts [0, total) into tasks: each worker's share is handed out in two
// halves, the remainder one member at a time.
func (e *executor) split(total int) []task {
	if total <= 0 {
		return nil
	}
	taskLen, remainder := total/e.workers, total%e.workers
	tasks := make([]task, 0, 2*e.workers+remainder)

	start := 0
	if taskLen == 1 {
		for start < total-remainder {
			tasks = append(tasks, task{start: start, end: start + 1})
			start++
		}
	} else if taskLen > 1 {
		half1, half2 := taskLen/2, taskLen/2
		if taskLen%2 == 1 {
			half2++
		}
		for start < total-remainder {
			tasks = append(tasks, task{start: start, end: start + half1})
			start += half1
			tasks = append(tasks, task{start: start, end: start + half2})
			start += half2
		}
	}
	for i := 0; i < remainder; i++ {
		tasks = append(tasks, task{start: start, end: start + 1})
		start++
	}
	return tasks
}

// dispatch runs f over [0, total) and blocks until every task is done or
// skipped because ctx ended.
func (e *executor) dispatch(ctx context.Context, total int, f func(t task)) (time.Duration, error) {
	start := time.Now()
	tasks := e.split(total)
	if e.workers == 1 || len(tasks) <= 1 {
		for _, t := range tasks {
			if err := ctx.Err(); err != nil {
				return time.Since(start), err
			}
			f(t)
		}
		return time.Since(start), ctx.Err()
	}

	dispatchChan := make(chan task, len(tasks))
	for _, t := range tasks {
		dispatchChan <- t
	}
	close(dispatchChan)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range dispatchChan {
				if ctx.Err() != nil {
					continue
				}
				f(t)
			}
		}()
	}
	wg.Wait()
	return time.Since(start), ctx.Err()
}
