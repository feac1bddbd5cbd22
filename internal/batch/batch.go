// Package batch runs independent generation tasks concurrently and collects
// their outcomes. One failing task never cancels its siblings; the caller
// gets a final report with per-item errors instead.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
)

// Task is one unit of work in a batch. Skip marks items that should be
// counted but not executed, such as a character whose image already exists.
type Task struct {
	Key  string
	Skip bool
	Run  func(ctx context.Context) error
}

// Report aggregates a batch outcome.
type Report struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// FailedKeys returns the keys of failed tasks in sorted order.
func (r Report) FailedKeys() []string {
	keys := make([]string, 0, len(r.Errors))
	for k := range r.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Run executes all tasks with at most concurrency in flight and joins on
// every one of them before returning. A panicking task is recorded as failed
// rather than taking the batch down.
func Run(ctx context.Context, logger infra.Logger, concurrency int, tasks []Task) Report {
	if concurrency <= 0 {
		concurrency = len(tasks)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	report := Report{Errors: map[string]string{}}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, task := range tasks {
		if task.Skip {
			report.Skipped++
			continue
		}
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := runIsolated(ctx, task)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors[task.Key] = err.Error()
				logger.Warn().Str("key", task.Key).Err(err).Msg("batch: task failed")
				return
			}
			report.Succeeded++
		}(task)
	}
	wg.Wait()

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	logger.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("batch: finished")
	return report
}

func runIsolated(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if task.Run == nil {
		return fmt.Errorf("no run func")
	}
	return task.Run(ctx)
}
