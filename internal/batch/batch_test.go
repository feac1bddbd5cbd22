package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestRunIsolatesFailures(t *testing.T) {
	var executed int32
	tasks := make([]Task, 5)
	for i := range tasks {
		i := i
		tasks[i] = Task{
			Key: fmt.Sprintf("character-%d", i),
			Run: func(ctx context.Context) error {
				atomic.AddInt32(&executed, 1)
				if i == 3 {
					return errors.New("generation failed, please retry")
				}
				return nil
			},
		}
	}
	report := Run(context.Background(), discardLogger(), 2, tasks)
	if report.Succeeded != 4 || report.Failed != 1 {
		t.Fatalf("report = %+v, want 4 succeeded 1 failed", report)
	}
	if executed != 5 {
		t.Fatalf("executed = %d, want all 5 despite one failure", executed)
	}
	if report.Errors["character-3"] == "" {
		t.Fatalf("Errors = %v, want entry for character-3", report.Errors)
	}
}

func TestRunCountsSkipped(t *testing.T) {
	tasks := []Task{
		{Key: "a", Run: func(ctx context.Context) error { return nil }},
		{Key: "b", Skip: true},
		{Key: "c", Skip: true},
	}
	report := Run(context.Background(), discardLogger(), 0, tasks)
	if report.Succeeded != 1 || report.Skipped != 2 {
		t.Fatalf("report = %+v, want 1 succeeded 2 skipped", report)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	tasks := []Task{
		{Key: "boom", Run: func(ctx context.Context) error { panic("nil frame") }},
		{Key: "fine", Run: func(ctx context.Context) error { return nil }},
	}
	report := Run(context.Background(), discardLogger(), 2, tasks)
	if report.Failed != 1 || report.Succeeded != 1 {
		t.Fatalf("report = %+v, want panic recorded as failure", report)
	}
	if report.FailedKeys()[0] != "boom" {
		t.Fatalf("FailedKeys = %v", report.FailedKeys())
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{
			Key: fmt.Sprintf("t%d", i),
			Run: func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				atomic.AddInt32(&inFlight, -1)
				return nil
			},
		}
	}
	Run(context.Background(), discardLogger(), 3, tasks)
	if peak > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", peak)
	}
}
