package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/facetgrid/internal/pipeline"
)

// mockRunner simulates job execution for testing
type mockRunner struct {
	delay     time.Duration
	failJobs  map[string]bool // jobs that should fail
	callCount atomic.Int32
}

func (m *mockRunner) Run(ctx context.Context, job pipeline.Job) (pipeline.JobResult, error) {
	m.callCount.Add(1)

	select {
	case <-ctx.Done():
		return pipeline.JobResult{}, ctx.Err()
	case <-time.After(m.delay):
	}

	if m.failJobs != nil && m.failJobs[job.Name] {
		return pipeline.JobResult{}, errors.New("simulated failure")
	}

	return pipeline.JobResult{Output: "/tmp/" + job.Name + ".png", Tracks: len(job.Inputs)}, nil
}

func jobs(n int) []pipeline.Job {
	out := make([]pipeline.Job, n)
	for i := range out {
		out[i] = pipeline.Job{Name: fmt.Sprintf("job-%d", i), Inputs: []string{"a.gpx"}}
	}
	return out
}

func TestPool_BasicExecution(t *testing.T) {
	runner := &mockRunner{delay: 10 * time.Millisecond}

	pool := New(Config{
		Workers: 2,
		Runner:  runner,
	})

	js := jobs(3)
	results := pool.Run(context.Background(), js)

	if len(results) != len(js) {
		t.Fatalf("Expected %d results, got %d", len(js), len(results))
	}

	for i, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", r.Job.Name, r.Err)
		}
		if r.Job.Name != js[i].Name {
			t.Errorf("Result %d belongs to %s, want %s", i, r.Job.Name, js[i].Name)
		}
		if r.Output.Output != "/tmp/"+js[i].Name+".png" {
			t.Errorf("Unexpected output %q", r.Output.Output)
		}
	}

	if runner.callCount.Load() != int32(len(js)) {
		t.Errorf("Expected %d runner calls, got %d", len(js), runner.callCount.Load())
	}
}

func TestPool_Parallelism(t *testing.T) {
	runner := &mockRunner{delay: 50 * time.Millisecond}

	pool := New(Config{
		Workers: 4,
		Runner:  runner,
	})

	start := time.Now()
	results := pool.Run(context.Background(), jobs(8))
	elapsed := time.Since(start)

	// With 4 workers and 8 jobs at 50ms each, should take ~100ms (2 batches)
	if elapsed > 300*time.Millisecond {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}

	if len(results) != 8 {
		t.Errorf("Expected 8 results, got %d", len(results))
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	runner := &mockRunner{
		delay:    10 * time.Millisecond,
		failJobs: map[string]bool{"job-1": true},
	}

	pool := New(Config{
		Workers: 2,
		Runner:  runner,
	})

	results := pool.Run(context.Background(), jobs(3))

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	for i, r := range results {
		if (r.Err != nil) != (i == 1) {
			t.Errorf("Job %s: unexpected error state %v", r.Job.Name, r.Err)
		}
	}
}

func TestPool_Cancellation(t *testing.T) {
	runner := &mockRunner{delay: 100 * time.Millisecond}

	pool := New(Config{
		Workers: 2,
		Runner:  runner,
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, jobs(10))
	elapsed := time.Since(start)

	if elapsed > 300*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}
	if len(results) != 10 {
		t.Fatalf("Expected a result for every job, got %d", len(results))
	}

	var cancelled int
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled != 10 {
		t.Errorf("Expected all 10 jobs cancelled, got %d", cancelled)
	}
	if runner.callCount.Load() > 2 {
		t.Errorf("Expected at most 2 jobs started before cancellation, got %d", runner.callCount.Load())
	}
}

func TestPool_ProgressCallback(t *testing.T) {
	runner := &mockRunner{delay: 10 * time.Millisecond, failJobs: map[string]bool{"job-0": true}}

	var progressCalls atomic.Int32
	var lastCompleted, lastTotal, lastFailed int

	pool := New(Config{
		Workers: 2,
		Runner:  runner,
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
			lastFailed = failed
		},
	})

	pool.Run(context.Background(), jobs(3))

	if progressCalls.Load() != 3 {
		t.Errorf("Expected 3 progress callbacks, got %d", progressCalls.Load())
	}
	if lastCompleted != 3 || lastTotal != 3 || lastFailed != 1 {
		t.Errorf("Final progress = %d/%d (%d failed), want 3/3 (1 failed)", lastCompleted, lastTotal, lastFailed)
	}
}

func TestPool_EmptyJobs(t *testing.T) {
	runner := &mockRunner{}

	pool := New(Config{
		Workers: 2,
		Runner:  runner,
	})

	results := pool.Run(context.Background(), nil)

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty jobs, got %d", len(results))
	}
	if runner.callCount.Load() != 0 {
		t.Errorf("Expected 0 runner calls for empty jobs, got %d", runner.callCount.Load())
	}
}
