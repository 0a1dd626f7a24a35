// Package worker runs independent render jobs in parallel.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/facetgrid/internal/pipeline"
)

// Runner executes a single job.
// This matches the signature of pipeline.JobRunner.Run.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) (pipeline.JobResult, error)
}

// Result represents the outcome of one job.
type Result struct {
	Job     pipeline.Job
	Output  pipeline.JobResult
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each job completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Runner     Runner
	OnProgress ProgressFunc
}

// Pool runs jobs with a bounded number of workers. Jobs share nothing; a
// failing job does not affect the others.
type Pool struct {
	workers    int
	runner     Runner
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		runner:     cfg.Runner,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all jobs and returns one result per job, in job order.
// It blocks until every job has finished or been cancelled through ctx.
func (p *Pool) Run(ctx context.Context, jobs []pipeline.Job) []Result {
	if len(jobs) == 0 {
		return nil
	}

	indexCh := make(chan int)
	results := make([]Result, len(jobs))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	report := func(i int, r Result) {
		mu.Lock()
		results[i] = r
		completed++
		if r.Err != nil {
			failed++
		}
		c, f := completed, failed
		if p.onProgress != nil {
			p.onProgress(c, len(jobs), f)
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for w := 0; w < min(p.workers, len(jobs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				report(i, p.run(ctx, jobs[i]))
			}
		}()
	}

	for i := range jobs {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	return results
}

func (p *Pool) run(ctx context.Context, job pipeline.Job) Result {
	if err := ctx.Err(); err != nil {
		return Result{Job: job, Err: err}
	}

	start := time.Now()
	out, err := p.runner.Run(ctx, job)

	return Result{
		Job:     job,
		Output:  out,
		Err:     err,
		Elapsed: time.Since(start),
	}
}
