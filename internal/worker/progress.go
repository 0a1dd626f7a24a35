package worker

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress tracks batch progress and renders it as a terminal progress bar.
type Progress struct {
	bar       *progressbar.ProgressBar
	output    io.Writer
	enabled   bool
	startTime time.Time
	total     int
	completed int
	failed    int
	mu        sync.Mutex
}

// NewProgress creates a progress tracker writing to stderr.
// A disabled tracker only records counts for Summary.
func NewProgress(total int, enabled bool) *Progress {
	return newProgress(total, enabled, os.Stderr)
}

func newProgress(total int, enabled bool, out io.Writer) *Progress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetVisibility(enabled),
	)

	return &Progress{
		bar:       bar,
		output:    out,
		enabled:   enabled,
		startTime: time.Now(),
		total:     total,
	}
}

// Update records the completion of a job.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed = completed
	p.total = total
	p.failed = failed

	if failed > 0 {
		p.bar.Describe(fmt.Sprintf("rendering (%d failed)", failed))
	}
	_ = p.bar.Set(completed)
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Done completes the bar and ends its line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.bar.Finish()
	if p.enabled {
		fmt.Fprintln(p.output)
	}
}

// Summary returns a summary string of the completed work.
func (p *Progress) Summary() string {
	p.mu.Lock()
	completed, total, failed := p.completed, p.total, p.failed
	p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	return fmt.Sprintf("Rendered %d/%d grids (%d failed) in %s",
		completed-failed, total, failed, formatDuration(elapsed))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
