package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/facetgrid/internal/datasource"
	"github.com/MeKo-Tech/facetgrid/internal/mbtiles"
)

// Job is one independent render: a set of GPX files drawn into one image.
type Job struct {
	Name    string   `yaml:"name" validate:"required"`
	Inputs  []string `yaml:"inputs" validate:"required,min=1,dive,required"`
	Output  string   `yaml:"output" validate:"required"`
	Pyramid string   `yaml:"pyramid"`
	Options Options  `yaml:"-" validate:"-"`
}

// JobResult describes what a finished job produced.
type JobResult struct {
	Output   string
	Pyramid  string
	Tracks   int
	GridSide int
}

// JobRunner executes jobs. Each job loads its own tracks and owns its canvas,
// so a runner may execute several jobs concurrently.
type JobRunner struct {
	Loader datasource.LoaderConfig
	Logger *slog.Logger

	// Open shows every written image in the system viewer.
	Open bool
}

func (r *JobRunner) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run loads the job's tracks, renders the grid and writes the outputs.
func (r *JobRunner) Run(ctx context.Context, job Job) (JobResult, error) {
	log := r.log().With("job", job.Name)

	gen, err := NewGenerator(job.Options, log)
	if err != nil {
		return JobResult{}, err
	}

	loader := r.Loader
	loader.Logger = log
	tracks, err := datasource.LoadFiles(ctx, job.Inputs, loader)
	if err != nil {
		return JobResult{}, fmt.Errorf("failed to load tracks: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return JobResult{}, err
	}

	grid, err := gen.Render(tracks)
	if err != nil {
		return JobResult{}, err
	}

	if err := grid.Save(job.Output, r.Open); err != nil {
		return JobResult{}, err
	}

	res := JobResult{
		Output:   job.Output,
		Tracks:   len(tracks),
		GridSide: grid.Side(),
	}

	if job.Pyramid != "" {
		canvas, err := grid.Render()
		if err != nil {
			return JobResult{}, err
		}
		if dir := filepath.Dir(job.Pyramid); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return JobResult{}, fmt.Errorf("failed to create pyramid directory: %w", err)
			}
		}

		meta := mbtiles.Metadata{
			Name:        job.Name,
			Description: job.Options.Title,
			GridSide:    grid.Side(),
			Tracks:      len(tracks),
			Extent:      grid.Extent(),
		}
		meta, err = mbtiles.WritePyramid(ctx, job.Pyramid, canvas.Image(), mbtiles.DefaultTileSize, meta)
		if err != nil {
			return JobResult{}, fmt.Errorf("failed to write pyramid: %w", err)
		}

		log.Info("pyramid written", "path", job.Pyramid, "max_zoom", meta.MaxZoom)
		res.Pyramid = job.Pyramid
	}

	return res, nil
}
