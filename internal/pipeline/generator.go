package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/facetgrid/internal/composite"
	"github.com/MeKo-Tech/facetgrid/internal/projector"
	"github.com/MeKo-Tech/facetgrid/internal/types"
)

// ErrNoTracks is returned when a render is requested without any track.
var ErrNoTracks = composite.ErrNoTracks

// Generator turns parsed tracks into a facet grid.
type Generator struct {
	opts   Options
	logger *slog.Logger
}

// NewGenerator validates opts and prepares a generator.
func NewGenerator(opts Options, logger *slog.Logger) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Generator{opts: opts, logger: logger}, nil
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}

// Options returns the options the generator was built with.
func (g *Generator) Options() Options {
	return g.opts
}

// Prepare builds one projector per track. Every track is checked before the
// first failure is reported; all failures are returned joined together.
func (g *Generator) Prepare(tracks []types.Track) ([]*projector.TrackProjector, error) {
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	projectors := make([]*projector.TrackProjector, 0, len(tracks))
	var errs []error

	for i, track := range tracks {
		p, err := projector.FromTrack(track, g.opts.ZoomBudget)
		if err != nil {
			g.log().Error("track rejected", "index", i, "name", track.Name, "error", err)
			errs = append(errs, fmt.Errorf("track %d (%s): %w", i, track.Name, err))
			continue
		}

		g.log().Debug("track projected",
			"index", i,
			"name", track.Name,
			"points", track.PointCount(),
			"zoom", p.Zoom(),
			"tiles", p.Tiles().String(),
			"tile_count", p.Tiles().Count(),
			"extent", p.Tiles().Bounds().String())

		projectors = append(projectors, p)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return projectors, nil
}

// Render prepares every track and lays them out on a grid. The returned grid
// has been drawn and can be serialized.
func (g *Generator) Render(tracks []types.Track) (*composite.Grid, error) {
	projectors, err := g.Prepare(tracks)
	if err != nil {
		return nil, err
	}

	style, err := g.opts.Style()
	if err != nil {
		return nil, err
	}

	grid, err := composite.NewGrid(projectors, style, g.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to lay out grid: %w", err)
	}

	if _, err := grid.Render(); err != nil {
		return nil, fmt.Errorf("failed to draw grid: %w", err)
	}

	return grid, nil
}

// RenderTrackGrid renders tracks with opts and returns the image as a base64-encoded PNG.
// Any invalid track aborts the whole render; no partial image is produced.
func RenderTrackGrid(tracks []types.Track, opts Options, logger *slog.Logger) (string, error) {
	gen, err := NewGenerator(opts, logger)
	if err != nil {
		return "", err
	}

	grid, err := gen.Render(tracks)
	if err != nil {
		return "", err
	}

	return grid.Base64()
}
