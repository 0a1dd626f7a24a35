package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/facetgrid/internal/types"
)

// LoaderConfig configures concurrent loading of GPX files.
type LoaderConfig struct {
	// Workers is the number of files read and parsed at once (default: 4)
	Workers int
	// SizeWarningThreshold logs a warning for files larger than this many bytes (default: 10MB)
	SizeWarningThreshold int64
	// Logger for load operations
	Logger *slog.Logger
}

// DefaultLoaderConfig returns sensible defaults.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		Workers:              4,
		SizeWarningThreshold: 10 * 1024 * 1024, // 10MB
		Logger:               slog.Default(),
	}
}

// LoadFiles reads and parses the given GPX files concurrently.
// The returned tracks keep the order of paths. Every file is attempted; if any
// fails, the failures are joined into a single error and no tracks are returned.
func LoadFiles(ctx context.Context, paths []string, cfg LoaderConfig) ([]types.Track, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.SizeWarningThreshold <= 0 {
		cfg.SizeWarningThreshold = 10 * 1024 * 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tracks := make([]types.Track, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			track, err := loadFile(path, cfg)
			if err != nil {
				errs[i] = fmt.Errorf("track %d (%s): %w", i, path, err)
				return nil
			}
			tracks[i] = track
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return tracks, nil
}

func loadFile(path string, cfg LoaderConfig) (types.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Track{}, fmt.Errorf("failed to read file: %w", err)
	}

	if int64(len(data)) > cfg.SizeWarningThreshold {
		cfg.Logger.Warn("large GPX file", "path", path, "bytes", len(data))
	}

	track, err := ParseGPX(TrackName(path), data)
	if err != nil {
		return types.Track{}, err
	}

	cfg.Logger.Debug("loaded track",
		"path", path,
		"name", track.Name,
		"segments", len(track.Segments),
		"points", track.PointCount())

	return track, nil
}
