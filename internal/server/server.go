// Package server exposes grid rendering over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MeKo-Tech/facetgrid/internal/pipeline"
)

// Config configures the HTTP server.
type Config struct {
	Addr string

	// MaxUploadMB is the per-file upload limit in megabytes.
	MaxUploadMB int

	// MaxResolution caps the canvas edge a request may ask for.
	MaxResolution int

	// Defaults are the render options used for fields a request leaves out.
	Defaults pipeline.Options

	// PyramidPath optionally names an MBTiles file served under /api/v1/pyramid.
	PyramidPath  string
	CacheControl string

	ShutdownTimeout time.Duration
}

// DefaultMaxResolution is the largest canvas edge a request may ask for.
const DefaultMaxResolution = 4096

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8080",
		MaxUploadMB:     DefaultMaxUploadMB,
		MaxResolution:   DefaultMaxResolution,
		Defaults:        pipeline.DefaultOptions(),
		CacheControl:    "public, max-age=3600",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server renders uploaded tracks into facet grids. Requests share no state
// apart from the logger and the optional pyramid reader.
type Server struct {
	cfg     Config
	engine  *gin.Engine
	pyramid *PyramidHandler
	logger  *slog.Logger
}

// New validates cfg and builds the router.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultMaxUploadMB
	}
	if cfg.MaxResolution <= 0 {
		cfg.MaxResolution = DefaultMaxResolution
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default options: %w", err)
	}
	if cfg.Defaults.Resolution > cfg.MaxResolution {
		return nil, fmt.Errorf("default resolution %d exceeds max resolution %d", cfg.Defaults.Resolution, cfg.MaxResolution)
	}

	s := &Server{cfg: cfg, logger: logger}

	if cfg.PyramidPath != "" {
		h, err := NewPyramidHandler(cfg.PyramidPath, cfg.CacheControl, logger)
		if err != nil {
			return nil, err
		}
		s.pyramid = h
	}

	s.engine = s.routes()
	return s, nil
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = int64(s.cfg.MaxUploadMB) * 1_000_000
	r.Use(gin.Recovery(), RequestLogger(s.log()), CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api/v1")
	{
		api.POST("/render", s.handleRender)

		if s.pyramid != nil {
			api.GET("/pyramid", s.pyramid.Metadata)
			api.GET("/pyramid/:z/:x/:y", s.pyramid.Tile)
		}
	}

	return r
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log().Info("server listening",
			"addr", s.cfg.Addr,
			"max_upload_mb", s.cfg.MaxUploadMB,
			"max_resolution", s.cfg.MaxResolution,
			"pyramid", s.cfg.PyramidPath,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	s.log().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Close releases the pyramid reader, if any.
func (s *Server) Close() error {
	if s.pyramid != nil {
		return s.pyramid.Close()
	}
	return nil
}
