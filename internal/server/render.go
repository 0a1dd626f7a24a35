package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/MeKo-Tech/facetgrid/internal/composite"
	"github.com/MeKo-Tech/facetgrid/internal/datasource"
	"github.com/MeKo-Tech/facetgrid/internal/pipeline"
	"github.com/MeKo-Tech/facetgrid/internal/projector"
	"github.com/MeKo-Tech/facetgrid/internal/types"
)

// tracksField is the multipart field holding the uploaded recordings.
const tracksField = "tracks"

// statusClientClosedRequest is answered when the client went away before the
// render started (nginx convention).
const statusClientClosedRequest = 499

// renderForm holds the option fields a request may override. Absent fields
// keep the server defaults.
type renderForm struct {
	Resolution    *int     `form:"resolution"`
	LineThickness *float64 `form:"line_thickness"`
	GridLines     *bool    `form:"grid"`
	Background    *string  `form:"background"`
	Foreground    *string  `form:"foreground"`
	GridColor     *string  `form:"grid_color"`
	Title         *string  `form:"title"`
	Caption       *bool    `form:"caption"`
	NoCenter      *bool    `form:"no_center"`
}

func (f renderForm) apply(opts pipeline.Options) pipeline.Options {
	if f.Resolution != nil {
		opts.Resolution = *f.Resolution
	}
	if f.LineThickness != nil {
		opts.LineThickness = *f.LineThickness
	}
	if f.GridLines != nil {
		opts.GridLines = *f.GridLines
	}
	if f.Background != nil {
		opts.Background = *f.Background
	}
	if f.Foreground != nil {
		opts.Foreground = *f.Foreground
	}
	if f.GridColor != nil {
		opts.GridColor = *f.GridColor
	}
	if f.Title != nil {
		opts.Title = *f.Title
	}
	if f.Caption != nil {
		opts.Caption = *f.Caption
	}
	if f.NoCenter != nil {
		opts.NoCenter = *f.NoCenter
	}
	return opts
}

// RenderResponse is the data payload of a successful render.
type RenderResponse struct {
	Image      string `json:"image"`
	GridSide   int    `json:"grid_side"`
	Tracks     int    `json:"tracks"`
	Resolution int    `json:"resolution"`
}

func (s *Server) handleRender(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "expected a multipart form")
		return
	}

	files := form.File[tracksField]
	if len(files) == 0 {
		BadRequest(c, fmt.Sprintf("no files uploaded in field %q", tracksField))
		return
	}

	for _, fh := range files {
		if err := ValidateUpload(fh.Filename, fh.Size, s.cfg.MaxUploadMB); err != nil {
			var uerr *UploadError
			errors.As(err, &uerr)
			s.log().Warn("upload refused", "id", requestID(c), "file", fh.Filename, "size", fh.Size)
			BadRequest(c, uerr.Message)
			return
		}
	}

	var overrides renderForm
	if err := c.ShouldBindWith(&overrides, binding.FormMultipart); err != nil {
		BadRequest(c, fmt.Sprintf("invalid options: %v", err))
		return
	}
	opts := overrides.apply(s.cfg.Defaults)
	if err := opts.Validate(); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if opts.Resolution > s.cfg.MaxResolution {
		BadRequest(c, fmt.Sprintf("resolution must not exceed %d", s.cfg.MaxResolution))
		return
	}

	tracks, err := readUploads(files)
	if err != nil {
		s.log().Warn("upload rejected", "id", requestID(c), "error", err)
		BadRequest(c, err.Error())
		return
	}

	if err := c.Request.Context().Err(); err != nil {
		_ = c.Error(err)
		Error(c, statusClientClosedRequest, "request cancelled")
		return
	}

	gen, err := pipeline.NewGenerator(opts, s.logger)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	grid, err := gen.Render(tracks)
	if err != nil {
		if isClientError(err) {
			BadRequest(c, err.Error())
			return
		}
		_ = c.Error(err)
		InternalError(c, "failed to render grid")
		return
	}

	image, err := grid.Base64()
	if err != nil {
		_ = c.Error(err)
		InternalError(c, "failed to encode image")
		return
	}

	s.log().Debug("grid rendered", "id", requestID(c), "tracks", len(tracks), "side", grid.Side())

	Success(c, RenderResponse{
		Image:      image,
		GridSide:   grid.Side(),
		Tracks:     len(tracks),
		Resolution: grid.Resolution(),
	})
}

// readUploads parses every uploaded file. All failures are reported together
// and no track is returned if any file is invalid.
func readUploads(files []*multipart.FileHeader) ([]types.Track, error) {
	tracks := make([]types.Track, len(files))
	var errs []error

	for i, fh := range files {
		track, err := readUpload(fh)
		if err != nil {
			errs = append(errs, fmt.Errorf("track %d (%s): %w", i, fh.Filename, err))
			continue
		}
		tracks[i] = track
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return tracks, nil
}

func readUpload(fh *multipart.FileHeader) (types.Track, error) {
	f, err := fh.Open()
	if err != nil {
		return types.Track{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return types.Track{}, fmt.Errorf("failed to read upload: %w", err)
	}

	name := datasource.TrackName(fh.Filename)
	if name == "" {
		name = strings.TrimSpace(fh.Filename)
	}
	return datasource.ParseGPX(name, data)
}

func isClientError(err error) bool {
	return errors.Is(err, pipeline.ErrInvalidOptions) ||
		errors.Is(err, composite.ErrTooManyTracks) ||
		errors.Is(err, composite.ErrNoTracks) ||
		errors.Is(err, projector.ErrEmptyGeometry) ||
		errors.Is(err, datasource.ErrParseFailure)
}
