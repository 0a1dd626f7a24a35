package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MeKo-Tech/facetgrid/internal/mbtiles"
	"github.com/MeKo-Tech/facetgrid/internal/tile"
)

// PyramidHandler serves the tiles of a rendered grid from an MBTiles database.
type PyramidHandler struct {
	reader       *mbtiles.Reader
	logger       *slog.Logger
	cacheControl string
}

// NewPyramidHandler opens the MBTiles file at path.
func NewPyramidHandler(path, cacheControl string, logger *slog.Logger) (*PyramidHandler, error) {
	reader, err := mbtiles.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MBTiles: %w", err)
	}

	return &PyramidHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cacheControl,
	}, nil
}

func (h *PyramidHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// Tile serves GET .../:z/:x/:y where y carries a ".png" suffix.
func (h *PyramidHandler) Tile(c *gin.Context) {
	coords, ok := parseTileParams(c.Param("z"), c.Param("x"), c.Param("y"))
	if !ok {
		NotFound(c, "tile not found")
		return
	}

	data, err := h.reader.Tile(coords)
	if errors.Is(err, mbtiles.ErrTileNotFound) {
		NotFound(c, "tile not found")
		return
	}
	if err != nil {
		h.log().Error("failed to read tile", "coords", coords.String(), "error", err)
		InternalError(c, "failed to read tile")
		return
	}

	if h.cacheControl != "" {
		c.Header("Cache-Control", h.cacheControl)
	}
	c.Data(http.StatusOK, "image/png", data)
}

// Metadata serves the pyramid's metadata table.
func (h *PyramidHandler) Metadata(c *gin.Context) {
	meta, err := h.reader.Metadata()
	if err != nil {
		h.log().Error("failed to read metadata", "error", err)
		InternalError(c, "failed to read metadata")
		return
	}
	Success(c, meta.ToMap())
}

// Close closes the MBTiles reader.
func (h *PyramidHandler) Close() error {
	return h.reader.Close()
}

func parseTileParams(zs, xs, ys string) (tile.Coords, bool) {
	ys, found := strings.CutSuffix(ys, ".png")
	if !found {
		return tile.Coords{}, false
	}

	z, errZ := strconv.Atoi(zs)
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errZ != nil || errX != nil || errY != nil {
		return tile.Coords{}, false
	}

	if z < 0 || z > 30 {
		return tile.Coords{}, false
	}
	if n := 1 << z; x < 0 || y < 0 || x >= n || y >= n {
		return tile.Coords{}, false
	}
	return tile.Coords{Z: z, X: x, Y: y}, true
}
