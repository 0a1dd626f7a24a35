package composite

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/facetgrid/internal/projector"
	"github.com/MeKo-Tech/facetgrid/internal/raster"
	"github.com/MeKo-Tech/facetgrid/internal/types"
)

const (
	// DefaultResolution is the side length of the square output canvas.
	DefaultResolution = 2000

	// MaxGridSide bounds the grid dimension search (MaxGridSide² cells).
	MaxGridSide = 100

	// gridLineWidth is the stroke width of the optional cell grid.
	gridLineWidth = 1
)

var (
	// ErrTooManyTracks is returned when the tracks do not fit a MaxGridSide×MaxGridSide grid.
	ErrTooManyTracks = errors.New("too many tracks")

	// ErrNoTracks is returned when a grid is requested for zero tracks.
	ErrNoTracks = errors.New("no tracks to render")
)

// Style configures how a grid is drawn.
type Style struct {
	Resolution    int
	LineThickness float64
	GridLines     bool
	Background    color.Color
	Foreground    color.Color
	GridColor     color.Color

	// Title is drawn along the top edge only when Caption is set.
	Title   string
	Caption bool

	// Centered places every track in the middle of its cell; otherwise tracks
	// start at the top-left corner of their cell.
	Centered bool
}

// DefaultStyle returns the reference look: white tracks on black, centred, no grid.
func DefaultStyle() Style {
	return Style{
		Resolution:    DefaultResolution,
		LineThickness: 2,
		Background:    color.Black,
		Foreground:    color.White,
		GridColor:     color.NRGBA{R: 128, G: 128, B: 128, A: 255},
		Centered:      true,
	}
}

// GridDimension returns the smallest g with n <= g².
func GridDimension(n int) (int, error) {
	for g := 1; g <= MaxGridSide; g++ {
		if n <= g*g {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %d tracks exceed a %dx%d grid", ErrTooManyTracks, n, MaxGridSide, MaxGridSide)
}

// Grid lays out one projected track per cell of a square grid and draws them
// at a shared scale derived from the widest track.
type Grid struct {
	projectors []*projector.TrackProjector
	style      Style
	logger     *slog.Logger

	side          int
	pixelsPerTile float64
	cellSize      float64
	scale         float64

	canvas     *raster.Canvas
	placements []projector.Placement
}

// NewGrid computes the grid geometry for projectors. Nothing is drawn yet.
func NewGrid(projectors []*projector.TrackProjector, style Style, logger *slog.Logger) (*Grid, error) {
	if len(projectors) == 0 {
		return nil, ErrNoTracks
	}
	def := DefaultStyle()
	if style.Resolution <= 0 {
		style.Resolution = def.Resolution
	}
	if style.Background == nil {
		style.Background = def.Background
	}
	if style.Foreground == nil {
		style.Foreground = def.Foreground
	}
	if style.GridColor == nil {
		style.GridColor = def.GridColor
	}

	side, err := GridDimension(len(projectors))
	if err != nil {
		return nil, err
	}

	maxTileWidth := 0
	for _, p := range projectors {
		maxTileWidth = max(maxTileWidth, p.TileWidth())
	}

	res := float64(style.Resolution)
	pixelsPerTile := res / float64(maxTileWidth)

	g := &Grid{
		projectors:    projectors,
		style:         style,
		logger:        logger,
		side:          side,
		pixelsPerTile: pixelsPerTile,
		cellSize:      res / float64(side),
		scale:         pixelsPerTile / float64(side),
	}

	g.log().Info("grid layout",
		"tracks", len(projectors),
		"grid_side", side,
		"max_tile_width", maxTileWidth,
		"cell_size", g.cellSize,
		"tile_scale", g.scale)

	return g, nil
}

func (g *Grid) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}

// Extent returns the geographic area covered by the tiles of every track.
func (g *Grid) Extent() types.BoundingBox {
	var ext types.BoundingBox
	for _, p := range g.projectors {
		ext = ext.Union(p.Tiles().Bounds())
	}
	return ext
}

// Side returns the number of rows (and columns) of the grid.
func (g *Grid) Side() int { return g.side }

// CellSize returns the side length of one cell in pixels.
func (g *Grid) CellSize() float64 { return g.cellSize }

// PixelsPerTile returns the canvas resolution divided by the widest track's tile width.
func (g *Grid) PixelsPerTile() float64 { return g.pixelsPerTile }

// TileScale returns the pixels per tile used when drawing a track inside its cell.
func (g *Grid) TileScale() float64 { return g.scale }

// Resolution returns the canvas side length in pixels.
func (g *Grid) Resolution() int { return g.style.Resolution }

// Cell returns the row and column of the i-th track.
func (g *Grid) Cell(i int) (row, col int) {
	return i / g.side, i % g.side
}

// CenteringOffset returns the pixel translation that centres p within a cell,
// or (0,0) when centering is disabled.
func (g *Grid) CenteringOffset(p *projector.TrackProjector) (float64, float64) {
	if !g.style.Centered {
		return 0, 0
	}
	w, h := p.PixelSize(g.scale)
	return g.cellSize/2 - w/2, g.cellSize/2 - h/2
}

// Layout returns the placement of every track in input order.
func (g *Grid) Layout() []projector.Placement {
	out := make([]projector.Placement, len(g.projectors))
	for i, p := range g.projectors {
		row, col := g.Cell(i)
		cx, cy := g.CenteringOffset(p)

		out[i] = projector.Placement{
			OffsetX: int(math.Floor(g.cellSize*float64(col) + cx)),
			OffsetY: int(math.Floor(g.cellSize*float64(row) + cy)),
			Scale:   g.scale,
		}
	}
	return out
}

// GridLinePositions returns the pixel positions of the cell grid lines, used for both axes.
func (g *Grid) GridLinePositions() []int {
	step := g.style.Resolution / g.side
	if step <= 0 {
		step = 1
	}

	var pos []int
	for p := 0; p < g.style.Resolution; p += step {
		pos = append(pos, p)
	}
	return pos
}

// DrawOnto draws the optional grid and every track onto s and returns where each track landed.
func (g *Grid) DrawOnto(s projector.Surface) []projector.Placement {
	if g.style.GridLines {
		res := g.style.Resolution
		for _, p := range g.GridLinePositions() {
			s.DrawLine(p, 0, p, res, gridLineWidth, g.style.GridColor)
		}
		for _, p := range g.GridLinePositions() {
			s.DrawLine(0, p, res, p, gridLineWidth, g.style.GridColor)
		}
	}

	layout := g.Layout()
	placements := make([]projector.Placement, len(g.projectors))
	for i, p := range g.projectors {
		at := layout[i]
		placements[i] = p.Draw(s, at.OffsetX, at.OffsetY, at.Scale, g.style.LineThickness, g.style.Foreground)

		g.log().Debug("track drawn",
			"index", i,
			"name", p.Track().Name,
			"zoom", p.Zoom(),
			"offset_x", at.OffsetX,
			"offset_y", at.OffsetY)
	}

	return placements
}

// Render allocates the canvas and draws the grid onto it. Calling Render again
// returns the canvas from the first call.
func (g *Grid) Render() (*raster.Canvas, error) {
	if g.canvas != nil {
		return g.canvas, nil
	}

	canvas, err := raster.NewCanvas(g.style.Resolution, g.style.Background)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate canvas: %w", err)
	}

	placements := g.DrawOnto(canvas)

	if g.style.Caption {
		if err := canvas.DrawCaption(g.style.Title, g.style.Foreground); err != nil {
			return nil, err
		}
	}

	g.canvas = canvas
	g.placements = placements
	return canvas, nil
}

// Placements returns where each track was drawn by Render, or nil before rendering.
func (g *Grid) Placements() []projector.Placement {
	return g.placements
}
