package projector

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/MeKo-Tech/facetgrid/internal/tile"
	"github.com/MeKo-Tech/facetgrid/internal/types"
)

// ErrEmptyGeometry is returned for a track without any points.
var ErrEmptyGeometry = errors.New("track has no points")

// Surface is the drawing target a projector strokes its polylines onto.
type Surface interface {
	DrawLine(x1, y1, x2, y2 int, thickness float64, c color.Color)
}

// Placement records where a track was drawn: its pixel offset on the canvas and
// the number of pixels per tile used.
type Placement struct {
	OffsetX int
	OffsetY int
	Scale   float64
}

// TrackProjector maps the points of a single track into pixel space.
// It holds no drawing state and may be drawn any number of times.
type TrackProjector struct {
	track types.Track
	zoom  int
	tiles tile.Range
}

// New builds a projector for track at zoom, using bounds to derive the covering tile range.
func New(track types.Track, bounds types.BoundingBox, zoom int) (*TrackProjector, error) {
	if track.PointCount() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyGeometry, track.Name)
	}

	return &TrackProjector{
		track: track,
		zoom:  zoom,
		tiles: tile.RangeFromBounds(bounds, zoom),
	}, nil
}

// FromTrack computes the bounding box and auto zoom of track under budget and builds its projector.
func FromTrack(track types.Track, budget int) (*TrackProjector, error) {
	bounds, ok := track.Bounds()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEmptyGeometry, track.Name)
	}
	return New(track, bounds, tile.AutoZoom(bounds, budget))
}

// Track returns the projected track.
func (p *TrackProjector) Track() types.Track { return p.track }

// Zoom returns the zoom level the track is projected at.
func (p *TrackProjector) Zoom() int { return p.zoom }

// Tiles returns the tile range covering the track.
func (p *TrackProjector) Tiles() tile.Range { return p.tiles }

// TileWidth returns the number of tile columns the track spans (>= 1).
func (p *TrackProjector) TileWidth() int { return p.tiles.Width() }

// TileHeight returns the number of tile rows the track spans (>= 1).
func (p *TrackProjector) TileHeight() int { return p.tiles.Height() }

// PixelSize returns the track's tile extent in pixels at scale.
func (p *TrackProjector) PixelSize(scale float64) (float64, float64) {
	return float64(p.TileWidth()) * scale, float64(p.TileHeight()) * scale
}

// PointToPixel projects pt into canvas pixels for the given placement.
// The zero Placement positions the track's tile origin at (0,0) with zero scale.
func (p *TrackProjector) PointToPixel(pt types.GeoPoint, at Placement) (int, int) {
	fx, fy := tile.Fraction(pt.Lat, pt.Lon, p.zoom)
	origin := p.tiles.Origin()

	px := int(math.Floor((fx-float64(origin.X))*at.Scale)) + at.OffsetX
	py := int(math.Floor((fy-float64(origin.Y))*at.Scale)) + at.OffsetY

	return px, py
}

// Draw strokes every segment of the track onto s, one line per consecutive
// point pair. Segments with fewer than two points draw nothing.
func (p *TrackProjector) Draw(s Surface, offsetX, offsetY int, scale, thickness float64, c color.Color) Placement {
	at := Placement{OffsetX: offsetX, OffsetY: offsetY, Scale: scale}

	for _, seg := range p.track.Segments {
		if len(seg) < 2 {
			continue
		}

		x1, y1 := p.PointToPixel(seg[0], at)
		for _, pt := range seg[1:] {
			x2, y2 := p.PointToPixel(pt, at)
			s.DrawLine(x1, y1, x2, y2, thickness, c)
			x1, y1 = x2, y2
		}
	}

	return at
}
