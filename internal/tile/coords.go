package tile

import (
	"fmt"
	"math"

	"github.com/paulmach/orb/maptile"

	"github.com/MeKo-Tech/facetgrid/internal/types"
)

const (
	// MaxZoom is the zoom AutoZoom falls back to when the budget is never exceeded.
	MaxZoom = 17

	// DefaultBudget is the tile span a track may occupy before a zoom is rejected.
	DefaultBudget = 6

	// autoZoomCeiling is the highest zoom AutoZoom probes (inclusive).
	autoZoomCeiling = 16
)

// Coords represents a tile coordinate in the Web Mercator tile system (z/x/y)
type Coords struct {
	Z int // Zoom level
	X int // X coordinate (column)
	Y int // Y coordinate (row)
}

// String returns the tile coordinate as a string in format "z{zoom}_x{x}_y{y}"
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Fraction returns the fractional tile position of lat/lon at the given zoom.
// The integer part is the tile index, the remainder is the position inside that tile.
//
// Latitudes at or next to ±90° make the Mercator term diverge; callers must not pass them.
func Fraction(latDeg, lonDeg float64, zoom int) (float64, float64) {
	latRad := latDeg * math.Pi / 180.0
	n := math.Exp2(float64(zoom))

	x := (lonDeg + 180.0) / 360.0 * n
	y := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n

	return x, y
}

// At returns the tile containing lat/lon at the given zoom.
func At(latDeg, lonDeg float64, zoom int) Coords {
	x, y := Fraction(latDeg, lonDeg, zoom)
	return Coords{
		Z: zoom,
		X: int(math.Floor(x)),
		Y: int(math.Floor(y)),
	}
}

// AutoZoom walks zoom levels 0..16 and returns the first one at which the tile span of
// the bounding box corners exceeds budget. The last zoom that still fits is therefore
// one less than the returned value; existing layouts depend on this boundary.
// Returns MaxZoom when no probed zoom exceeds the budget.
func AutoZoom(b types.BoundingBox, budget int) int {
	for z := 0; z <= autoZoomCeiling; z++ {
		lo := At(b.MinLat, b.MinLon, z)
		hi := At(b.MaxLat, b.MaxLon, z)

		span := max(absInt(hi.X-lo.X), absInt(hi.Y-lo.Y))
		if span > budget {
			return z
		}
	}
	return MaxZoom
}

// Range is an inclusive block of tiles at a single zoom level.
type Range struct {
	Z          int
	MinX, MaxX int
	MinY, MaxY int
}

// RangeFromBounds returns the tiles covering a geographic bounding box at zoom.
// Min/max are normalized because tile rows grow southwards while latitude grows northwards.
func RangeFromBounds(b types.BoundingBox, zoom int) Range {
	lo := At(b.MinLat, b.MinLon, zoom)
	hi := At(b.MaxLat, b.MaxLon, zoom)

	return Range{
		Z:    zoom,
		MinX: min(lo.X, hi.X),
		MaxX: max(lo.X, hi.X),
		MinY: min(lo.Y, hi.Y),
		MaxY: max(lo.Y, hi.Y),
	}
}

// Width returns the number of tile columns in the range (always >= 1).
func (r Range) Width() int {
	return r.MaxX - r.MinX + 1
}

// Height returns the number of tile rows in the range (always >= 1).
func (r Range) Height() int {
	return r.MaxY - r.MinY + 1
}

// Count returns the total number of tiles in this range
func (r Range) Count() int {
	return r.Width() * r.Height()
}

// Origin returns the top-left tile of the range.
func (r Range) Origin() Coords {
	return Coords{Z: r.Z, X: r.MinX, Y: r.MinY}
}

// Bounds returns the geographic area actually covered by the tiles of the range,
// which is always at least as large as the bounding box it was built from.
func (r Range) Bounds() types.BoundingBox {
	z := maptile.Zoom(r.Z)
	nw := maptile.New(uint32(r.MinX), uint32(r.MinY), z).Bound()
	se := maptile.New(uint32(r.MaxX), uint32(r.MaxY), z).Bound()

	return types.BoundingBoxFromBound(nw.Union(se))
}

func (r Range) String() string {
	return fmt.Sprintf("z%d x[%d..%d] y[%d..%d]", r.Z, r.MinX, r.MaxX, r.MinY, r.MaxY)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
