package tile

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/MeKo-Tech/facetgrid/internal/types"
)

func TestCoordsString(t *testing.T) {
	tests := []struct {
		coords   Coords
		expected string
	}{
		{Coords{Z: 13, X: 4297, Y: 2754}, "z13_x4297_y2754"},
		{Coords{Z: 0, X: 0, Y: 0}, "z0_x0_y0"},
		{Coords{Z: 17, X: 12345, Y: 67890}, "z17_x12345_y67890"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := tt.coords.String()
			if result != tt.expected {
				t.Errorf("String() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestAtKnownTiles(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		zoom     int
		want     Coords
	}{
		{"null island z0", 0.1, 0.1, 0, Coords{Z: 0, X: 0, Y: 0}},
		{"null island z1", 0.1, 0.1, 1, Coords{Z: 1, X: 1, Y: 0}},
		{"southwest z1", -10, -10, 1, Coords{Z: 1, X: 0, Y: 1}},
		{"null island z2", 0.1, 0.1, 2, Coords{Z: 2, X: 2, Y: 1}},
		{"hanover z10", 52.37, 9.73, 10, Coords{Z: 10, X: 539, Y: 336}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := At(tt.lat, tt.lon, tt.zoom)
			if got != tt.want {
				t.Errorf("At(%.4f, %.4f, %d) = %s, want %s", tt.lat, tt.lon, tt.zoom, got, tt.want)
			}
		})
	}
}

func TestFractionFloorMatchesAt(t *testing.T) {
	for lat := -84.5; lat < 85; lat += 7.3 {
		for lon := -179.5; lon < 180; lon += 11.9 {
			for z := 0; z <= MaxZoom; z++ {
				fx, fy := Fraction(lat, lon, z)
				c := At(lat, lon, z)
				if int(math.Floor(fx)) != c.X || int(math.Floor(fy)) != c.Y {
					t.Fatalf("floor(Fraction(%.2f, %.2f, %d)) = (%v, %v), At = %s", lat, lon, z, fx, fy, c)
				}
			}
		}
	}
}

func TestFractionConsistentWithMaptile(t *testing.T) {
	points := [][2]float64{
		{9.73, 52.37},    // Hanover
		{-122.42, 37.78}, // San Francisco
		{139.69, 35.69},  // Tokyo
		{-58.38, -34.60}, // Buenos Aires
	}

	const eps = 1e-6

	for _, p := range points {
		for z := 0; z <= MaxZoom; z++ {
			x, y := Fraction(p[1], p[0], z)
			want := maptile.Fraction(orb.Point{p[0], p[1]}, maptile.Zoom(z))
			if math.Abs(x-want[0]) > eps*math.Exp2(float64(z)) || math.Abs(y-want[1]) > eps*math.Exp2(float64(z)) {
				t.Fatalf("Fraction(%v, z%d) = (%.9f, %.9f), maptile = (%.9f, %.9f)", p, z, x, y, want[0], want[1])
			}
		}
	}
}

func TestAutoZoom(t *testing.T) {
	t.Run("single point never exceeds budget", func(t *testing.T) {
		b := types.BoundingBox{MinLat: 52.37, MaxLat: 52.37, MinLon: 9.73, MaxLon: 9.73}
		if got := AutoZoom(b, DefaultBudget); got != MaxZoom {
			t.Errorf("AutoZoom = %d, want %d", got, MaxZoom)
		}
	})

	t.Run("returns first zoom exceeding budget", func(t *testing.T) {
		b := types.BoundingBox{MinLat: 52.30, MaxLat: 52.45, MinLon: 9.60, MaxLon: 9.90}

		z := AutoZoom(b, DefaultBudget)
		if z == 0 || z == MaxZoom {
			t.Fatalf("unexpected zoom %d for a city-sized box", z)
		}

		over := RangeFromBounds(b, z)
		if max(over.Width(), over.Height())-1 <= DefaultBudget {
			t.Errorf("span at returned zoom %d should exceed budget: %s", z, over)
		}
		fits := RangeFromBounds(b, z-1)
		if max(fits.Width(), fits.Height())-1 > DefaultBudget {
			t.Errorf("span at zoom %d should fit budget: %s", z-1, fits)
		}
	})

	t.Run("whole world exceeds at low zoom", func(t *testing.T) {
		b := types.BoundingBox{MinLat: -80, MaxLat: 80, MinLon: -179, MaxLon: 179}
		// z1 spans exactly one tile in both axes, which does not exceed a budget of 1
		if got := AutoZoom(b, 1); got != 2 {
			t.Errorf("AutoZoom = %d, want 2", got)
		}
	})
}

func TestAutoZoomMonotonic(t *testing.T) {
	centerLat, centerLon := 48.2, 16.37

	prev := MaxZoom + 1
	for extent := 0.0005; extent < 60; extent *= 1.7 {
		b := types.BoundingBox{
			MinLat: centerLat - extent/2,
			MaxLat: centerLat + extent/2,
			MinLon: centerLon - extent,
			MaxLon: centerLon + extent,
		}
		z := AutoZoom(b, DefaultBudget)
		if z > prev {
			t.Fatalf("AutoZoom increased from %d to %d when extent grew to %.4f", prev, z, extent)
		}
		prev = z
	}
}

func TestRangeFromBounds(t *testing.T) {
	b := types.BoundingBox{MinLat: -60, MaxLat: 60, MinLon: -170, MaxLon: 170}
	r := RangeFromBounds(b, 1)

	want := Range{Z: 1, MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	if r != want {
		t.Fatalf("RangeFromBounds = %+v, want %+v", r, want)
	}
	if r.Width() != 2 || r.Height() != 2 || r.Count() != 4 {
		t.Errorf("unexpected dimensions: %dx%d (%d)", r.Width(), r.Height(), r.Count())
	}
	if r.Origin() != (Coords{Z: 1}) {
		t.Errorf("Origin() = %s", r.Origin())
	}
}

func TestRangeBoundsCoversInput(t *testing.T) {
	b := types.BoundingBox{MinLat: 52.30, MaxLat: 52.45, MinLon: 9.60, MaxLon: 9.90}
	r := RangeFromBounds(b, 11)
	covered := r.Bounds()

	if covered.MinLat > b.MinLat || covered.MaxLat < b.MaxLat ||
		covered.MinLon > b.MinLon || covered.MaxLon < b.MaxLon {
		t.Errorf("range %s bounds %s do not cover %s", r, covered, b)
	}
}

func TestRangeDegenerateBox(t *testing.T) {
	b := types.BoundingBox{MinLat: 1, MaxLat: 1, MinLon: 1, MaxLon: 1}
	for z := 0; z <= MaxZoom; z++ {
		r := RangeFromBounds(b, z)
		if r.Width() != 1 || r.Height() != 1 {
			t.Fatalf("z%d: expected 1x1 range, got %dx%d", z, r.Width(), r.Height())
		}
	}
}

func TestRangeBoundsWholeWorld(t *testing.T) {
	r := Range{Z: 1, MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	got := r.Bounds()

	const eps = 1e-6
	if math.Abs(got.MinLon+180) > eps || math.Abs(got.MaxLon-180) > eps {
		t.Errorf("longitudes = %.6f..%.6f, want -180..180", got.MinLon, got.MaxLon)
	}
	if math.Abs(got.MaxLat-85.051129) > eps || math.Abs(got.MinLat+85.051129) > eps {
		t.Errorf("latitudes = %.6f..%.6f, want ±85.051129", got.MinLat, got.MaxLat)
	}
}

func TestRangeBoundsSingleTile(t *testing.T) {
	r := Range{Z: 10, MinX: 539, MaxX: 539, MinY: 336, MaxY: 336}
	got := r.Bounds()

	if got.MinLon >= 9.73 || got.MaxLon <= 9.73 || got.MinLat >= 52.37 || got.MaxLat <= 52.37 {
		t.Errorf("tile %s bounds %s do not contain hanover", r.Origin(), got)
	}
	if w := got.MaxLon - got.MinLon; math.Abs(w-360.0/1024) > 1e-9 {
		t.Errorf("tile width = %.9f°, want %.9f°", w, 360.0/1024)
	}
}
