package types

import (
	"time"

	"github.com/paulmach/orb"
)

// GeoPoint is a single recorded position. Time is the zero value when the
// recording carried no timestamp for the point.
type GeoPoint struct {
	Time time.Time
	Lat  float64
	Lon  float64
}

// HasTime reports whether the point was recorded with a timestamp.
func (p GeoPoint) HasTime() bool {
	return !p.Time.IsZero()
}

// Segment is an ordered run of points recorded without interruption.
type Segment []GeoPoint

// Track is one recorded activity: an ordered list of segments.
// Tracks are produced by a data source and treated as read-only afterwards.
type Track struct {
	Name     string
	Segments []Segment
}

// TimeBounds is the first and last timestamp found in a track.
type TimeBounds struct {
	Start time.Time
	End   time.Time
}

// Duration returns the elapsed time between Start and End.
func (t TimeBounds) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// PointCount returns the total number of points over all segments.
func (t Track) PointCount() int {
	n := 0
	for _, seg := range t.Segments {
		n += len(seg)
	}
	return n
}

// Bounds returns the lat/lon bounding box of every point in the track.
// ok is false for a track without points.
func (t Track) Bounds() (BoundingBox, bool) {
	var (
		bound orb.Bound
		seen  bool
	)

	for _, seg := range t.Segments {
		for _, p := range seg {
			pt := orb.Point{p.Lon, p.Lat}
			if !seen {
				bound = orb.Bound{Min: pt, Max: pt}
				seen = true
				continue
			}
			bound = bound.Extend(pt)
		}
	}

	if !seen {
		return BoundingBox{}, false
	}
	return BoundingBoxFromBound(bound), true
}

// TimeBounds returns the earliest and latest timestamps in the track.
// Points without a timestamp are ignored; ok is false when none carry one.
func (t Track) TimeBounds() (TimeBounds, bool) {
	var (
		tb   TimeBounds
		seen bool
	)

	for _, seg := range t.Segments {
		for _, p := range seg {
			if !p.HasTime() {
				continue
			}
			if !seen || p.Time.Before(tb.Start) {
				tb.Start = p.Time
			}
			if !seen || p.Time.After(tb.End) {
				tb.End = p.Time
			}
			seen = true
		}
	}

	return tb, seen
}
