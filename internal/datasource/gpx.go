package datasource

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/MeKo-Tech/facetgrid/internal/types"
)

// ErrParseFailure is returned when a recording cannot be decoded as GPX.
var ErrParseFailure = errors.New("gpx parse failure")

// ParseGPX decodes a GPX document into a single track.
// Every <trk> of the document contributes its <trkseg>s, in document order, as
// segments of the returned track. name is used when the document names no track.
func ParseGPX(name string, data []byte) (types.Track, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return types.Track{}, fmt.Errorf("%w: %s: %v", ErrParseFailure, name, err)
	}

	return trackFromGPX(name, doc), nil
}

func trackFromGPX(name string, doc *gpx.GPX) types.Track {
	track := types.Track{Name: name}

	for _, trk := range doc.Tracks {
		if track.Name == name && strings.TrimSpace(trk.Name) != "" {
			track.Name = strings.TrimSpace(trk.Name)
		}

		for _, seg := range trk.Segments {
			points := make(types.Segment, 0, len(seg.Points))
			for _, p := range seg.Points {
				points = append(points, types.GeoPoint{
					Lat:  p.Latitude,
					Lon:  p.Longitude,
					Time: p.Timestamp,
				})
			}
			track.Segments = append(track.Segments, points)
		}
	}

	return track
}

// TrackName derives a display name from a file path ("runs/2024-05-01.gpx" -> "2024-05-01").
func TrackName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
