// Package mbtiles stores a rendered facet grid as a tile pyramid in an MBTiles
// database so it can be browsed with any slippy-map viewer.
package mbtiles

import (
	"strconv"
	"strings"

	"github.com/MeKo-Tech/facetgrid/internal/types"
)

// worldBounds is reported for every pyramid: the whole image is mapped onto
// the full Web Mercator square so that zoom 0 shows the complete grid.
var worldBounds = [4]float64{-180, -85.051129, 180, 85.051129}

// Metadata contains MBTiles metadata fields for a pyramid.
type Metadata struct {
	Name        string // Human-readable tileset identifier
	Description string
	Format      string // Tile data type, always "png" for pyramids
	MinZoom     int
	MaxZoom     int
	TileSize    int
	GridSide    int // Rows (and columns) of the facet grid
	Tracks      int // Number of tracks drawn

	// Extent is the geographic area the drawn tracks cover. The pyramid itself
	// is not georeferenced, so this is informational only.
	Extent types.BoundingBox
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := map[string]string{
		"type":    "overlay",
		"bounds":  formatFloats(worldBounds[:]),
		"center":  "0,0," + strconv.Itoa(m.MinZoom),
		"minzoom": strconv.Itoa(m.MinZoom),
		"maxzoom": strconv.Itoa(m.MaxZoom),
	}

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Format != "" {
		result["format"] = m.Format
	}
	if m.TileSize > 0 {
		result["tilesize"] = strconv.Itoa(m.TileSize)
	}
	if m.GridSide > 0 {
		result["grid_side"] = strconv.Itoa(m.GridSide)
	}
	if m.Tracks > 0 {
		result["tracks"] = strconv.Itoa(m.Tracks)
	}
	if !m.Extent.IsZero() {
		e := m.Extent
		result["track_extent"] = formatFloats([]float64{e.MinLon, e.MinLat, e.MaxLon, e.MaxLat})
	}

	return result
}

// metadataFromMap is the inverse of ToMap. Unknown keys are ignored.
func metadataFromMap(values map[string]string) Metadata {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(values[key])
		return n
	}

	var extent types.BoundingBox
	if vs, ok := parseFloats(values["track_extent"], 4); ok {
		extent = types.BoundingBox{MinLon: vs[0], MinLat: vs[1], MaxLon: vs[2], MaxLat: vs[3]}
	}

	return Metadata{
		Extent:      extent,
		Name:        values["name"],
		Description: values["description"],
		Format:      values["format"],
		MinZoom:     atoi("minzoom"),
		MaxZoom:     atoi("maxzoom"),
		TileSize:    atoi("tilesize"),
		GridSide:    atoi("grid_side"),
		Tracks:      atoi("tracks"),
	}
}

func parseFloats(s string, n int) ([]float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, false
	}
	vs := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false
		}
		vs[i] = v
	}
	return vs, true
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return strings.Join(parts, ",")
}
