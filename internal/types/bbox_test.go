package types

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxFromBound(t *testing.T) {
	b := BoundingBoxFromBound(orb.Bound{Min: orb.Point{9.6, 52.3}, Max: orb.Point{9.9, 52.45}})
	assert.Equal(t, BoundingBox{MinLon: 9.6, MinLat: 52.3, MaxLon: 9.9, MaxLat: 52.45}, b)
}

func TestBoundingBoxUnion(t *testing.T) {
	hanover := BoundingBox{MinLon: 9.6, MinLat: 52.3, MaxLon: 9.9, MaxLat: 52.45}
	vienna := BoundingBox{MinLon: 16.2, MinLat: 48.1, MaxLon: 16.5, MaxLat: 48.3}

	assert.Equal(t, BoundingBox{MinLon: 9.6, MinLat: 48.1, MaxLon: 16.5, MaxLat: 52.45}, hanover.Union(vienna))
	assert.Equal(t, hanover.Union(vienna), vienna.Union(hanover))

	assert.Equal(t, hanover, BoundingBox{}.Union(hanover))
	assert.Equal(t, hanover, hanover.Union(BoundingBox{}))
	assert.True(t, BoundingBox{}.Union(BoundingBox{}).IsZero())
}
