package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
)

// Canvas is a square raster surface that tracks and grid lines are drawn onto.
// A Canvas is owned by a single render and is not safe for concurrent use.
type Canvas struct {
	dc   *gg.Context
	size int
}

// NewCanvas allocates a size×size canvas filled with bg.
func NewCanvas(size int, bg color.Color) (*Canvas, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid canvas size %d", size)
	}

	dc := gg.NewContext(size, size)
	dc.SetColor(bg)
	dc.Clear()

	return &Canvas{dc: dc, size: size}, nil
}

// Size returns the side length of the canvas in pixels.
func (c *Canvas) Size() int {
	return c.size
}

// DrawLine strokes a straight line between two pixel positions.
// Positions address pixel centres, so a 1px line covers exactly one pixel row or column.
func (c *Canvas) DrawLine(x1, y1, x2, y2 int, thickness float64, col color.Color) {
	c.dc.SetColor(col)
	c.dc.SetLineWidth(thickness)
	c.dc.SetLineCapRound()
	c.dc.DrawLine(float64(x1)+0.5, float64(y1)+0.5, float64(x2)+0.5, float64(y2)+0.5)
	c.dc.Stroke()
}

// Image returns the canvas pixels. The image aliases the canvas.
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := c.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
