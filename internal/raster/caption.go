package raster

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	captionFontOnce sync.Once
	captionFont     *truetype.Font
	captionFontErr  error
)

func loadCaptionFont() (*truetype.Font, error) {
	captionFontOnce.Do(func() {
		captionFont, captionFontErr = truetype.Parse(goregular.TTF)
	})
	return captionFont, captionFontErr
}

// DrawCaption writes text centred along the top edge of the canvas.
// The font size scales with the canvas so captions stay proportional.
func (c *Canvas) DrawCaption(text string, col color.Color) error {
	if text == "" {
		return nil
	}

	font, err := loadCaptionFont()
	if err != nil {
		return fmt.Errorf("failed to load caption font: %w", err)
	}

	size := float64(c.size) / 40.0
	c.dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	c.dc.SetColor(col)
	c.dc.DrawStringAnchored(text, float64(c.size)/2, size*0.75, 0.5, 0.5)

	return nil
}
