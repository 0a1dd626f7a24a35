package composite

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/skratchdot/open-golang/open"
)

const jpegQuality = 92

// opener surfaces a written file in the desktop viewer.
var opener = open.Start

// EncodePNG renders the grid if needed and writes it as PNG.
func (g *Grid) EncodePNG(w io.Writer) error {
	canvas, err := g.Render()
	if err != nil {
		return err
	}
	return canvas.EncodePNG(w)
}

// Base64 renders the grid if needed and returns it as a base64-encoded PNG.
func (g *Grid) Base64() (string, error) {
	var buf bytes.Buffer
	if err := g.EncodePNG(&buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Save renders the grid if needed and writes it to path. The encoder is picked
// from the extension: .png, .jpg/.jpeg or .gif. When view is set the file is
// opened with the system viewer afterwards.
func (g *Grid) Save(path string, view bool) error {
	canvas, err := g.Render()
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	switch ext {
	case ".png":
		err = png.Encode(f, canvas.Image())
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, canvas.Image(), &jpeg.Options{Quality: jpegQuality})
	case ".gif":
		err = gif.Encode(f, canvas.Image(), nil)
	}
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", ext, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	g.log().Info("image saved", "path", path)

	if view {
		if err := opener(path); err != nil {
			g.log().Warn("failed to open viewer", "path", path, "error", err)
		}
	}

	return nil
}
