package mbtiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"runtime"

	"github.com/disintegration/gift"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/facetgrid/internal/tile"
)

// DefaultTileSize is the pixel size of pyramid tiles.
const DefaultTileSize = 256

// PyramidMaxZoom returns the lowest zoom whose full extent (tileSize·2^z) covers
// an image of the given size without downscaling.
func PyramidMaxZoom(size, tileSize int) int {
	z := 0
	for tileSize<<z < size {
		z++
	}
	return z
}

// WritePyramid slices img into a tile pyramid and stores it at path.
// Zoom 0 holds the whole image in one tile; every further zoom doubles the
// resolution up to PyramidMaxZoom. MinZoom, MaxZoom, TileSize and Format of
// meta are filled in and the completed metadata is returned.
func WritePyramid(ctx context.Context, path string, img image.Image, tileSize int, meta Metadata) (Metadata, error) {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}

	b := img.Bounds()
	meta.Format = "png"
	meta.TileSize = tileSize
	meta.MinZoom = 0
	meta.MaxZoom = PyramidMaxZoom(max(b.Dx(), b.Dy()), tileSize)

	w, err := Create(path, meta)
	if err != nil {
		return Metadata{}, err
	}

	for z := meta.MinZoom; z <= meta.MaxZoom; z++ {
		if err := writeLevel(ctx, w, img, z, tileSize); err != nil {
			w.Close()
			return Metadata{}, fmt.Errorf("failed to write zoom %d: %w", z, err)
		}
	}

	if err := w.Close(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func writeLevel(ctx context.Context, w *Writer, img image.Image, z, tileSize int) error {
	side := tileSize << z
	n := 1 << z

	g := gift.New(gift.Resize(side, side, gift.LanczosResampling))
	level := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(level, img)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			x, y := x, y
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}

				rect := image.Rect(x*tileSize, y*tileSize, (x+1)*tileSize, (y+1)*tileSize)
				var buf bytes.Buffer
				if err := png.Encode(&buf, level.SubImage(rect)); err != nil {
					return fmt.Errorf("failed to encode tile: %w", err)
				}
				return w.Put(tile.Coords{Z: z, X: x, Y: y}, buf.Bytes())
			})
		}
	}

	return eg.Wait()
}
