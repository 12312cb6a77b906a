package host

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// SaveScreenshot writes img as a PNG scaled up by an integer factor with
// nearest-neighbour sampling, so the Spectrum pixels stay sharp.
func SaveScreenshot(path string, img image.Image, scale int) error {
	if scale < 1 {
		scale = 1
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(out, out.Bounds(), img, b, draw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("host: create screenshot: %w", err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("host: encode screenshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("host: write screenshot %s: %w", path, err)
	}
	return nil
}
