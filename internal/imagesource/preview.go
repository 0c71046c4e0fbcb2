package imagesource

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// Default preview bounds used by the paste widget and server-side thumbnails
const (
	DefaultPreviewWidth  = 300
	DefaultPreviewHeight = 150
)

// PreviewSize returns the preview dimensions for a width x height image.
// Images within the bound keep their size. Larger images are scaled to the
// maximum width first, then to the maximum height, preserving aspect ratio.
func PreviewSize(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}

	w, h := float64(width), float64(height)
	if maxWidth > 0 && w > float64(maxWidth) {
		h = h * float64(maxWidth) / w
		w = float64(maxWidth)
	}
	if maxHeight > 0 && h > float64(maxHeight) {
		w = w * float64(maxHeight) / h
		h = float64(maxHeight)
	}

	return clampPixel(w), clampPixel(h)
}

func clampPixel(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

// Thumbnail renders a PNG preview of the image within the given bounds
func Thumbnail(img *CapturedImage, maxWidth, maxHeight int) ([]byte, error) {
	raw, err := img.Bytes()
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := src.Bounds()
	w, h := PreviewSize(b.Dx(), b.Dy(), maxWidth, maxHeight)

	var out image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
