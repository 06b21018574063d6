package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when the input bytes are not a decodable image.
// Callers treat this as non-fatal: the asset stays staged and the full-size
// preview is used instead.
var ErrDecode = errors.New("cannot decode image")

// Renderer produces downscaled JPEG previews.
type Renderer struct {
	maxDimension int
	quality      int
}

func New(maxDimension, quality int) *Renderer {
	return &Renderer{maxDimension: maxDimension, quality: quality}
}

// Render decodes data, scales it so the longer side equals the configured
// max dimension (never upscaling), and re-encodes it as JPEG at the
// configured quality.
func (r *Renderer) Render(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}

	targetW, targetH := fitWithin(width, height, r.maxDimension)
	if targetW != width || targetH != height {
		scaled := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin computes proportional target dimensions so the longer side
// equals maxDim, without upscaling past the original size.
func fitWithin(width, height, maxDim int) (int, int) {
	longer := width
	if height > width {
		longer = height
	}
	if longer <= maxDim {
		return width, height
	}

	scale := float64(maxDim) / float64(longer)
	targetW := int(float64(width) * scale)
	targetH := int(float64(height) * scale)
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}
	return targetW, targetH
}
