package crop

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// SaveMaxEdge caps the longer edge of a saved crop.
	SaveMaxEdge = 800
	// DirectMaxEdge caps images uploaded without cropping.
	DirectMaxEdge = 2000
	// Quality is the JPEG quality of every encoded crop.
	Quality = 85
)

var (
	ErrDecodeFailed   = errors.New("image could not be decoded")
	ErrEncodingFailed = errors.New("image encoding produced no data")
	ErrEmptySelection = errors.New("crop selection is empty")
)

// Decode reads a jpeg, png, gif or webp image and applies EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return img, nil
}

// SourceRect maps a canvas selection onto src's native pixel grid. Each axis
// is scaled independently by source/display.
func SourceRect(src image.Rectangle, sel Rect, display Canvas) image.Rectangle {
	if display.Width <= 0 || display.Height <= 0 {
		return image.Rectangle{}
	}
	sx := float64(src.Dx()) / display.Width
	sy := float64(src.Dy()) / display.Height
	out := image.Rect(
		src.Min.X+int(math.Round(sel.X*sx)),
		src.Min.Y+int(math.Round(sel.Y*sy)),
		src.Min.X+int(math.Round(sel.right()*sx)),
		src.Min.Y+int(math.Round(sel.bottom()*sy)),
	)
	return out.Intersect(src)
}

// Rasterize crops sel out of src, shrinks it so the longer edge is at most
// maxEdge and encodes it as JPEG. Images are never upscaled.
func Rasterize(src image.Image, sel Rect, display Canvas, maxEdge, quality int) ([]byte, error) {
	if src == nil {
		return nil, ErrDecodeFailed
	}
	region := SourceRect(src.Bounds(), Clamp(sel, display), display)
	if region.Empty() {
		return nil, ErrEmptySelection
	}
	img := imaging.Crop(src, region)
	if maxEdge > 0 {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}
	return Encode(img, quality)
}

// Encode writes img as JPEG. Zero output is ErrEncodingFailed.
func Encode(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = Quality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	if buf.Len() == 0 {
		return nil, ErrEncodingFailed
	}
	return buf.Bytes(), nil
}

// Shrink prepares an uncropped image for direct upload.
func Shrink(src image.Image) ([]byte, error) {
	if src == nil {
		return nil, ErrDecodeFailed
	}
	return Encode(imaging.Fit(src, DirectMaxEdge, DirectMaxEdge, imaging.Lanczos), Quality)
}
