package crop

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

// quadrants paints red, green, blue and white quarters.
func quadrants(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c color.NRGBA
			switch {
			case x < w/2 && y < h/2:
				c = color.NRGBA{255, 0, 0, 255}
			case y < h/2:
				c = color.NRGBA{0, 255, 0, 255}
			case x < w/2:
				c = color.NRGBA{0, 0, 255, 255}
			default:
				c = color.NRGBA{255, 255, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d > -40 && d < 40
}

func assertColor(t *testing.T, img image.Image, x, y int, want color.NRGBA) {
	t.Helper()
	got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	if !near(got.R, want.R) || !near(got.G, want.G) || !near(got.B, want.B) {
		t.Fatalf("pixel (%d,%d): expected about %v, got %v", x, y, want, got)
	}
}

func TestFullCanvasRoundTrip(t *testing.T) {
	src := quadrants(1600, 1200)
	display := Canvas{Width: 400, Height: 300}

	out, err := Rasterize(src, display.Full(), display, SaveMaxEdge, Quality)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Fatalf("expected 800x600, got %dx%d", b.Dx(), b.Dy())
	}
	assertColor(t, img, 200, 150, color.NRGBA{255, 0, 0, 255})
	assertColor(t, img, 600, 150, color.NRGBA{0, 255, 0, 255})
	assertColor(t, img, 200, 450, color.NRGBA{0, 0, 255, 255})
	assertColor(t, img, 600, 450, color.NRGBA{255, 255, 255, 255})
}

func TestRasterizeMapsEachAxis(t *testing.T) {
	src := quadrants(1000, 400)
	display := Canvas{Width: 500, Height: 400}

	// the bottom-right quarter of the display maps to x 500..1000, y 200..400
	out, err := Rasterize(src, Rect{X: 250, Y: 200, Width: 250, Height: 200}, display, 0, Quality)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	img, _ := jpeg.Decode(bytes.NewReader(out))
	if b := img.Bounds(); b.Dx() != 500 || b.Dy() != 200 {
		t.Fatalf("expected 500x200, got %dx%d", b.Dx(), b.Dy())
	}
	assertColor(t, img, 250, 100, color.NRGBA{255, 255, 255, 255})
}

func TestRasterizeNeverUpscales(t *testing.T) {
	src := quadrants(120, 80)
	display := Canvas{Width: 120, Height: 80}
	out, err := Rasterize(src, display.Full(), display, SaveMaxEdge, Quality)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil || cfg.Width != 120 || cfg.Height != 80 {
		t.Fatalf("expected 120x80, got %+v %v", cfg, err)
	}
}

func TestDecode(t *testing.T) {
	if _, err := Decode(strings.NewReader("not an image")); !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("expected ErrDecodeFailed, got %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, quadrants(64, 64)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	img, err := Decode(&buf)
	if err != nil || img.Bounds().Dx() != 64 {
		t.Fatalf("expected decoded png, got %v", err)
	}
}

func TestShrinkCapsDirectUploads(t *testing.T) {
	out, err := Shrink(quadrants(4000, 1000))
	if err != nil {
		t.Fatalf("shrink: %v", err)
	}
	cfg, _ := jpeg.DecodeConfig(bytes.NewReader(out))
	if cfg.Width != DirectMaxEdge || cfg.Height != 500 {
		t.Fatalf("expected %dx500, got %dx%d", DirectMaxEdge, cfg.Width, cfg.Height)
	}
}
