package crop

import "math"

const (
	// MinSize is the smallest crop edge, in canvas pixels.
	MinSize = 50.0
	// HandleRadius is how close to a corner a pointer must land to resize.
	HandleRadius = 12.0
	// defaultFraction sizes the Reset square relative to the shorter canvas edge.
	defaultFraction = 0.6
)

// Point is a pointer position in canvas pixels.
type Point struct {
	X, Y float64
}

// Canvas is the displayed size of the image being cropped.
type Canvas struct {
	Width, Height float64
}

// Rect is the crop selection in canvas pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Full covers the whole canvas.
func (c Canvas) Full() Rect {
	return Rect{Width: c.Width, Height: c.Height}
}

func (r Rect) right() float64  { return r.X + r.Width }
func (r Rect) bottom() float64 { return r.Y + r.Height }

func (r Rect) contains(p Point) bool {
	return p.X >= r.X && p.X <= r.right() && p.Y >= r.Y && p.Y <= r.bottom()
}

// minEdge is MinSize, or the canvas edge when the canvas is smaller than that.
func minEdge(extent float64) float64 {
	return math.Min(MinSize, math.Max(extent, 0))
}

func clampf(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// Clamp keeps r inside c and at least MinSize on each axis.
func Clamp(r Rect, c Canvas) Rect {
	w := clampf(r.Width, minEdge(c.Width), math.Max(c.Width, 0))
	h := clampf(r.Height, minEdge(c.Height), math.Max(c.Height, 0))
	return Rect{
		X:      clampf(r.X, 0, c.Width-w),
		Y:      clampf(r.Y, 0, c.Height-h),
		Width:  w,
		Height: h,
	}
}

// Reset returns the default selection for c: a centred square whose edge is
// 60% of the shorter canvas side.
func Reset(c Canvas) Rect {
	side := math.Min(c.Width, c.Height) * defaultFraction
	return Clamp(Rect{
		X:      (c.Width - side) / 2,
		Y:      (c.Height - side) / 2,
		Width:  side,
		Height: side,
	}, c)
}

type handle int

const (
	handleMove handle = iota
	handleNW
	handleNE
	handleSW
	handleSE
)

// Drag is the state of one pointer interaction. It is created by BeginDrag and
// dropped when the pointer is released.
type Drag struct {
	canvas Canvas
	start  Rect
	mode   handle
	// offset from the pointer to the anchor (top-left for moves, the grabbed corner for resizes)
	offset Point
}

// BeginDrag classifies p against r. Corners take precedence over the interior.
// It reports false when p misses the selection entirely.
func BeginDrag(r Rect, c Canvas, p Point) (*Drag, bool) {
	r = Clamp(r, c)
	corners := []struct {
		h  handle
		at Point
	}{
		{handleNW, Point{r.X, r.Y}},
		{handleNE, Point{r.right(), r.Y}},
		{handleSW, Point{r.X, r.bottom()}},
		{handleSE, Point{r.right(), r.bottom()}},
	}
	for _, k := range corners {
		if math.Hypot(p.X-k.at.X, p.Y-k.at.Y) <= HandleRadius {
			return &Drag{canvas: c, start: r, mode: k.h, offset: Point{k.at.X - p.X, k.at.Y - p.Y}}, true
		}
	}
	if r.contains(p) {
		return &Drag{canvas: c, start: r, mode: handleMove, offset: Point{r.X - p.X, r.Y - p.Y}}, true
	}
	return nil, false
}

// Move recomputes the selection for pointer position p. The result depends only
// on p and the state captured by BeginDrag.
func (d *Drag) Move(p Point) Rect {
	anchor := Point{p.X + d.offset.X, p.Y + d.offset.Y}
	if d.mode == handleMove {
		return Clamp(Rect{X: anchor.X, Y: anchor.Y, Width: d.start.Width, Height: d.start.Height}, d.canvas)
	}

	left, top, right, bottom := d.start.X, d.start.Y, d.start.right(), d.start.bottom()
	mw, mh := minEdge(d.canvas.Width), minEdge(d.canvas.Height)
	switch d.mode {
	case handleNW, handleSW:
		left = clampf(anchor.X, 0, right-mw)
	default:
		right = clampf(anchor.X, left+mw, d.canvas.Width)
	}
	switch d.mode {
	case handleNW, handleNE:
		top = clampf(anchor.Y, 0, bottom-mh)
	default:
		bottom = clampf(anchor.Y, top+mh, d.canvas.Height)
	}
	return Clamp(Rect{X: left, Y: top, Width: right - left, Height: bottom - top}, d.canvas)
}

// Resizing reports whether the drag grabbed a corner handle.
func (d *Drag) Resizing() bool { return d.mode != handleMove }
