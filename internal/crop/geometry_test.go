package crop

import (
	"math/rand"
	"testing"
)

const eps = 1e-9

func assertInside(t *testing.T, r Rect, c Canvas) {
	t.Helper()
	if r.X < -eps || r.Y < -eps || r.X+r.Width > c.Width+eps || r.Y+r.Height > c.Height+eps {
		t.Fatalf("rect %+v escapes canvas %+v", r, c)
	}
	if r.Width < minEdge(c.Width)-eps || r.Height < minEdge(c.Height)-eps {
		t.Fatalf("rect %+v below minimum size", r)
	}
}

func TestRandomDragsStayInsideCanvas(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := Canvas{Width: 640, Height: 480}
	r := Reset(c)

	for i := 0; i < 2000; i++ {
		var start Point
		if i%3 == 0 {
			// grab a corner
			corners := []Point{{r.X, r.Y}, {r.X + r.Width, r.Y}, {r.X, r.Y + r.Height}, {r.X + r.Width, r.Y + r.Height}}
			start = corners[rng.Intn(4)]
		} else {
			start = Point{r.X + rng.Float64()*r.Width, r.Y + rng.Float64()*r.Height}
		}
		d, ok := BeginDrag(r, c, start)
		if !ok {
			t.Fatalf("expected drag to start at %+v on %+v", start, r)
		}
		for j := 0; j < 5; j++ {
			p := Point{rng.Float64()*1000 - 200, rng.Float64()*900 - 200}
			r = d.Move(p)
			assertInside(t, r, c)
		}
	}
}

func TestBeginDragMissesOutside(t *testing.T) {
	c := Canvas{Width: 300, Height: 300}
	r := Rect{X: 100, Y: 100, Width: 60, Height: 60}
	if _, ok := BeginDrag(r, c, Point{10, 10}); ok {
		t.Fatalf("expected miss outside selection")
	}
	d, ok := BeginDrag(r, c, Point{158, 159})
	if !ok || !d.Resizing() {
		t.Fatalf("expected corner handle hit")
	}
	d, ok = BeginDrag(r, c, Point{130, 130})
	if !ok || d.Resizing() {
		t.Fatalf("expected interior move")
	}
}

func TestMoveKeepsAnchorOffset(t *testing.T) {
	c := Canvas{Width: 500, Height: 500}
	r := Rect{X: 100, Y: 100, Width: 100, Height: 100}
	d, _ := BeginDrag(r, c, Point{150, 150})

	got := d.Move(Point{170, 140})
	want := Rect{X: 120, Y: 90, Width: 100, Height: 100}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	// the result depends only on the latest pointer position
	d.Move(Point{400, 400})
	if again := d.Move(Point{170, 140}); again != want {
		t.Fatalf("expected %+v after revisiting pointer, got %+v", want, again)
	}
}

func TestResizeFromCornerHonoursMinimum(t *testing.T) {
	c := Canvas{Width: 500, Height: 500}
	r := Rect{X: 100, Y: 100, Width: 100, Height: 100}
	d, _ := BeginDrag(r, c, Point{200, 200})

	got := d.Move(Point{250, 260})
	if got != (Rect{X: 100, Y: 100, Width: 150, Height: 160}) {
		t.Fatalf("unexpected grow result %+v", got)
	}
	got = d.Move(Point{0, 0})
	if got != (Rect{X: 100, Y: 100, Width: MinSize, Height: MinSize}) {
		t.Fatalf("expected shrink to stop at minimum, got %+v", got)
	}

	d, _ = BeginDrag(r, c, Point{100, 100})
	got = d.Move(Point{-50, 40})
	if got != (Rect{X: 0, Y: 40, Width: 200, Height: 160}) {
		t.Fatalf("expected north-west resize pinned to canvas, got %+v", got)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	c := Canvas{Width: 800, Height: 600}
	once := Reset(c)
	if twice := Reset(c); once != twice {
		t.Fatalf("expected %+v, got %+v", once, twice)
	}
	if once != (Rect{X: 220, Y: 120, Width: 360, Height: 360}) {
		t.Fatalf("unexpected default rect %+v", once)
	}

	s := NewSession(nil, c)
	s.PointerDown(Point{400, 300})
	s.PointerMove(Point{10, 10})
	s.Reset()
	first := s.Rect()
	s.Reset()
	if s.Rect() != first || first != once {
		t.Fatalf("expected session reset to match %+v, got %+v then %+v", once, first, s.Rect())
	}
}

func TestClampSmallCanvas(t *testing.T) {
	c := Canvas{Width: 30, Height: 200}
	got := Clamp(Rect{X: 10, Y: 190, Width: 5, Height: 5}, c)
	if got != (Rect{X: 0, Y: 150, Width: 30, Height: 50}) {
		t.Fatalf("unexpected clamp %+v", got)
	}
}
