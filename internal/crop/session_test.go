package crop

import (
	"errors"
	"testing"
)

type fakeStream struct{ stopped int }

func (f *fakeStream) Stop() { f.stopped++ }

func openWith(st Stream) func() (Stream, error) {
	return func() (Stream, error) { return st, nil }
}

func TestSessionWithoutLiveCapture(t *testing.T) {
	s := NewSession(StaticCapabilities(false), Canvas{Width: 400, Height: 300})
	if err := s.OpenStream(openWith(&fakeStream{})); !errors.Is(err, ErrLiveCaptureUnsupported) {
		t.Fatalf("expected ErrLiveCaptureUnsupported, got %v", err)
	}
	if _, err := s.Capture(SaveMaxEdge); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestSelectStudentReleasesStream(t *testing.T) {
	s := NewSession(StaticCapabilities(true), Canvas{Width: 400, Height: 300})
	st := &fakeStream{}
	if err := s.OpenStream(openWith(st)); err != nil {
		t.Fatalf("open stream: %v", err)
	}
	s.PointerDown(Point{200, 150})
	s.SelectStudent()
	if st.stopped != 1 || s.Streaming() {
		t.Fatalf("expected stream stopped once, got %d", st.stopped)
	}
	if s.PointerMove(Point{0, 0}) != Reset(s.Canvas()) {
		t.Fatalf("expected drag discarded on student change")
	}
}

func TestCaptureStopsStream(t *testing.T) {
	s := NewSession(StaticCapabilities(true), Canvas{Width: 400, Height: 300})
	st := &fakeStream{}
	_ = s.OpenStream(openWith(st))
	s.Load(quadrants(800, 600))

	out, err := s.Capture(SaveMaxEdge)
	if err != nil || len(out) == 0 {
		t.Fatalf("capture: %v", err)
	}
	if st.stopped != 1 {
		t.Fatalf("expected stream stopped after capture, got %d", st.stopped)
	}
	s.Close()
	s.Close()
	if st.stopped != 1 {
		t.Fatalf("expected no double stop, got %d", st.stopped)
	}
}

func TestSnapshotAndReopenReplaceStream(t *testing.T) {
	s := NewSession(StaticCapabilities(true), Canvas{Width: 400, Height: 300})
	first, second := &fakeStream{}, &fakeStream{}
	_ = s.OpenStream(openWith(first))
	_ = s.OpenStream(openWith(second))
	if first.stopped != 1 {
		t.Fatalf("expected first stream stopped when replaced")
	}
	if err := s.Snapshot(quadrants(80, 60)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if second.stopped != 1 || s.Streaming() {
		t.Fatalf("expected snapshot to release the stream")
	}
}

func TestSelectClampsToCanvas(t *testing.T) {
	s := NewSession(nil, Canvas{Width: 400, Height: 300})
	s.Select(Rect{X: 380, Y: -10, Width: 10, Height: 500})
	if got := s.Rect(); got != (Rect{X: 350, Y: 0, Width: 50, Height: 300}) {
		t.Fatalf("unexpected selection %+v", got)
	}
}
