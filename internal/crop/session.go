package crop

import (
	"errors"
	"image"
)

var (
	ErrLiveCaptureUnsupported = errors.New("live capture not supported on this device")
	ErrNoImage                = errors.New("no image loaded")
)

// Stream is an open live capture source. Stop releases the device.
type Stream interface {
	Stop()
}

// Capabilities describes what the capture device can do.
type Capabilities interface {
	SupportsLiveCapture() bool
}

// StaticCapabilities is a fixed answer, for devices known up front.
type StaticCapabilities bool

func (s StaticCapabilities) SupportsLiveCapture() bool { return bool(s) }

// Session is one crop interaction for one student. Drag and stream state never
// outlive it: changing student, closing, or a successful capture releases them.
type Session struct {
	live   bool
	canvas Canvas
	src    image.Image
	rect   Rect
	drag   *Drag
	stream Stream
}

// NewSession opens a crop session. caps is queried once, here.
func NewSession(caps Capabilities, canvas Canvas) *Session {
	return &Session{
		live:   caps != nil && caps.SupportsLiveCapture(),
		canvas: canvas,
		rect:   Reset(canvas),
	}
}

// LiveCapture reports whether OpenStream can succeed.
func (s *Session) LiveCapture() bool { return s.live }

// OpenStream starts a live capture source, replacing any open one.
func (s *Session) OpenStream(open func() (Stream, error)) error {
	if !s.live {
		return ErrLiveCaptureUnsupported
	}
	s.stopStream()
	st, err := open()
	if err != nil {
		return err
	}
	s.stream = st
	return nil
}

// Streaming reports whether a capture device is currently held.
func (s *Session) Streaming() bool { return s.stream != nil }

// Load sets the image to crop and resets the selection.
func (s *Session) Load(src image.Image) {
	s.src = src
	s.drag = nil
	s.rect = Reset(s.canvas)
}

// Snapshot loads a frame taken from the live stream and releases the stream.
func (s *Session) Snapshot(frame image.Image) error {
	if frame == nil {
		return ErrNoImage
	}
	s.Load(frame)
	s.stopStream()
	return nil
}

// Resize changes the display canvas, e.g. after a layout change.
func (s *Session) Resize(c Canvas) {
	s.canvas = c
	s.drag = nil
	s.rect = Clamp(s.rect, c)
}

func (s *Session) Rect() Rect     { return s.rect }
func (s *Session) Canvas() Canvas { return s.canvas }

// Select replaces the selection with r, clamped to the canvas.
func (s *Session) Select(r Rect) {
	s.drag = nil
	s.rect = Clamp(r, s.canvas)
}

// PointerDown starts a drag if p hits the selection.
func (s *Session) PointerDown(p Point) bool {
	d, ok := BeginDrag(s.rect, s.canvas, p)
	s.drag = d
	return ok
}

// PointerMove updates the selection while a drag is active.
func (s *Session) PointerMove(p Point) Rect {
	if s.drag != nil {
		s.rect = s.drag.Move(p)
	}
	return s.rect
}

// PointerUp ends the drag.
func (s *Session) PointerUp() { s.drag = nil }

// Reset restores the default selection.
func (s *Session) Reset() {
	s.drag = nil
	s.rect = Reset(s.canvas)
}

// Capture rasterizes the current selection for upload. The stream is released
// once a crop has been produced.
func (s *Session) Capture(maxEdge int) ([]byte, error) {
	if s.src == nil {
		return nil, ErrNoImage
	}
	out, err := Rasterize(s.src, s.rect, s.canvas, maxEdge, Quality)
	if err != nil {
		return nil, err
	}
	s.drag = nil
	s.stopStream()
	return out, nil
}

// SelectStudent starts over for a different student.
func (s *Session) SelectStudent() {
	s.stopStream()
	s.src = nil
	s.drag = nil
	s.rect = Reset(s.canvas)
}

// Close releases everything the session holds. It is safe to call twice.
func (s *Session) Close() {
	s.stopStream()
	s.src = nil
	s.drag = nil
}

func (s *Session) stopStream() {
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
}
