package main

import (
	"errors"
	"image"
	"testing"

	"idcards/internal/crop"
	"idcards/internal/uploader"
)

func TestParseFlags(t *testing.T) {
	r, err := parseRect("10, 20,300,400")
	if err != nil || r != (crop.Rect{X: 10, Y: 20, Width: 300, Height: 400}) {
		t.Fatalf("unexpected rect %+v %v", r, err)
	}
	if _, err := parseRect("1,2,3"); err == nil {
		t.Fatalf("expected error for short rect")
	}

	c, err := parseCanvas("", image.Rect(0, 0, 640, 480))
	if err != nil || c != (crop.Canvas{Width: 640, Height: 480}) {
		t.Fatalf("expected image-sized canvas, got %+v %v", c, err)
	}
	if _, err := parseCanvas("0x10", image.Rectangle{}); err == nil {
		t.Fatalf("expected error for zero width")
	}
}

func TestDescribeDistinguishesTimeout(t *testing.T) {
	if describe(uploader.ErrUploadTimeout) == describe(errors.Join(uploader.ErrNetwork, errors.New("reset"))) {
		t.Fatalf("expected timeout and network failures to read differently")
	}
	got := describe(&uploader.ServerError{Status: 409, Message: "2 students share photoId", Code: "ambiguous_student"})
	if got != "2 students share photoId (ambiguous_student)" {
		t.Fatalf("unexpected message %q", got)
	}
}
