package testcard

import (
	"image"
	"testing"

	"github.com/BeatGlow/netdisplay/frame"
)

func TestNew(t *testing.T) {
	img, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	if v := img.Bounds().Size(); !v.Eq(image.Pt(frame.Width, frame.Height)) {
		t.Fatalf("expected %dx%d, got %s", frame.Width, frame.Height, v)
	}
	for _, p := range []image.Point{{0, 0}, {frame.Width - 1, frame.Height - 1}, {17, frame.HalfHeight}} {
		if v := img.RGBAAt(p.X, p.Y); v != white {
			t.Errorf("%s: expected white, got %v", p, v)
		}
	}

	next, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(5, 10) == next.RGBAAt(5, 10) {
		t.Error("expected the gradient to move with the offset")
	}
}

func TestNewHalvesDiffer(t *testing.T) {
	img, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	top, bottom := frame.PrepareImage(img, nil)
	if string(top.Buffer.Bytes()) == string(bottom.Buffer.Bytes()) {
		t.Error("expected distinct halves")
	}
}
