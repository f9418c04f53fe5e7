// Package testcard renders a calibration frame for a panel pair.
//
// The card has a moving gradient, a border around the combined frame, a line along the seam
// between the two panels and a label in the middle of each half, so a mismatched or swapped
// panel is obvious at a glance.
package testcard

import (
	"image"
	"image/color"
	"strings"

	"github.com/BeatGlow/netdisplay/draw"
	"github.com/BeatGlow/netdisplay/frame"
)

var (
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black = color.RGBA{A: 0xff}
)

// New renders the card; offset shifts the gradient so consecutive cards animate.
func New(offset int) (*image.RGBA, error) {
	f, err := draw.DefaultFont()
	if err != nil {
		return nil, err
	}

	var (
		img  = image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
		r    = img.Bounds()
		seam = frame.HalfHeight
	)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x + y + offset),
				G: uint8(x - y + offset),
				B: uint8(x + y - offset),
				A: 0xff,
			})
		}
	}

	draw.Rectangle(img, r, white)
	draw.HorizontalLine(img, 0, seam-1, r.Dx(), white)
	draw.HorizontalLine(img, 0, seam, r.Dx(), white)
	draw.Line(img, r.Min, image.Pt(r.Max.X-1, r.Max.Y-1), white)
	draw.Line(img, image.Pt(r.Max.X-1, r.Min.Y), image.Pt(r.Min.X, r.Max.Y-1), white)

	for _, half := range []struct {
		role frame.Role
		rect image.Rectangle
	}{
		{frame.Top, image.Rect(0, 0, frame.Width, seam)},
		{frame.Bottom, image.Rect(0, seam, frame.Width, frame.Height)},
	} {
		label := half.rect.Inset(40)
		draw.Box(img, label, black)
		draw.Rectangle(img, label, white)
		if err = draw.CenteredText(img, label, f, 24, strings.ToUpper(half.role.String()), white); err != nil {
			return nil, err
		}
	}
	return img, nil
}
