package draw

import (
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	defaultFont     *truetype.Font
	defaultFontErr  error
	defaultFontOnce sync.Once
)

// DefaultFont returns the parsed Go Regular font.
func DefaultFont() (*truetype.Font, error) {
	defaultFontOnce.Do(func() {
		defaultFont, defaultFontErr = freetype.ParseFont(goregular.TTF)
	})
	return defaultFont, defaultFontErr
}

// TextSize measures s at size points (72 DPI).
func TextSize(f *truetype.Font, size float64, s string) image.Point {
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72})
	defer face.Close()
	m := face.Metrics()
	return image.Pt(font.MeasureString(face, s).Ceil(), (m.Ascent + m.Descent).Ceil())
}

// Text draws s with its top-left corner at pt.
func Text(dst Image, pt image.Point, f *truetype.Font, size float64, s string, c color.Color) error {
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)
	ctx.SetSrc(image.NewUniform(c))
	ctx.SetHinting(font.HintingFull)

	baseline := freetype.Pt(pt.X, pt.Y+int(ctx.PointToFixed(size)>>6))
	_, err := ctx.DrawString(s, baseline)
	return err
}

// CenteredText draws s centered inside rect.
func CenteredText(dst Image, rect image.Rectangle, f *truetype.Font, size float64, s string, c color.Color) error {
	dim := TextSize(f, size, s)
	pt := image.Pt(
		rect.Min.X+(rect.Dx()-dim.X)/2,
		rect.Min.Y+(rect.Dy()-dim.Y)/2,
	)
	return Text(dst, pt, f, size, s, c)
}
