// Package frame loads slideshow images and turns them into the two pixel buffers shown by
// the top and bottom panel.
package frame

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"

	_ "golang.org/x/image/bmp" // register decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/BeatGlow/netdisplay/draw"
	"github.com/BeatGlow/netdisplay/pixel"
)

// Combined resolution of both panels: four 64 pixel wide modules, two 128 pixel high rows.
const (
	Width      = 4 * 64
	Height     = 2 * 128
	HalfHeight = Height / 2
)

// Role identifies which part of the frame a panel shows.
type Role uint8

// Roles.
const (
	Top Role = iota
	Bottom
)

func (r Role) String() string {
	switch r {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Half is one spatial half of a frame.
type Half struct {
	Role   Role
	Buffer *pixel.CRGB16Image
}

// LoadError is returned when an image reference cannot be read or decoded.
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("frame: unable to load image %s: %v", e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Options control how images are normalized.
type Options struct {
	// Scaler used when the source does not match the combined resolution.
	Scaler xdraw.Scaler

	// Order of the two bytes of each pixel on the wire.
	Order binary.ByteOrder
}

// DefaultOptions resize with bilinear interpolation and produce little-endian pixels.
var DefaultOptions = Options{
	Scaler: xdraw.BiLinear,
	Order:  binary.LittleEndian,
}

// Load reads and decodes the image at ref.
func Load(ref string) (image.Image, error) {
	f, err := os.Open(ref)
	if err != nil {
		return nil, &LoadError{Ref: ref, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &LoadError{Ref: ref, Err: err}
	}
	return img, nil
}

// Prepare loads ref and splits it into a top and bottom half.
func Prepare(ref string, opts *Options) (top, bottom Half, err error) {
	var img image.Image
	if img, err = Load(ref); err != nil {
		return
	}
	top, bottom = PrepareImage(img, opts)
	return
}

// PrepareImage resizes src to Width x Height and encodes rows [0, HalfHeight) as the top half
// and rows [HalfHeight, Height) as the bottom half.
func PrepareImage(src image.Image, opts *Options) (top, bottom Half) {
	if opts == nil {
		opts = &DefaultOptions
	}

	src = opaque(src)
	rgba := image.NewRGBA(image.Rect(0, 0, Width, Height))
	if b := src.Bounds(); b.Dx() == Width && b.Dy() == Height {
		draw.Draw(rgba, rgba.Rect, src, b.Min, draw.Src)
	} else {
		scaler := opts.Scaler
		if scaler == nil {
			scaler = DefaultOptions.Scaler
		}
		scaler.Scale(rgba, rgba.Rect, src, b, xdraw.Src, nil)
	}

	top = Half{Role: Top, Buffer: encode(rgba, 0, opts.Order)}
	bottom = Half{Role: Bottom, Buffer: encode(rgba, HalfHeight, opts.Order)}
	return
}

// opaque returns src with its alpha channel dropped, keeping the stored color of transparent
// pixels. Panels have no alpha.
func opaque(src image.Image) image.Image {
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		return src
	}
	if n, ok := src.(*image.NRGBA); ok {
		return &opaqueNRGBA{n}
	}
	return &opaqueImage{src}
}

type opaqueImage struct {
	image.Image
}

func (p *opaqueImage) ColorModel() color.Model {
	return color.RGBAModel
}

func (p *opaqueImage) At(x, y int) color.Color {
	c := color.NRGBAModel.Convert(p.Image.At(x, y)).(color.NRGBA)
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

type opaqueNRGBA struct {
	src *image.NRGBA
}

func (p *opaqueNRGBA) Bounds() image.Rectangle {
	return p.src.Rect
}

func (p *opaqueNRGBA) ColorModel() color.Model {
	return color.RGBAModel
}

func (p *opaqueNRGBA) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(p.src.Rect)) {
		return color.RGBA{}
	}
	i := p.src.PixOffset(x, y)
	s := p.src.Pix[i : i+3 : i+3]
	return color.RGBA{R: s[0], G: s[1], B: s[2], A: 0xff}
}

func encode(src *image.RGBA, y0 int, order binary.ByteOrder) *pixel.CRGB16Image {
	dst := pixel.NewCRGB16Image(Width, HalfHeight)
	if order != nil {
		dst.Order = order
	}
	for y := 0; y < HalfHeight; y++ {
		row := src.Pix[(y0+y)*src.Stride:]
		for x := 0; x < Width; x++ {
			p := row[x*4 : x*4+3]
			dst.SetRGB565(x, y, pixel.EncodeRGB565(p[0], p[1], p[2]))
		}
	}
	return dst
}
