package pixel

import "image/color"

// CRGB16Model is the model for 16-bit 5-6-5 RGB colors.
var CRGB16Model color.Model = color.ModelFunc(crgb16Model)

// CRGB16 represents a 16-bit 5-6-5 RGB color.
type CRGB16 struct {
	// CRed, 5, CGreen, 6, CBlue, 5
	V uint16
}

// EncodeRGB565 packs an 8-bit per channel color into 5-6-5 bits. The low bits of every
// channel are truncated.
func EncodeRGB565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
}

func (c CRGB16) RGBA() (r, g, b, a uint32) {
	// Build a 5- or 6-bit value at the top of the low byte of each component.
	red := (c.V & 0xF800) >> 8
	grn := (c.V & 0x07E0) >> 3
	blu := (c.V & 0x001F) << 3
	// Duplicate the high bits in the low bits.
	red |= red >> 5
	grn |= grn >> 6
	blu |= blu >> 5
	// Duplicate the whole value in the high byte.
	red |= red << 8
	grn |= grn << 8
	blu |= blu << 8
	return uint32(red), uint32(grn), uint32(blu), 0xffff
}

func crgb16Model(c color.Color) color.Color {
	switch c := c.(type) {
	case CRGB16:
		return c
	case color.RGBA:
		return CRGB16{EncodeRGB565(c.R, c.G, c.B)}
	case color.NRGBA:
		if c.A == 0xff {
			return CRGB16{EncodeRGB565(c.R, c.G, c.B)}
		}
	}
	r, g, b, _ := c.RGBA()
	return CRGB16{EncodeRGB565(uint8(r>>8), uint8(g>>8), uint8(b>>8))}
}
