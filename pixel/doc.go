// Package pixel implements the 16-bit color format and pixel buffers pushed to remote panels.
//
// The color model and image types are compatible with Go's native [color.Color] and
// [image.Image] / [draw.Image] interfaces, so any decoded image can be drawn into a buffer.
package pixel
