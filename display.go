// Package netdisplay drives remote pixel panels over websocket connections.
//
// Each [Panel] holds a 16-bit framebuffer that is pushed to the panel in chunks. A [Pair]
// keeps a top and a bottom panel in lock-step: both receive their half of a frame, both
// report ready, then both are told to proceed.
package netdisplay

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"time"

	"periph.io/x/conn/v3/display"

	"github.com/BeatGlow/netdisplay/conn"
	"github.com/BeatGlow/netdisplay/draw"
	"github.com/BeatGlow/netdisplay/frame"
	"github.com/BeatGlow/netdisplay/pixel"
)

var debug bool

func init() {
	debug = os.Getenv("NETDISPLAY_DEBUG") != ""
}

// Config is the panel configuration.
type Config struct {
	// Name identifies the panel in logs and errors, for example ESP32_1.
	Name string

	// Role is the part of each frame the panel shows.
	Role frame.Role

	// Width of the panel in pixels.
	Width int

	// Height of the panel in pixels.
	Height int

	// ChunkSize is the largest binary message, DefaultChunkSize if zero.
	ChunkSize int

	// Order of the pixel bytes on the wire, little-endian if nil.
	Order binary.ByteOrder

	// Logger for protocol diagnostics, slog.Default if nil.
	Logger *slog.Logger
}

// Panel is a remote display showing one half of each frame.
type Panel struct {
	c         Conn
	name      string
	role      frame.Role
	buf       *pixel.CRGB16Image
	chunkSize int
	log       *slog.Logger
}

// NewPanel binds a panel to an open connection. The panel owns c from here on.
func NewPanel(c Conn, config *Config) (*Panel, error) {
	if config == nil {
		config = new(Config)
	}
	width, height := config.Width, config.Height
	if width == 0 {
		width = frame.Width
	}
	if height == 0 {
		height = frame.HalfHeight
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("netdisplay: invalid panel size %dx%d", width, height)
	}
	if config.ChunkSize < 0 {
		return nil, ErrChunkSize
	}

	name := config.Name
	if name == "" {
		name = config.Role.String()
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	buf := pixel.NewCRGB16Image(width, height)
	if config.Order != nil {
		buf.Order = config.Order
	}

	return &Panel{
		c:         c,
		name:      name,
		role:      config.Role,
		buf:       buf,
		chunkSize: config.ChunkSize,
		log:       log.With("panel", name, "role", config.Role.String()),
	}, nil
}

func (p *Panel) String() string {
	bounds := p.Bounds()
	return fmt.Sprintf("%s %dx%d (%s) via %s", p.name, bounds.Dx(), bounds.Dy(), p.role, p.c)
}

// Name of the panel.
func (p *Panel) Name() string {
	return p.name
}

// Role of the panel.
func (p *Panel) Role() frame.Role {
	return p.role
}

// Halt closes the panel connection.
func (p *Panel) Halt() error {
	return p.c.Close()
}

// Close the panel connection.
func (p *Panel) Close() error {
	return p.Halt()
}

// ColorModel implements display.Drawer.
func (p *Panel) ColorModel() color.Model {
	return pixel.CRGB16Model
}

// Bounds implements display.Drawer.
func (p *Panel) Bounds() image.Rectangle {
	return p.buf.Bounds()
}

// Draw implements display.Drawer. It only updates the framebuffer, call Refresh to send it.
func (p *Panel) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	r := dstRect.Intersect(p.buf.Bounds())
	if r.Empty() {
		return ErrBounds
	}
	sp = sp.Add(r.Min.Sub(dstRect.Min))
	draw.Draw(p.buf, r, src, sp, draw.Src)
	return nil
}

// Load replaces the framebuffer with a prepared frame half.
func (p *Panel) Load(half frame.Half) error {
	if half.Role != p.role {
		return fmt.Errorf("netdisplay: %s shows the %s half, got %s", p.name, p.role, half.Role)
	}
	src := half.Buffer
	if !src.Bounds().Size().Eq(p.buf.Bounds().Size()) {
		return ErrBounds
	}
	if src.Order == p.buf.Order {
		copy(p.buf.Pix, src.Pix)
		return nil
	}
	r := src.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p.buf.SetRGB565(x-r.Min.X, y-r.Min.Y, src.RGB565At(x, y))
		}
	}
	return nil
}

// Refresh sends the framebuffer to the panel.
func (p *Panel) Refresh() error {
	if err := WriteChunked(p.c, p.buf.Pix, p.chunkSize); err != nil {
		return &TransportError{Panel: p.name, Op: "send", Err: err}
	}
	p.log.Debug("frame sent", "bytes", len(p.buf.Pix))
	return nil
}

// AwaitReady blocks until the panel reports ready. Other messages are ignored. A timeout of
// zero waits forever.
func (p *Panel) AwaitReady(timeout time.Duration) error {
	if timeout > 0 {
		if err := p.c.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return &TransportError{Panel: p.name, Op: "receive", Err: err}
		}
		defer func() { _ = p.c.SetReadDeadline(time.Time{}) }()
	}
	for {
		m, err := p.c.ReadMessage()
		if err != nil {
			return &TransportError{Panel: p.name, Op: "receive", Err: err}
		}
		if m == conn.Ready {
			p.log.Debug("ready")
			return nil
		}
		p.log.Debug("ignoring message while waiting for ready", "message", m)
	}
}

// Proceed tells the panel to show the frame it buffered.
func (p *Panel) Proceed() error {
	if err := p.c.WriteMessage(conn.Proceed); err != nil {
		return &TransportError{Panel: p.name, Op: "proceed", Err: err}
	}
	return nil
}

var _ display.Drawer = (*Panel)(nil)
