package netdisplay

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/display"

	"github.com/BeatGlow/netdisplay/frame"
)

// Phase of the per-frame handshake.
type Phase uint8

// Handshake phases.
const (
	Sending Phase = iota
	AwaitingReady
	Proceeding
)

func (p Phase) String() string {
	switch p {
	case Sending:
		return "sending"
	case AwaitingReady:
		return "awaiting ready"
	case Proceeding:
		return "proceeding"
	default:
		return "unknown"
	}
}

// Pair keeps a bottom and a top panel showing halves of the same frame.
//
// Show sends both halves concurrently, waits until both panels report ready and then tells
// both to proceed. A failure on either panel closes both, so a stalled sibling never keeps
// the caller waiting.
type Pair struct {
	Bottom *Panel
	Top    *Panel

	// ReadyTimeout bounds the wait for each panel's ready message, zero waits forever.
	ReadyTimeout time.Duration

	// OnPhase is called when a phase starts.
	OnPhase func(Phase)

	log       *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewPair creates a pair from two panels. If log is nil, slog.Default() is used.
func NewPair(bottom, top *Panel, log *slog.Logger) *Pair {
	if log == nil {
		log = slog.Default()
	}
	return &Pair{
		Bottom: bottom,
		Top:    top,
		log:    log.With("component", "pair"),
	}
}

// Show runs one full frame cycle. It is not interrupted by anything but a panel error.
func (p *Pair) Show(top, bottom frame.Half) error {
	if err := p.Top.Load(top); err != nil {
		return err
	}
	if err := p.Bottom.Load(bottom); err != nil {
		return err
	}
	return p.Sync()
}

// Draw draws a combined frame into the framebuffers, the upper rows into Top and the rest
// into Bottom. Call Sync to show it.
func (p *Pair) Draw(img image.Image) error {
	b := img.Bounds()
	for _, target := range []struct {
		drawer display.Drawer
		sp     image.Point
	}{
		{p.Top, b.Min},
		{p.Bottom, b.Min.Add(image.Pt(0, p.Top.Bounds().Dy()))},
	} {
		if err := target.drawer.Draw(target.drawer.Bounds(), img, target.sp); err != nil {
			return err
		}
	}
	return nil
}

// Sync sends the current framebuffer of both panels, waits until both report ready and then
// tells both to proceed. Use it after drawing into the panels directly.
func (p *Pair) Sync() error {
	p.enter(Sending)
	if err := p.each((*Panel).Refresh); err != nil {
		return err
	}

	p.enter(AwaitingReady)
	if err := p.each(func(panel *Panel) error {
		return panel.AwaitReady(p.ReadyTimeout)
	}); err != nil {
		return err
	}

	p.enter(Proceeding)
	return p.each((*Panel).Proceed)
}

// Close both panels.
func (p *Pair) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = errors.Join(p.Bottom.Close(), p.Top.Close())
	})
	return p.closeErr
}

func (p *Pair) enter(phase Phase) {
	p.log.Debug("phase", "phase", phase)
	if p.OnPhase != nil {
		p.OnPhase(phase)
	}
}

// each runs fn for both panels concurrently and returns the first failure. The first failure
// closes both panels to unblock the other one.
func (p *Pair) each(fn func(*Panel) error) error {
	var (
		g     errgroup.Group
		once  sync.Once
		cause error
	)
	for _, panel := range []*Panel{p.Bottom, p.Top} {
		g.Go(func() error {
			err := fn(panel)
			if err != nil {
				once.Do(func() {
					cause = err
					p.log.Warn("panel failed, closing pair", "panel", panel.Name(), "error", err)
					_ = p.Close()
				})
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return cause
	}
	return nil
}
