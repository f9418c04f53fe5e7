// Package stream runs slideshow sessions: it connects a bottom and a top panel, shows every
// playlist entry in turn with a synchronized handshake and repeats until stopped.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BeatGlow/netdisplay"
	"github.com/BeatGlow/netdisplay/frame"
)

// ErrSessionActive is returned by Run while another session is active.
var ErrSessionActive = errors.New("stream: a session is already active")

// emptyPassWait is the minimum pause after a pass over the playlist that showed nothing.
const emptyPassWait = 100 * time.Millisecond

// State of the controller.
type State int32

// States.
const (
	Idle State = iota
	Connecting
	Streaming
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Dialer opens the connection to one panel.
type Dialer func(ctx context.Context, config *netdisplay.WebSocketConfig) (netdisplay.Conn, error)

// Config is the session configuration.
type Config struct {
	// BottomURL is the address of the panel showing the bottom half (ESP32_1).
	BottomURL string

	// TopURL is the address of the panel showing the top half (ESP32_2).
	TopURL string

	// BottomName and TopName identify the panels in logs and errors.
	BottomName string
	TopName    string

	// Delay is the pause after each shown frame.
	Delay time.Duration

	// ChunkSize is the largest binary message.
	ChunkSize int

	// ConnectTimeout bounds opening each panel connection.
	ConnectTimeout time.Duration

	// ReadyTimeout bounds the wait for a panel's ready message, zero waits forever.
	ReadyTimeout time.Duration

	// Order of the pixel bytes on the wire.
	Order binary.ByteOrder

	// Dial opens panel connections, OpenWebSocket if nil.
	Dial Dialer

	// Reporter receives progress events, optional.
	Reporter Reporter
}

// DefaultConfig are the default configuration values.
var DefaultConfig = Config{
	BottomName:     "ESP32_1",
	TopName:        "ESP32_2",
	Delay:          50 * time.Millisecond,
	ChunkSize:      netdisplay.DefaultChunkSize,
	ConnectTimeout: 10 * time.Second,
	Order:          binary.LittleEndian,
	Dial:           netdisplay.OpenWebSocket,
}

// Controller owns at most one streaming session at a time.
type Controller struct {
	config Config
	log    *slog.Logger
	state  atomic.Int32

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New creates a controller. Zero config fields take their DefaultConfig value, except Delay
// and ReadyTimeout for which zero is meaningful. If log is nil, slog.Default() is used.
func New(config *Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := DefaultConfig
	if config != nil {
		c = *config
		if c.BottomName == "" {
			c.BottomName = DefaultConfig.BottomName
		}
		if c.TopName == "" {
			c.TopName = DefaultConfig.TopName
		}
		if c.ChunkSize == 0 {
			c.ChunkSize = DefaultConfig.ChunkSize
		}
		if c.ConnectTimeout == 0 {
			c.ConnectTimeout = DefaultConfig.ConnectTimeout
		}
		if c.Order == nil {
			c.Order = DefaultConfig.Order
		}
		if c.Dial == nil {
			c.Dial = DefaultConfig.Dial
		}
	}
	return &Controller{
		config: c,
		log:    log.With("component", "stream"),
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run streams a snapshot of playlist until ctx is cancelled or a panel fails. Cancellation is
// only observed between frames: a frame that is being sent always completes its handshake.
// Run returns nil when stopped, or the error that ended the session.
func (c *Controller) Run(ctx context.Context, playlist Playlist) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done, ok := c.begin(cancel)
	if !ok {
		return ErrSessionActive
	}
	err := c.session(ctx, playlist.Snapshot())
	c.finish(done, err)
	return err
}

// Start runs a session on its own goroutine. If a session is already active it does nothing
// and returns false.
func (c *Controller) Start(playlist Playlist) bool {
	ctx, cancel := context.WithCancel(context.Background())
	done, ok := c.begin(cancel)
	if !ok {
		cancel()
		return false
	}

	snapshot := playlist.Snapshot()
	go func() {
		defer cancel()
		c.finish(done, c.session(ctx, snapshot))
	}()
	return true
}

// Stop asks the active session to stop at its next checkpoint.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Wait blocks until the last started session ended and returns its outcome.
func (c *Controller) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) begin(cancel context.CancelFunc) (chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		c.log.Warn("session already active, ignoring start")
		return nil, false
	}
	c.active = true
	c.state.Store(int32(Connecting))
	c.cancel = cancel
	c.done = make(chan struct{})
	c.err = nil
	return c.done, true
}

func (c *Controller) finish(done chan struct{}, err error) {
	c.mu.Lock()
	c.active = false
	c.cancel = nil
	c.err = err
	c.state.Store(int32(Idle))
	c.mu.Unlock()

	close(done)
}

func (c *Controller) session(ctx context.Context, playlist Playlist) error {
	if ctx.Err() != nil {
		c.state.Store(int32(Stopping))
		c.report(Event{Stage: Stopped, Slot: -1})
		return nil
	}
	pair, err := c.connect(ctx)
	if err != nil {
		c.state.Store(int32(Stopping))
		if ctx.Err() != nil {
			c.log.Info("stopped while connecting")
			c.report(Event{Stage: Stopped, Slot: -1})
			return nil
		}
		c.log.Error("connect failed", "error", err)
		c.report(Event{Stage: Failed, Slot: -1, Err: err})
		return err
	}
	c.log.Info("connected", "bottom", pair.Bottom, "top", pair.Top, "entries", playlist.Len())
	c.report(Event{Stage: Connected, Slot: -1})

	c.state.Store(int32(Streaming))
	err = c.stream(ctx, pair, playlist)
	c.state.Store(int32(Stopping))

	if cerr := pair.Close(); cerr != nil {
		c.log.Debug("close failed", "error", cerr)
	}
	if err != nil {
		c.log.Error("streaming failed", "error", err)
		c.report(Event{Stage: Failed, Slot: -1, Err: err})
		return err
	}
	c.log.Info("streaming stopped")
	c.report(Event{Stage: Stopped, Slot: -1})
	return nil
}

func (c *Controller) connect(ctx context.Context) (*netdisplay.Pair, error) {
	endpoints := []struct {
		name, url string
		role      frame.Role
	}{
		{c.config.BottomName, c.config.BottomURL, frame.Bottom},
		{c.config.TopName, c.config.TopURL, frame.Top},
	}

	var (
		conns   = make([]netdisplay.Conn, len(endpoints))
		g, gctx = errgroup.WithContext(ctx)
	)
	for i, ep := range endpoints {
		g.Go(func() error {
			cn, err := c.config.Dial(gctx, &netdisplay.WebSocketConfig{
				URL:            ep.url,
				ConnectTimeout: c.config.ConnectTimeout,
			})
			if err != nil {
				return &netdisplay.ConnectError{Panel: ep.name, URL: ep.url, Err: err}
			}
			conns[i] = cn
			return nil
		})
	}
	err := g.Wait()

	panels := make([]*netdisplay.Panel, len(endpoints))
	for i, ep := range endpoints {
		if err != nil {
			break
		}
		panels[i], err = netdisplay.NewPanel(conns[i], &netdisplay.Config{
			Name:      ep.name,
			Role:      ep.role,
			ChunkSize: c.config.ChunkSize,
			Order:     c.config.Order,
			Logger:    c.log,
		})
	}
	if err != nil {
		for _, cn := range conns {
			if cn != nil {
				_ = cn.Close()
			}
		}
		return nil, err
	}

	pair := netdisplay.NewPair(panels[0], panels[1], c.log)
	pair.ReadyTimeout = c.config.ReadyTimeout
	return pair, nil
}

func (c *Controller) stream(ctx context.Context, pair *netdisplay.Pair, playlist Playlist) error {
	var (
		slot int
		ref  string
		opts = frame.Options{Scaler: frame.DefaultOptions.Scaler, Order: c.config.Order}
	)
	pair.OnPhase = func(phase netdisplay.Phase) {
		c.report(Event{Stage: stageOf(phase), Slot: slot, Ref: ref})
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		shown := 0
		for slot, ref = range playlist {
			if ctx.Err() != nil {
				return nil
			}
			if ref == "" {
				continue
			}

			top, bottom, err := frame.Prepare(ref, &opts)
			if err != nil {
				var loadErr *frame.LoadError
				if !errors.As(err, &loadErr) {
					return err
				}
				c.log.Warn("skipping image", "slot", slot, "ref", ref, "error", err)
				c.report(Event{Stage: Skipped, Slot: slot, Ref: ref, Err: err})
				continue
			}

			c.log.Info("sending image", "slot", slot, "ref", ref)
			if err = pair.Show(top, bottom); err != nil {
				return err
			}
			shown++
			c.report(Event{Stage: Shown, Slot: slot, Ref: ref})
			sleep(ctx, c.config.Delay)
		}
		if shown == 0 {
			sleep(ctx, max(c.config.Delay, emptyPassWait))
		}
	}
}

func (c *Controller) report(e Event) {
	if c.config.Reporter != nil {
		c.config.Reporter(e)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
