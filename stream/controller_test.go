package stream

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BeatGlow/netdisplay"
	"github.com/BeatGlow/netdisplay/frame"
	"github.com/BeatGlow/netdisplay/internal/paneltest"
)

const (
	bottomURL  = "ws://bottom.test:81"
	topURL     = "ws://top.test:81"
	frameBytes = frame.Width * frame.HalfHeight * 2
)

type testSetup struct {
	bottom, top *paneltest.Conn
	failDial    map[string]error

	mu     sync.Mutex
	events []Event
}

func newTestSetup() *testSetup {
	s := &testSetup{
		bottom:   paneltest.NewConn("bottom"),
		top:      paneltest.NewConn("top"),
		failDial: make(map[string]error),
	}
	s.bottom.ReadyAfter = frameBytes
	s.top.ReadyAfter = frameBytes
	return s
}

func (s *testSetup) controller(delay time.Duration) *Controller {
	return New(&Config{
		BottomURL: bottomURL,
		TopURL:    topURL,
		Delay:     delay,
		Dial: func(_ context.Context, config *netdisplay.WebSocketConfig) (netdisplay.Conn, error) {
			if err := s.failDial[config.URL]; err != nil {
				return nil, err
			}
			if config.URL == bottomURL {
				return s.bottom, nil
			}
			return s.top, nil
		},
		Reporter: func(e Event) {
			s.mu.Lock()
			s.events = append(s.events, e)
			s.mu.Unlock()
		},
	}, nil)
}

func (s *testSetup) stages() []Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	stages := make([]Stage, len(s.events))
	for i, e := range s.events {
		stages[i] = e.Stage
	}
	return stages
}

func testImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slide.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err = png.Encode(f, image.NewRGBA(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatal(err)
	}
	return path
}

func countEvents(c *paneltest.Conn, name string) (n int) {
	for _, e := range c.Events() {
		if e == name {
			n++
		}
	}
	return
}

func TestRunOneCycleThenStop(t *testing.T) {
	s := newTestSetup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.top.OnProceed = cancel

	playlist := NewPlaylist()
	playlist[0] = testImage(t)

	if err := s.controller(0).Run(ctx, playlist); err != nil {
		t.Fatal(err)
	}

	for _, c := range []*paneltest.Conn{s.bottom, s.top} {
		if v := countEvents(c, paneltest.EventProceed); v != 1 {
			t.Errorf("%s: expected exactly one frame cycle, got %d", c.Name, v)
		}
		if v := countEvents(c, paneltest.EventBinary); v != frameBytes/netdisplay.DefaultChunkSize {
			t.Errorf("%s: expected one frame of chunks, got %d", c.Name, v)
		}
		if !c.Closed() {
			t.Errorf("%s: expected connection to be closed", c.Name)
		}
	}

	want := []Stage{Connected, Sending, WaitingReady, Proceeding, Shown, Stopped}
	if v := s.stages(); !equalStages(v, want) {
		t.Errorf("expected stages %v, got %v", want, v)
	}
}

func TestRunEmptyPlaylist(t *testing.T) {
	s := newTestSetup()
	ctx, cancel := context.WithTimeout(context.Background(), 3*emptyPassWait)
	defer cancel()

	if err := s.controller(0).Run(ctx, NewPlaylist()); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*paneltest.Conn{s.bottom, s.top} {
		if v := len(c.Writes()); v != 0 {
			t.Errorf("%s: expected no transport calls, got %d writes", c.Name, v)
		}
		if !c.Closed() {
			t.Errorf("%s: expected connection to be closed", c.Name)
		}
	}
}

func TestRunConnectError(t *testing.T) {
	s := newTestSetup()
	dialErr := errors.New("connection refused")
	s.failDial[topURL] = dialErr

	c := s.controller(0)
	err := c.Run(context.Background(), Playlist{testImage(t)})

	var cerr *netdisplay.ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
	if cerr.Panel != "ESP32_2" || cerr.URL != topURL || !errors.Is(err, dialErr) {
		t.Errorf("unexpected error %v", err)
	}
	if !s.bottom.Closed() {
		t.Error("bottom connection should be closed")
	}
	if v := len(s.bottom.Writes()); v != 0 {
		t.Errorf("expected no frame to be sent, got %d writes", v)
	}
	if v := c.State(); v != Idle {
		t.Errorf("expected idle state, got %s", v)
	}
	if v := s.stages(); !equalStages(v, []Stage{Failed}) {
		t.Errorf("expected a single failed event, got %v", v)
	}
}

func TestRunSendError(t *testing.T) {
	s := newTestSetup()
	s.bottom.FailWrite = 2

	err := s.controller(0).Run(context.Background(), Playlist{testImage(t)})

	var terr *netdisplay.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if terr.Panel != "ESP32_1" {
		t.Errorf("expected bottom panel to fail, got %s", terr.Panel)
	}
	if !s.top.Closed() || !s.bottom.Closed() {
		t.Error("both connections should be closed")
	}
	if countEvents(s.top, paneltest.EventProceed) != 0 {
		t.Error("top panel should never proceed")
	}
}

func TestRunSkipsUnloadableImages(t *testing.T) {
	s := newTestSetup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.bottom.OnProceed = cancel

	missing := filepath.Join(t.TempDir(), "missing.png")
	playlist := Playlist{missing, "", testImage(t)}

	if err := s.controller(0).Run(ctx, playlist); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var skipped []Event
	for _, e := range s.events {
		if e.Stage == Skipped {
			skipped = append(skipped, e)
		}
	}
	if len(skipped) != 1 || skipped[0].Slot != 0 || skipped[0].Ref != missing {
		t.Fatalf("expected slot 0 to be skipped once, got %+v", skipped)
	}
	var loadErr *frame.LoadError
	if !errors.As(skipped[0].Err, &loadErr) {
		t.Errorf("expected LoadError, got %v", skipped[0].Err)
	}
	if v := countEvents(s.bottom, paneltest.EventProceed); v != 1 {
		t.Errorf("expected one frame, got %d", v)
	}
}

func TestStartSingleSession(t *testing.T) {
	s := newTestSetup()
	shown := make(chan struct{}, 1)
	s.top.OnProceed = func() {
		select {
		case shown <- struct{}{}:
		default:
		}
	}

	playlist := Playlist{testImage(t)}
	c := s.controller(time.Millisecond)

	if !c.Start(playlist) {
		t.Fatal("expected first Start to start a session")
	}
	// The session works on a snapshot.
	playlist[0] = ""

	if c.Start(playlist) {
		t.Fatal("expected second Start to be a no-op")
	}
	if err := c.Run(context.Background(), playlist); err != ErrSessionActive {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	select {
	case <-shown:
	case <-time.After(5 * time.Second):
		t.Fatal("no frame shown")
	}
	if v := c.State(); v != Streaming {
		t.Errorf("expected streaming state, got %s", v)
	}

	c.Stop()
	if err := c.Wait(); err != nil {
		t.Fatal(err)
	}
	if v := c.State(); v != Idle {
		t.Errorf("expected idle state, got %s", v)
	}
	if !s.bottom.Closed() || !s.top.Closed() {
		t.Error("both connections should be closed")
	}

	// A new session may start once the previous one ended.
	s.failDial[bottomURL] = errors.New("gone")
	if !c.Start(playlist) {
		t.Fatal("expected Start after Stop to start a session")
	}
	var cerr *netdisplay.ConnectError
	if err := c.Wait(); !errors.As(err, &cerr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
}

func TestRunCancelledBeforeConnect(t *testing.T) {
	s := newTestSetup()
	c := s.controller(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx, Playlist{testImage(t)}); err != nil {
		t.Fatalf("expected a clean stop, got %v", err)
	}
	if v := len(s.bottom.Events()) + len(s.top.Events()); v != 0 {
		t.Errorf("expected no connection activity, got %d events", v)
	}
	if v := s.stages(); !equalStages(v, []Stage{Stopped}) {
		t.Errorf("expected a single stopped event, got %v", v)
	}
}

func TestStopWhileConnecting(t *testing.T) {
	var (
		calls   atomic.Int32
		dialing = make(chan struct{}, 2)
	)
	c := New(&Config{
		BottomURL: bottomURL,
		TopURL:    topURL,
		Dial: func(ctx context.Context, _ *netdisplay.WebSocketConfig) (netdisplay.Conn, error) {
			// The first session fails right away, the next one hangs until stopped.
			if calls.Add(1) <= 2 {
				return nil, errors.New("connection refused")
			}
			dialing <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}, nil)

	playlist := Playlist{"slide.png"}
	if !c.Start(playlist) {
		t.Fatal("expected Start to start a session")
	}
	for !c.Start(playlist) {
		runtime.Gosched()
	}
	if v := c.State(); v != Connecting {
		t.Fatalf("expected connecting state, got %s", v)
	}

	select {
	case <-dialing:
	case <-time.After(5 * time.Second):
		t.Fatal("no dial")
	}
	if v := c.State(); v != Connecting {
		t.Fatalf("expected connecting state while dialing, got %s", v)
	}

	c.Stop()
	if err := c.Wait(); err != nil {
		t.Fatalf("expected a clean stop, got %v", err)
	}
	if v := c.State(); v != Idle {
		t.Errorf("expected idle state, got %s", v)
	}
}

func TestWaitWithoutSession(t *testing.T) {
	c := New(nil, nil)
	if err := c.Wait(); err != nil {
		t.Fatal(err)
	}
	c.Stop()
	if v := c.State(); v != Idle {
		t.Errorf("expected idle state, got %s", v)
	}
}

func equalStages(a, b []Stage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
