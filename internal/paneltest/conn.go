// Package paneltest provides an in-memory panel connection for tests.
package paneltest

import (
	"errors"
	"sync"
	"time"

	"github.com/BeatGlow/netdisplay/conn"
)

// Errors returned by Conn.
var (
	ErrClosed   = errors.New("paneltest: connection closed")
	ErrTimeout  = errors.New("paneltest: read deadline exceeded")
	ErrInjected = errors.New("paneltest: injected write failure")
)

// Event names recorded by Conn.
const (
	EventBinary  = "binary"
	EventReady   = "recv ready"
	EventProceed = "proceed"
	EventUnknown = "recv unknown"
	EventClose   = "close"
)

// Conn behaves like a panel: it accepts binary frames and answers with a ready message once
// a full frame arrived.
type Conn struct {
	Name string

	// ReadyAfter queues a ready message once this many bytes were written, zero disables it.
	ReadyAfter int

	// Noise is queued before every automatic ready message.
	Noise []conn.Message

	// FailWrite fails the n-th binary write (1-based) when positive.
	FailWrite int

	// WriteHook is called before every binary write and may block.
	WriteHook func(n int)

	// OnProceed is called after a proceed message was accepted.
	OnProceed func()

	mu       sync.Mutex
	events   []string
	writes   [][]byte
	written  int
	count    int
	deadline time.Time
	closed   bool
	inbox    chan conn.Message
	done     chan struct{}
}

// NewConn returns an open connection.
func NewConn(name string) *Conn {
	return &Conn{
		Name:  name,
		inbox: make(chan conn.Message, 256),
		done:  make(chan struct{}),
	}
}

func (c *Conn) String() string {
	return "paneltest " + c.Name
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.events = append(c.events, EventClose)
	close(c.done)
	return nil
}

func (c *Conn) WriteBinary(p []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.count++
	n, hook := c.count, c.WriteHook
	c.mu.Unlock()

	if c.FailWrite > 0 && n == c.FailWrite {
		return ErrInjected
	}
	if hook != nil {
		hook(n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.events = append(c.events, EventBinary)
	c.writes = append(c.writes, append([]byte(nil), p...))
	c.written += len(p)
	if c.ReadyAfter > 0 && c.written >= c.ReadyAfter {
		c.written = 0
		for _, m := range c.Noise {
			c.inbox <- m
		}
		c.inbox <- conn.Ready
	}
	return nil
}

func (c *Conn) WriteMessage(m conn.Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.events = append(c.events, m.String())
	onProceed := c.OnProceed
	c.mu.Unlock()

	if m == conn.Proceed && onProceed != nil {
		onProceed()
	}
	return nil
}

func (c *Conn) ReadMessage() (conn.Message, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		t := time.NewTimer(time.Until(deadline))
		defer t.Stop()
		timeout = t.C
	}

	select {
	case m := <-c.inbox:
		c.mu.Lock()
		c.events = append(c.events, "recv "+m.String())
		c.mu.Unlock()
		return m, nil
	case <-c.done:
		return conn.Unknown, ErrClosed
	case <-timeout:
		return conn.Unknown, ErrTimeout
	}
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

// Deliver queues a message as if the panel sent it.
func (c *Conn) Deliver(m conn.Message) {
	c.inbox <- m
}

// Events returns what happened on the connection, in order.
func (c *Conn) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

// Writes returns copies of all binary messages.
func (c *Conn) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
