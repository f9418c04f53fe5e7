package netdisplay

import (
	"context"
	"log/slog"
	"time"

	"github.com/BeatGlow/netdisplay/conn"
)

// DefaultChunkSize is the largest binary message sent to a panel.
const DefaultChunkSize = 8 * 1024

// Conn is the connection interface for communicating with a panel.
type Conn interface {
	String() string

	// Close the connection.
	Close() error

	// WriteBinary sends one binary message.
	WriteBinary([]byte) error

	// WriteMessage sends a control message.
	WriteMessage(conn.Message) error

	// ReadMessage blocks for the next message.
	ReadMessage() (conn.Message, error)

	// SetReadDeadline bounds ReadMessage; the zero time disables the deadline.
	SetReadDeadline(time.Time) error
}

// WebSocketConfig describes a websocket panel endpoint.
type WebSocketConfig struct {
	// URL of the panel, for example ws://192.168.230.205:81.
	URL string

	// ConnectTimeout bounds the dial and handshake.
	ConnectTimeout time.Duration
}

// DefaultWebSocketConfig are the default configuration values.
var DefaultWebSocketConfig = WebSocketConfig{
	ConnectTimeout: 10 * time.Second,
}

// OpenWebSocket dials a panel.
func OpenWebSocket(ctx context.Context, config *WebSocketConfig) (Conn, error) {
	if config == nil {
		config = new(WebSocketConfig)
		*config = DefaultWebSocketConfig
	}
	timeout := config.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultWebSocketConfig.ConnectTimeout
	}
	ws, err := conn.DialWebSocket(ctx, config.URL, timeout)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// WriteChunked writes data to c as consecutive binary messages of at most chunkSize bytes.
// Chunks are written in order and each write completes before the next starts.
func WriteChunked(c Conn, data []byte, chunkSize int) (err error) {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	} else if chunkSize < 0 {
		return ErrChunkSize
	}

	if debug {
		slog.Debug("write chunked", "conn", c.String(), "bytes", len(data), "chunks", (len(data)+chunkSize-1)/chunkSize)
	}
	buffer := data
	for len(buffer) > 0 {
		n := min(len(buffer), chunkSize)
		if err = c.WriteBinary(buffer[:n]); err != nil {
			return
		}
		buffer = buffer[n:]
	}
	return
}

var _ Conn = (*conn.WebSocket)(nil)
