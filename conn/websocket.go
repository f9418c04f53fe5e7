package conn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ErrInvalidMessage is returned when writing a message outside the protocol alphabet.
var ErrInvalidMessage = errors.New("conn: invalid control message")

const closeTimeout = time.Second

// WebSocket is a websocket client connection to a single panel.
//
// At most one goroutine may write and one goroutine may read at a time.
type WebSocket struct {
	ws  *websocket.Conn
	url string
}

// DialWebSocket connects to url, for example ws://192.168.1.10:81. A timeout of zero waits until
// ctx is done.
func DialWebSocket(ctx context.Context, url string, timeout time.Duration) (*WebSocket, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &WebSocket{ws: ws, url: url}, nil
}

// NewWebSocket wraps an established connection, for example one accepted by an upgrader.
func NewWebSocket(ws *websocket.Conn) *WebSocket {
	return &WebSocket{ws: ws, url: ws.RemoteAddr().String()}
}

func (c *WebSocket) String() string {
	return fmt.Sprintf("websocket %s", c.url)
}

// Close sends a close frame and closes the underlying connection.
func (c *WebSocket) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
	return c.ws.Close()
}

// WriteBinary sends p as one binary message.
func (c *WebSocket) WriteBinary(p []byte) error {
	return c.ws.WriteMessage(websocket.BinaryMessage, p)
}

// WriteMessage sends a control message as a text message.
func (c *WebSocket) WriteMessage(m Message) error {
	text := m.Text()
	if text == "" {
		return ErrInvalidMessage
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(text))
}

// ReadMessage blocks for the next message. Binary messages are reported as Unknown.
func (c *WebSocket) ReadMessage() (Message, error) {
	kind, p, err := c.ws.ReadMessage()
	if err != nil {
		return Unknown, err
	}
	if kind != websocket.TextMessage {
		return Unknown, nil
	}
	return ParseMessage(string(p)), nil
}

// SetReadDeadline sets the deadline for ReadMessage; the zero value disables it.
func (c *WebSocket) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}
