package netdisplay

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrBounds    = errors.New("netdisplay: out of display bounds")
	ErrChunkSize = errors.New("netdisplay: chunk size must be positive")
)

// TransportError is a send or receive failure on a panel channel. It is fatal to a session.
type TransportError struct {
	Panel string
	Op    string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("netdisplay: %s: %s failed: %v", e.Panel, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConnectError is a failure to open a panel channel.
type ConnectError struct {
	Panel string
	URL   string
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("netdisplay: %s: connect to %s failed: %v", e.Panel, e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
