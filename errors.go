package stomp

import "errors"

var (
	// ErrClosed occurs when using a client whose connection has closed.
	ErrClosed = errors.New("stomp: connection closed")

	// ErrConnectRefused occurs when the server answers a CONNECT with an ERROR frame.
	ErrConnectRefused = errors.New("stomp: connect refused")
)

// Signal is the element type for pure signaling channels.
type Signal struct{}
