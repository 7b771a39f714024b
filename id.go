package stomp

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"sync/atomic"
)

// SessionID generates and returns a session ID.
func SessionID() string {
	b := make([]byte, 64)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}

var messageID uint64

// MessageID returns a message ID unique within the process.
func MessageID() string {
	return "msg-" + strconv.FormatUint(atomic.AddUint64(&messageID, 1), 10)
}
