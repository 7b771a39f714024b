package broker

import (
	"bufio"
	"io"
	"sync"

	"github.com/eapache/queue"

	"github.com/stompd/stomp"
	"github.com/stompd/stomp/internal/metrics"
)

// sendQueue is an unbounded FIFO of outbound frames.
//
// Broadcasts push into the queue without blocking on slow consumers; a
// dedicated writer goroutine drains it.  After Close, pushes are dropped and
// Pop drains what remains before reporting closed.
type sendQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames *queue.Queue
	closed bool
}

func newSendQueue() *sendQueue {
	q := &sendQueue{
		frames: queue.New(),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *sendQueue) Push(f stomp.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.frames.Add(f)
	q.cond.Signal()
}

// Pop blocks until a frame is available or the queue is closed and drained.
func (q *sendQueue) Pop() (stomp.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.frames.Length() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.frames.Length() == 0 {
		return stomp.Frame{}, false
	}
	return q.frames.Remove().(stomp.Frame), true
}

// Close is idempotent.  Queued frames are still delivered to Pop.
func (q *sendQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// conn is the server side of one client connection: a reader goroutine feeds
// decoded frames through the engine while a writer goroutine drains the
// outbound queue onto the transport.
type conn struct {
	id       int
	rwc      io.ReadWriteCloser
	engine   *Engine
	outbound *sendQueue
	sched    scheduler
	log      stomp.Logger
}

// Send implements Handle.  The frame is queued; the writer goroutine owns
// the actual transport write.
func (c *conn) Send(f stomp.Frame) {
	c.outbound.Push(f)
}

// readLoop reads transport bytes into the decoder and schedules protocol
// work for every completed frame.  It ends on transport closure or read
// error, at which point the session is released and the writer told to
// flush and close.
func (c *conn) readLoop() {
	dec := &stomp.Decoder{}
	buf := make([]byte, 4096)
	for {
		n, err := c.rwc.Read(buf)
		if n > 0 {
			if decoded := dec.Decode(buf[:n]); len(decoded) > 0 {
				metrics.FramesDecoded.Add(float64(len(decoded)))
				c.sched.do(func() {
					for _, f := range decoded {
						c.engine.Process(f)
					}
					if c.engine.ShouldTerminate() {
						c.outbound.Close()
					}
				})
			}
		}
		if err != nil {
			break
		}
	}
	// Transport-level closure is the one cleanup contract owed to the core.
	c.sched.do(c.engine.Close)
	c.outbound.Close()
}

// writeLoop drains the outbound queue onto the transport and closes it once
// the queue is closed and flushed, or on the first write error.
func (c *conn) writeLoop() {
	w := bufio.NewWriter(c.rwc)
	for {
		f, ok := c.outbound.Pop()
		if !ok {
			break
		}
		if _, err := f.WriteTo(w); err != nil {
			break
		}
		if err := w.Flush(); err != nil {
			break
		}
		metrics.FramesSent.Inc()
	}
	_ = c.rwc.Close()
}
