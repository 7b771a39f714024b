package broker

import (
	"sync/atomic"

	"github.com/stompd/stomp"
)

// scheduler serializes one connection's protocol work.
type scheduler interface {
	do(fn func())
}

// inline runs protocol work directly on the calling goroutine; this is
// thread-per-connection scheduling since only the connection's reader calls
// it.
type inline struct{}

func (inline) do(fn func()) { fn() }

// eventLoop runs the protocol work of every connection assigned to it on a
// single goroutine.  Per-connection frame ordering holds because a
// connection is pinned to exactly one loop for its lifetime.
type eventLoop struct {
	tasks chan func()
	done  chan stomp.Signal
}

func newEventLoop() *eventLoop {
	l := &eventLoop{
		tasks: make(chan func(), 128),
		done:  make(chan stomp.Signal),
	}
	go l.run()
	return l
}

func (l *eventLoop) run() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.done:
			return
		}
	}
}

// do submits fn to the loop.  Submission blocks when the loop is saturated,
// applying backpressure to the submitting connection's reader.  Work
// submitted after stop is dropped.
func (l *eventLoop) do(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

func (l *eventLoop) stop() {
	close(l.done)
}

// loopGroup is a fixed set of event loops.  Connections are assigned round
// robin, bounding protocol-work concurrency to the group size regardless of
// connection count.
type loopGroup struct {
	loops []*eventLoop
	next  uint64
}

func newLoopGroup(n int) *loopGroup {
	if n < 1 {
		n = 1
	}
	g := &loopGroup{
		loops: make([]*eventLoop, n),
	}
	for k := range g.loops {
		g.loops[k] = newEventLoop()
	}
	return g
}

func (g *loopGroup) assign() *eventLoop {
	n := atomic.AddUint64(&g.next, 1)
	return g.loops[int(n)%len(g.loops)]
}

func (g *loopGroup) stop() {
	for _, l := range g.loops {
		l.stop()
	}
}
