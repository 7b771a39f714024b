package broker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stompd/stomp"
	"github.com/stompd/stomp/frames"
)

func TestSendQueue_FIFO(t *testing.T) {
	chk := assert.New(t)
	q := newSendQueue()
	//
	q.Push(frames.Receipt("1"))
	q.Push(frames.Receipt("2"))
	q.Push(frames.Receipt("3"))
	//
	for _, want := range []string{"1", "2", "3"} {
		f, ok := q.Pop()
		chk.True(ok)
		chk.Equal(want, f.Headers.Get(stomp.HeaderReceiptID))
	}
}

func TestSendQueue_CloseDrainsThenReportsClosed(t *testing.T) {
	chk := assert.New(t)
	q := newSendQueue()
	//
	q.Push(frames.Receipt("1"))
	q.Close()
	q.Close() // idempotent
	//
	// Pushes after close are dropped; queued frames still drain.
	q.Push(frames.Receipt("2"))
	f, ok := q.Pop()
	chk.True(ok)
	chk.Equal("1", f.Headers.Get(stomp.HeaderReceiptID))
	//
	_, ok = q.Pop()
	chk.False(ok)
}

func TestSendQueue_PopBlocksUntilPush(t *testing.T) {
	chk := assert.New(t)
	q := newSendQueue()
	//
	got := make(chan stomp.Frame, 1)
	go func() {
		f, _ := q.Pop()
		got <- f
	}()
	//
	select {
	case <-got:
		t.Fatal("Pop returned before Push")
	case <-time.After(10 * time.Millisecond):
	}
	//
	q.Push(frames.Receipt("late"))
	select {
	case f := <-got:
		chk.Equal("late", f.Headers.Get(stomp.HeaderReceiptID))
	case <-time.After(time.Second):
		t.Fatal("Pop did not observe Push")
	}
}

func TestSendQueue_ConcurrentPushers(t *testing.T) {
	chk := assert.New(t)
	q := newSendQueue()
	//
	const Pushers, PerPusher = 8, 100
	var wg sync.WaitGroup
	wg.Add(Pushers)
	for g := 0; g < Pushers; g++ {
		go func() {
			defer wg.Done()
			for k := 0; k < PerPusher; k++ {
				q.Push(frames.Receipt("r"))
			}
		}()
	}
	go func() {
		wg.Wait()
		q.Close()
	}()
	//
	var n int
	for {
		if _, ok := q.Pop(); !ok {
			break
		}
		n++
	}
	chk.Equal(Pushers*PerPusher, n)
}

func TestEventLoop_SerializesWork(t *testing.T) {
	chk := assert.New(t)
	g := newLoopGroup(2)
	defer g.stop()
	//
	loop := g.assign()
	var order []int
	var wg sync.WaitGroup
	wg.Add(100)
	for k := 0; k < 100; k++ {
		k := k
		loop.do(func() {
			order = append(order, k)
			wg.Done()
		})
	}
	wg.Wait()
	//
	// Tasks submitted by one goroutine run in submission order; order is
	// touched only by the loop goroutine, no locking needed above.
	for k := range order {
		chk.Equal(k, order[k])
	}
}

func TestLoopGroup_AssignRoundRobin(t *testing.T) {
	chk := assert.New(t)
	g := newLoopGroup(3)
	defer g.stop()
	//
	a, b, c, d := g.assign(), g.assign(), g.assign(), g.assign()
	chk.NotSame(a, b)
	chk.NotSame(b, c)
	chk.Same(a, d)
}
