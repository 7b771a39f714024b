package broker

import (
	"crypto/tls"
	"io"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/stompd/stomp"
	"github.com/stompd/stomp/internal/metrics"
)

// Mode selects how connection protocol work is scheduled.
type Mode string

const (
	// ModeThreadPerConn runs each connection's protocol work on its own
	// reader goroutine.
	ModeThreadPerConn Mode = "tpc"

	// ModeReactor runs protocol work on a fixed group of event loops sized
	// to GOMAXPROCS; connections are pinned round robin.
	ModeReactor Mode = "reactor"
)

// Server is a STOMP broker.
//
// Server should not be copied once started.  The zero value plus an Addr is
// ready for ListenAndServe.
type Server struct {
	// Addr specifies the TCP address for the server to listen on in the
	// form of "host:port".
	//
	// If empty then a random port is used with 127.0.0.1 and this field is
	// updated accordingly.
	Addr string

	// Mode selects the scheduling model; empty means ModeThreadPerConn.
	Mode Mode

	// TLSConfig specifies an optional TLS configuration.
	TLSConfig *tls.Config

	// Logger!=nil means connection lifecycle and protocol faults are logged
	// to the provided Logger.
	stomp.Logger

	// Users is the user directory.  Created on first use when nil.
	Users *UserStore

	// Registry is the connection and subscription registry.  Created on
	// first use when nil.
	Registry *Registry

	once         sync.Once
	shutdownOnce sync.Once
	shutdown     chan stomp.Signal
	loops        *loopGroup
	nextID       int64

	mu    sync.Mutex // guards conns
	conns map[int]*conn

	wg sync.WaitGroup
}

// init prepares shared state; guarded by srv.once.
func (srv *Server) init() {
	if srv.Logger == nil {
		srv.Logger = stomp.NilLogger
	}
	if srv.Users == nil {
		srv.Users = NewUserStore()
	}
	if srv.Registry == nil {
		srv.Registry = NewRegistry()
	}
	if srv.Mode == "" {
		srv.Mode = ModeThreadPerConn
	}
	if srv.Mode == ModeReactor {
		srv.loops = newLoopGroup(runtime.GOMAXPROCS(0))
	}
	srv.shutdown = make(chan stomp.Signal)
	srv.conns = map[int]*conn{}
}

// scheduler returns the scheduler for a new connection per the server mode.
func (srv *Server) scheduler() scheduler {
	if srv.Mode == ModeReactor {
		return srv.loops.assign()
	}
	return inline{}
}

// startConn mints a connection identity, registers the transport handle, and
// starts the reader and writer goroutines.  Both TCP and WebSocket
// connections join here.
func (srv *Server) startConn(rwc io.ReadWriteCloser) {
	srv.once.Do(srv.init)
	//
	id := int(atomic.AddInt64(&srv.nextID, 1))
	c := &conn{
		id:       id,
		rwc:      rwc,
		outbound: newSendQueue(),
		sched:    srv.scheduler(),
		log:      srv.Logger,
	}
	c.engine = NewEngine(id, srv.Registry, srv.Users, srv.Logger)
	//
	srv.Registry.AddConnection(id, c)
	srv.mu.Lock()
	srv.conns[id] = c
	srv.mu.Unlock()
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	srv.Logger.Infof("broker: connection %v opened", id)
	//
	srv.wg.Add(2)
	go func() {
		defer srv.wg.Done()
		c.writeLoop()
	}()
	go func() {
		defer srv.wg.Done()
		c.readLoop()
		srv.mu.Lock()
		delete(srv.conns, id)
		srv.mu.Unlock()
		metrics.ConnectionsActive.Dec()
		srv.Logger.Infof("broker: connection %v closed", id)
	}()
}

// Pipe connects an in-memory client to the server and returns the client end
// of the pipe.  It can be used to exercise the broker without a network.
func (srv *Server) Pipe() net.Conn {
	srv.once.Do(srv.init)
	client, server := net.Pipe()
	srv.startConn(server)
	return client
}

// ListenAndServe listens on the TCP network address Server.Addr and then
// calls Serve to accept incoming connections.
//
// If Server.Addr is blank then "127.0.0.1:" is used and Server.Addr is
// updated with the listener's address.
//
// Unlike ListenAndServe in standard library net/http this method is
// non-blocking and returns a nil error if the server is running or an error
// if it is not.
func (srv *Server) ListenAndServe() error {
	var listener net.Listener
	var addr string
	var err error
	//
	if addr = srv.Addr; addr == "" {
		addr = "127.0.0.1:"
	}
	//
	if srv.TLSConfig != nil {
		if listener, err = tls.Listen("tcp", addr, srv.TLSConfig); err != nil {
			return err
		}
	} else {
		if listener, err = net.Listen("tcp", addr); err != nil {
			return err
		}
	}
	//
	srv.Addr = listener.Addr().String()
	srv.Serve(listener)
	//
	return nil
}

// Serve starts the goroutines accepting and handling connections on l and
// then returns.
func (srv *Server) Serve(l net.Listener) {
	srv.once.Do(srv.init)
	//
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		for {
			netConn, err := l.Accept()
			if err != nil {
				select {
				case <-srv.shutdown:
					return
				default:
					srv.Logger.Infof("broker: accept error: %v", err)
					continue
				}
			}
			srv.startConn(netConn)
		}
	}()
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		<-srv.shutdown
		if err := l.Close(); err != nil {
			srv.Logger.Infof("broker: closing listener: %v", err)
		}
	}()
}

// Shutdown stops accepting connections, flushes and closes every open
// connection, and waits for all goroutines to finish.  Shutdown is
// idempotent.
func (srv *Server) Shutdown() error {
	srv.once.Do(srv.init)
	srv.shutdownOnce.Do(func() {
		close(srv.shutdown)
		//
		srv.mu.Lock()
		open := make([]*conn, 0, len(srv.conns))
		for _, c := range srv.conns {
			open = append(open, c)
		}
		srv.mu.Unlock()
		for _, c := range open {
			c.outbound.Close()
		}
		//
		srv.wg.Wait()
		if srv.loops != nil {
			srv.loops.stop()
		}
	})
	return nil
}
