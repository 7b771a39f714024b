// Package brokertest provides utilities for exercising a broker in tests.
package brokertest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stompd/stomp"
	"github.com/stompd/stomp/broker"
)

// Server embeds a broker.Server and adds client plumbing for tests.
//
// The zero value is usable; the first Connect starts the listener.
type Server struct {
	broker.Server

	// Clients holds every client returned by Connect, in order.
	Clients []*stomp.Client

	onceListen sync.Once
	listenErr  error
}

// Start starts the listener if it isn't running and returns any listen
// error.
func (s *Server) Start() error {
	s.onceListen.Do(func() {
		if s.Logger == nil {
			s.Logger = stomp.StdoutLogger
		}
		s.listenErr = s.ListenAndServe()
	})
	return s.listenErr
}

// Connect dials the server, starting it if necessary, and performs the
// CONNECT handshake.
func (s *Server) Connect(login, passcode string) (*stomp.Client, error) {
	if err := s.Start(); err != nil {
		return nil, err
	}
	client := &stomp.Client{
		Addr: s.Server.Addr,
	}
	if err := client.Connect(login, passcode); err != nil {
		return nil, err
	}
	s.Clients = append(s.Clients, client)
	return client, nil
}

// PipeClient connects a client over an in-memory pipe instead of the
// network.
func (s *Server) PipeClient(login, passcode string) (*stomp.Client, error) {
	client := &stomp.Client{
		Conn: s.Pipe(),
	}
	if err := client.Connect(login, passcode); err != nil {
		return nil, err
	}
	s.Clients = append(s.Clients, client)
	return client, nil
}

// Close shuts down every client and then the server.
func (s *Server) Close() {
	for _, client := range s.Clients {
		_ = client.Close()
	}
	_ = s.Shutdown()
}

// Receive returns the next frame from client or fails the test after
// timeout.
func Receive(t *testing.T, client *stomp.Client, timeout time.Duration) stomp.Frame {
	t.Helper()
	select {
	case frame, open := <-client.Receive:
		if !open {
			t.Fatalf("brokertest: connection closed while waiting for frame: %v", client.Err())
		}
		return frame
	case <-time.After(timeout):
		t.Fatalf("brokertest: no frame within %v", timeout)
	}
	return stomp.Frame{}
}

// NoFrame fails the test if client receives any frame within d.
func NoFrame(t *testing.T, client *stomp.Client, d time.Duration) {
	t.Helper()
	select {
	case frame, open := <-client.Receive:
		if open {
			t.Fatalf("brokertest: unexpected frame: %v", frame.Command)
		}
	case <-time.After(d):
	}
}

// Logins returns n distinct login names derived from prefix; handy when a
// test needs several users that must not collide with other tests.
func Logins(prefix string, n int) []string {
	logins := make([]string, n)
	for k := range logins {
		logins[k] = fmt.Sprintf("%v-%v", prefix, k)
	}
	return logins
}
