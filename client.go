package stomp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// Client is a STOMP client.
//
// Client should not be copied once connected.
type Client struct {
	// Addr specifies the TCP address for the server as "host:port".
	Addr string

	// Dialer specifies an optional Dialer configuration.
	Dialer *net.Dialer

	// TLSConfig specifies an optional TLS configuration.
	TLSConfig *tls.Config

	// Conn, when non-nil, is used as the transport instead of dialing Addr.
	Conn net.Conn

	// Receive delivers frames from the server after Connect succeeds.  The
	// channel is closed when the connection ends; inspect Err afterwards.
	Receive <-chan Frame

	receive chan Frame
	wg      sync.WaitGroup

	mu      sync.Mutex // guards writes to Conn, err and closed
	err     error
	closed  bool
	receipt int
}

// Connect dials the server if necessary, performs the CONNECT handshake, and
// starts the goroutine feeding Receive.
func (c *Client) Connect(login, passcode string) error {
	if c.Conn == nil {
		if err := c.dial(); err != nil {
			return err
		}
	}
	//
	connect := Frame{
		Command: string(CommandConnect),
		Headers: NewHeaders(HeaderLogin, login, HeaderPasscode, passcode),
	}
	if err := c.write(connect); err != nil {
		return err
	}
	//
	c.receive = make(chan Frame, 128)
	c.Receive = c.receive
	c.wg.Add(1)
	go c.reader()
	//
	frame, open := <-c.receive
	if !open {
		return fmt.Errorf("%w: %v", ErrConnectRefused, c.Err())
	}
	switch Command(frame.Command) {
	case CommandConnected:
		return nil
	case CommandError:
		_ = c.Close()
		return fmt.Errorf("%w: %v", ErrConnectRefused, frame.Headers.Get(HeaderMessage))
	default:
		_ = c.Close()
		return fmt.Errorf("%w: unexpected %v frame", ErrConnectRefused, frame.Command)
	}
}

// Subscribe sends a SUBSCRIBE frame for dest with the given subscription id.
func (c *Client) Subscribe(dest, id string) error {
	return c.write(Frame{
		Command: string(CommandSubscribe),
		Headers: NewHeaders(HeaderDestination, dest, HeaderID, id),
	})
}

// Unsubscribe sends an UNSUBSCRIBE frame for the given subscription id.
func (c *Client) Unsubscribe(id string) error {
	return c.write(Frame{
		Command: string(CommandUnsubscribe),
		Headers: NewHeaders(HeaderID, id),
	})
}

// Send sends body to dest.
func (c *Client) Send(dest string, body []byte) error {
	return c.write(Frame{
		Command: string(CommandSend),
		Headers: NewHeaders(HeaderDestination, dest),
		Body:    body,
	})
}

// SendFrame sends an arbitrary frame; useful for driving protocol edge cases.
func (c *Client) SendFrame(f Frame) error {
	return c.write(f)
}

// Disconnect performs an orderly disconnect: a DISCONNECT frame with a
// receipt header is sent and frames are consumed until the matching RECEIPT
// arrives or the connection closes.  The connection is then closed.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.receipt++
	receiptID := fmt.Sprintf("disconnect-%v", c.receipt)
	c.mu.Unlock()
	//
	err := c.write(Frame{
		Command: string(CommandDisconnect),
		Headers: NewHeaders(HeaderReceipt, receiptID),
	})
	if err != nil {
		return err
	}
	for frame := range c.receive {
		if Command(frame.Command) == CommandReceipt && frame.Headers.Get(HeaderReceiptID) == receiptID {
			break
		}
	}
	return c.Close()
}

// Close closes the connection.  Receive is closed once the reader drains.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}

// Err returns the error that ended the connection, if any.  io.EOF and
// errors caused by closing the connection locally are not reported.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) dial() error {
	var conn net.Conn
	var err error
	//
	if c.TLSConfig != nil {
		if c.Dialer != nil {
			dialer := tls.Dialer{
				NetDialer: c.Dialer,
				Config:    c.TLSConfig,
			}
			if conn, err = dialer.Dial("tcp", c.Addr); err != nil {
				return err
			}
		} else {
			if conn, err = tls.Dial("tcp", c.Addr, c.TLSConfig); err != nil {
				return err
			}
		}
	} else {
		if c.Dialer != nil {
			if conn, err = c.Dialer.Dial("tcp", c.Addr); err != nil {
				return err
			}
		} else {
			if conn, err = net.Dial("tcp", c.Addr); err != nil {
				return err
			}
		}
	}
	//
	c.Conn = conn
	//
	return nil
}

func (c *Client) write(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.Conn == nil {
		return ErrClosed
	}
	_, err := f.WriteTo(c.Conn)
	return err
}

// reader pumps decoded frames into the receive channel until the connection
// ends, then closes the channel.
func (c *Client) reader() {
	defer c.wg.Done()
	defer close(c.receive)
	//
	dec := &Decoder{}
	buf := make([]byte, 4096)
	for {
		n, err := c.Conn.Read(buf)
		if n > 0 {
			for _, frame := range dec.Decode(buf[:n]) {
				c.receive <- frame
			}
		}
		if err != nil {
			c.mu.Lock()
			if !c.closed && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.err = err
			}
			c.mu.Unlock()
			return
		}
	}
}
