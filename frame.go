package stomp

import (
	"bytes"
	"io"
	"strings"
)

// Frame is a STOMP frame.
//
// A Frame produced by a Decoder is complete and should not be mutated;
// use Clone when a modified copy is needed.
type Frame struct {
	Command string
	Headers Headers
	Body    []byte
}

// Empty returns true if the frame is empty.  An empty frame has no command,
// no headers, and a zero-length body.
func (f Frame) Empty() bool {
	return f.Command == "" && f.Headers.Len() == 0 && len(f.Body) == 0
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	c := Frame{
		Command: f.Command,
		Headers: f.Headers.Clone(),
	}
	if len(f.Body) > 0 {
		c.Body = make([]byte, len(f.Body))
		copy(c.Body, f.Body)
	}
	return c
}

// String returns the STOMP frame as a string.
func (f Frame) String() string {
	s := &strings.Builder{}
	if _, err := f.WriteTo(s); err != nil {
		return ""
	}
	return s.String()
}

// Bytes returns the frame encoded as NUL-terminated UTF-8 wire bytes.
func (f Frame) Bytes() []byte {
	b := &bytes.Buffer{}
	_, _ = f.WriteTo(b)
	return b.Bytes()
}

// WriteTo writes the encoded frame to w until there's no more data to write
// or an error occurs.  Headers are written in insertion order followed by a
// blank line, the body, and the NUL terminator.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	var total, n int
	var err error
	//
	n, err = io.WriteString(w, f.Command+"\n")
	total += n
	if err != nil {
		return int64(total), err
	}
	//
	for _, header := range f.Headers.Keys() {
		n, err = io.WriteString(w, header+":"+f.Headers.Get(header)+"\n")
		total += n
		if err != nil {
			return int64(total), err
		}
	}
	n, err = io.WriteString(w, "\n")
	total += n
	if err != nil {
		return int64(total), err
	}
	//
	n, err = w.Write(f.Body)
	total += n
	if err != nil {
		return int64(total), err
	}
	n, err = w.Write([]byte{0x00})
	total += n
	if err != nil {
		return int64(total), err
	}
	//
	return int64(total), nil
}
