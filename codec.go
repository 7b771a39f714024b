package stomp

import "strings"

// frameTerminator ends every frame on the wire.
const frameTerminator byte = 0x00

// Decoder incrementally assembles STOMP frames from a raw byte stream.
//
// Bytes may arrive in chunks of any size; the decoder accumulates them until
// the NUL terminator arrives and only then parses and emits a frame.  The
// zero value is ready to use.  A Decoder is not safe for concurrent use; use
// one per connection.
type Decoder struct {
	buf []byte
}

// DecodeByte consumes a single byte from the stream.
//
// When b completes a frame the parsed Frame is returned with ok=true.
// Otherwise ok is false, which is the normal "no frame yet" state and
// not an error.
func (d *Decoder) DecodeByte(b byte) (Frame, bool) {
	if b != frameTerminator {
		d.buf = append(d.buf, b)
		return Frame{}, false
	}
	text := string(d.buf)
	d.buf = d.buf[:0]
	return parseFrame(text)
}

// Decode consumes a chunk of bytes and returns the frames completed by it,
// in arrival order.  Trailing bytes of an unterminated frame are retained
// for subsequent calls.
func (d *Decoder) Decode(p []byte) []Frame {
	var decoded []Frame
	for _, b := range p {
		if frame, ok := d.DecodeByte(b); ok {
			decoded = append(decoded, frame)
		}
	}
	return decoded
}

// parseFrame parses the accumulated text of one frame.
//
// Line zero is the command; non-empty lines up to the first empty line are
// headers split at the first colon (values may themselves contain colons,
// and repeated names keep their first value); everything after the first
// empty line is the body.  A header line with no colon is dropped.  Text
// with no content yields no frame.
func parseFrame(text string) (Frame, bool) {
	if strings.TrimSpace(text) == "" {
		return Frame{}, false
	}
	lines := strings.Split(text, "\n")
	frame := Frame{
		Command: strings.TrimSpace(lines[0]),
	}
	//
	k := 1
	for ; k < len(lines) && lines[k] != ""; k++ {
		colon := strings.IndexByte(lines[k], ':')
		if colon == -1 {
			continue
		}
		name, value := lines[k][:colon], lines[k][colon+1:]
		if !frame.Headers.Has(name) {
			frame.Headers.Set(name, value)
		}
	}
	//
	if k+1 < len(lines) {
		if body := strings.TrimSpace(strings.Join(lines[k+1:], "\n")); body != "" {
			frame.Body = []byte(body)
		}
	}
	//
	return frame, true
}
