package stomp

// Header names used by the broker and clients.
const (
	HeaderDestination  = "destination"
	HeaderID           = "id"
	HeaderLogin        = "login"
	HeaderMessage      = "message"
	HeaderMessageID    = "message-id"
	HeaderPasscode     = "passcode"
	HeaderReceipt      = "receipt"
	HeaderReceiptID    = "receipt-id"
	HeaderSubscription = "subscription"
	HeaderVersion      = "version"
)

// Headers are the frame headers.
//
// Insertion order is preserved so encoded frames have deterministic wire
// output; a plain map would reorder headers between encodes.
type Headers struct {
	keys   []string
	values map[string]string
}

// NewHeaders creates Headers from name/value pairs.
//
// NewHeaders panics if given an odd number of arguments.
func NewHeaders(pairs ...string) Headers {
	if len(pairs)%2 != 0 {
		panic("stomp: NewHeaders requires name/value pairs")
	}
	var h Headers
	for k := 0; k < len(pairs); k += 2 {
		h.Set(pairs[k], pairs[k+1])
	}
	return h
}

// Set stores value under name.  A new name is appended after existing
// headers; setting an existing name replaces its value in place.
func (h *Headers) Set(name, value string) {
	if h.values == nil {
		h.values = map[string]string{}
	}
	if _, ok := h.values[name]; !ok {
		h.keys = append(h.keys, name)
	}
	h.values[name] = value
}

// Get returns the value for name or an empty string.
func (h Headers) Get(name string) string {
	return h.values[name]
}

// Has returns true if name is present.
func (h Headers) Has(name string) bool {
	_, ok := h.values[name]
	return ok
}

// Del removes name if present.
func (h *Headers) Del(name string) {
	if _, ok := h.values[name]; !ok {
		return
	}
	delete(h.values, name)
	for k, key := range h.keys {
		if key == name {
			h.keys = append(h.keys[:k], h.keys[k+1:]...)
			break
		}
	}
}

// Keys returns the header names in insertion order.
func (h Headers) Keys() []string {
	return h.keys
}

// Len returns the number of headers.
func (h Headers) Len() int {
	return len(h.keys)
}

// Clone returns a deep copy of the headers.
func (h Headers) Clone() Headers {
	var c Headers
	for _, key := range h.keys {
		c.Set(key, h.values[key])
	}
	return c
}
