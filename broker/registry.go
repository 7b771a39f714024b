package broker

import (
	"sync"

	"github.com/stompd/stomp"
	"github.com/stompd/stomp/internal/metrics"
)

// Handle is the transport-facing send primitive for one connection.  Send
// must not block protocol work; transports queue the frame for writing.
type Handle interface {
	Send(f stomp.Frame)
}

// Registry maps connection identities to their transport handles and
// channels to their subscriber sets, and owns message fan-out.
//
// All methods are safe for concurrent use from any connection's worker.
type Registry struct {
	mu       sync.RWMutex
	handles  map[int]Handle
	channels map[string]map[int]struct{} // channel -> subscribed connection ids
	subIDs   map[int]map[string]string   // connection id -> channel -> subscription id
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handles:  map[int]Handle{},
		channels: map[string]map[int]struct{}{},
		subIDs:   map[int]map[string]string{},
	}
}

// AddConnection registers the send handle for a newly accepted connection.
func (r *Registry) AddConnection(id int, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[id] = h
}

// SendToConnection forwards f to the connection's transport and reports
// whether the connection was still registered.  A false return means the
// frame was dropped because the connection is gone; callers treat that as
// a silent miss, not a fault.
func (r *Registry) SendToConnection(id int, f stomp.Frame) bool {
	r.mu.RLock()
	h, ok := r.handles[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	h.Send(f)
	return true
}

// SendToChannel delivers a copy of f to every connection subscribed to
// channel.  Each copy carries a subscription header naming the recipient's
// subscription id for the channel.  Recipients that disconnected since
// subscribing are skipped.
//
// The recipient set is snapshotted at call start; concurrent subscribes or
// unsubscribes affect later sends, not this one.
func (r *Registry) SendToChannel(channel string, f stomp.Frame) {
	type recipient struct {
		handle Handle
		subID  string
	}
	//
	r.mu.RLock()
	recipients := make([]recipient, 0, len(r.channels[channel]))
	for id := range r.channels[channel] {
		h, ok := r.handles[id]
		if !ok {
			continue
		}
		recipients = append(recipients, recipient{handle: h, subID: r.subIDs[id][channel]})
	}
	r.mu.RUnlock()
	//
	for _, rcpt := range recipients {
		out := f.Clone()
		out.Headers.Set(stomp.HeaderSubscription, rcpt.subID)
		rcpt.handle.Send(out)
		metrics.MessagesDelivered.Inc()
	}
}

// Subscribe adds the connection to channel's subscriber set and records its
// subscription id.  Subscribing again to the same channel overwrites the id.
func (r *Registry) Subscribe(channel string, id int, subscriptionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[channel] == nil {
		r.channels[channel] = map[int]struct{}{}
	}
	r.channels[channel][id] = struct{}{}
	if r.subIDs[id] == nil {
		r.subIDs[id] = map[string]string{}
	}
	r.subIDs[id][channel] = subscriptionID
}

// Unsubscribe removes the connection from channel's subscriber set and drops
// its subscription id.  Unsubscribe is a no-op when the pair is absent.
func (r *Registry) Unsubscribe(channel string, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeSubscription(channel, id)
}

// Disconnect removes the connection's handle and sweeps it from every
// channel.  Disconnect is idempotent and safe concurrent with in-flight
// broadcasts.
func (r *Registry) Disconnect(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
	for channel := range r.subIDs[id] {
		r.removeSubscription(channel, id)
	}
	delete(r.subIDs, id)
}

// removeSubscription drops the (channel, id) pair from both maps so the
// subscriber-set and subscription-id entries stay paired.  Callers hold the
// write lock.
func (r *Registry) removeSubscription(channel string, id int) {
	if subscribers, ok := r.channels[channel]; ok {
		delete(subscribers, id)
		if len(subscribers) == 0 {
			delete(r.channels, channel)
		}
	}
	if subs, ok := r.subIDs[id]; ok {
		delete(subs, channel)
	}
}
