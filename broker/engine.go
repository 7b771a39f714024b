package broker

import (
	"github.com/stompd/stomp"
	"github.com/stompd/stomp/frames"
	"github.com/stompd/stomp/internal/metrics"
)

// ERROR frame message header values.
const (
	ErrMsgMalformed    = "Malformed Frame"
	ErrMsgViolation    = "Protocol Violation"
	ErrMsgAuthConflict = "Authentication Conflict"
	ErrMsgUnknown      = "Unknown Command"
)

// Version is the STOMP protocol version advertised in CONNECTED frames.
const Version = "1.2"

// sessionState is the engine's position in the protocol lifecycle.
type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateTerminated
)

// transition gates a command on the session state and required headers.
type transition struct {
	state   sessionState
	headers []string
	handle  func(e *Engine, f stomp.Frame)
}

// transitions is the protocol's command table.  A command absent from the
// table is unknown and fatal.
var transitions = map[stomp.Command]transition{
	stomp.CommandConnect: {
		state:   stateUnauthenticated,
		headers: []string{stomp.HeaderLogin, stomp.HeaderPasscode},
		handle:  (*Engine).connect,
	},
	stomp.CommandSubscribe: {
		state:   stateAuthenticated,
		headers: []string{stomp.HeaderDestination, stomp.HeaderID},
		handle:  (*Engine).subscribe,
	},
	stomp.CommandUnsubscribe: {
		state:   stateAuthenticated,
		headers: []string{stomp.HeaderID},
		handle:  (*Engine).unsubscribe,
	},
	stomp.CommandSend: {
		state:   stateAuthenticated,
		headers: []string{stomp.HeaderDestination},
		handle:  (*Engine).send,
	},
	stomp.CommandDisconnect: {
		state:  stateAuthenticated,
		handle: (*Engine).disconnect,
	},
}

// Engine drives the STOMP protocol for a single connection.
//
// An Engine is bound to one connection identity and is never invoked
// concurrently with itself; the transport feeds it decoded frames in arrival
// order.  Registry and UserStore access is what crosses connections.
type Engine struct {
	id       int
	registry *Registry
	users    *UserStore
	log      stomp.Logger

	state sessionState
	user  string
	subs  map[string]string // subscription id -> channel
}

// NewEngine returns an Engine bound to the given connection identity.
func NewEngine(id int, registry *Registry, users *UserStore, log stomp.Logger) *Engine {
	if log == nil {
		log = stomp.NilLogger
	}
	return &Engine{
		id:       id,
		registry: registry,
		users:    users,
		log:      log,
		subs:     map[string]string{},
	}
}

// Process drives one decoded frame through the state machine.
func (e *Engine) Process(f stomp.Frame) {
	if e.state == stateTerminated {
		return
	}
	t, ok := transitions[stomp.Command(f.Command)]
	if !ok {
		e.fail(ErrMsgUnknown, "Unrecognized command "+f.Command, f)
		return
	}
	if t.state != e.state {
		if stomp.Command(f.Command) == stomp.CommandConnect {
			e.fail(ErrMsgAuthConflict, "Session is already authenticated", f)
		} else {
			e.fail(ErrMsgViolation, f.Command+" requires an authenticated session", f)
		}
		return
	}
	for _, header := range t.headers {
		if !f.Headers.Has(header) {
			e.fail(ErrMsgMalformed, "Missing required header "+header, f)
			return
		}
	}
	t.handle(e, f)
}

// ShouldTerminate reports whether the transport must close this connection
// after flushing pending sends.  Once true it never becomes false.
func (e *Engine) ShouldTerminate() bool {
	return e.state == stateTerminated
}

// Close releases the session on transport-level closure: the user is logged
// out and the connection swept from the registry.  Close is idempotent and
// is also safe after a protocol-level termination.
func (e *Engine) Close() {
	if e.user != "" {
		e.users.SetInactive(e.user)
		e.user = ""
	}
	e.state = stateTerminated
	e.registry.Disconnect(e.id)
}

func (e *Engine) connect(f stomp.Frame) {
	login := f.Headers.Get(stomp.HeaderLogin)
	passcode := f.Headers.Get(stomp.HeaderPasscode)
	if err := e.users.Login(login, passcode); err != nil {
		e.fail(ErrMsgAuthConflict, err.Error(), f)
		return
	}
	e.user = login
	e.state = stateAuthenticated
	e.registry.SendToConnection(e.id, frames.Connected(Version))
	e.log.Infof("broker: connection %v authenticated as %v", e.id, login)
}

func (e *Engine) subscribe(f stomp.Frame) {
	dest := f.Headers.Get(stomp.HeaderDestination)
	subID := f.Headers.Get(stomp.HeaderID)
	e.subs[subID] = dest
	e.registry.Subscribe(dest, e.id, subID)
	e.log.Infof("broker: connection %v subscribed to %v id=%v", e.id, dest, subID)
	e.receipt(f)
}

func (e *Engine) unsubscribe(f stomp.Frame) {
	subID := f.Headers.Get(stomp.HeaderID)
	if dest, ok := e.subs[subID]; ok {
		delete(e.subs, subID)
		e.registry.Unsubscribe(dest, e.id)
		e.log.Infof("broker: connection %v unsubscribed from %v id=%v", e.id, dest, subID)
	}
	e.receipt(f)
}

func (e *Engine) send(f stomp.Frame) {
	dest := f.Headers.Get(stomp.HeaderDestination)
	if !e.subscribedTo(dest) {
		e.fail(ErrMsgViolation, "SEND requires a subscription to "+dest, f)
		return
	}
	e.registry.SendToChannel(dest, frames.Message(dest, stomp.MessageID(), f.Body))
	e.receipt(f)
}

func (e *Engine) disconnect(f stomp.Frame) {
	// The receipt goes out before teardown so it isn't dropped with the handle.
	e.receipt(f)
	e.log.Infof("broker: connection %v disconnected by %v", e.id, e.user)
	e.Close()
}

// subscribedTo reports whether this session holds any subscription to dest.
func (e *Engine) subscribedTo(dest string) bool {
	for _, channel := range e.subs {
		if channel == dest {
			return true
		}
	}
	return false
}

// receipt answers the frame's receipt header, if present.
func (e *Engine) receipt(f stomp.Frame) {
	if f.Headers.Has(stomp.HeaderReceipt) {
		e.registry.SendToConnection(e.id, frames.Receipt(f.Headers.Get(stomp.HeaderReceipt)))
	}
}

// fail sends a fatal ERROR frame and tears the session down.  Every protocol
// fault ends the session; nothing is recoverable mid-connection.
func (e *Engine) fail(message, detail string, cause stomp.Frame) {
	metrics.ProtocolErrors.Inc()
	e.registry.SendToConnection(e.id, frames.Error(message, detail, cause))
	e.log.Infof("broker: connection %v terminated: %v: %v", e.id, message, detail)
	e.Close()
}
