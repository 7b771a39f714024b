package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stompd/stomp"
	"github.com/stompd/stomp/frames"
)

// engineFixture wires an Engine to a real registry and user store with a
// recorder as the connection's transport handle.
type engineFixture struct {
	engine   *Engine
	registry *Registry
	users    *UserStore
	rec      *recorder
}

func newEngineFixture(id int) *engineFixture {
	fix := &engineFixture{
		registry: NewRegistry(),
		users:    NewUserStore(),
		rec:      &recorder{},
	}
	fix.engine = NewEngine(id, fix.registry, fix.users, stomp.NilLogger)
	fix.registry.AddConnection(id, fix.rec)
	return fix
}

// peer adds another connection+engine sharing this fixture's registry and
// user store.
func (fix *engineFixture) peer(id int) (*Engine, *recorder) {
	rec := &recorder{}
	fix.registry.AddConnection(id, rec)
	return NewEngine(id, fix.registry, fix.users, stomp.NilLogger), rec
}

func (fix *engineFixture) connect(login string) {
	fix.engine.Process(frames.Connect(login, "secret"))
}

func TestEngine_Connect(t *testing.T) {
	chk := assert.New(t)
	fix := newEngineFixture(1)
	//
	fix.connect("alice")
	//
	got := fix.rec.Frames()
	chk.Len(got, 1)
	chk.Equal("CONNECTED", got[0].Command)
	chk.Equal(Version, got[0].Headers.Get(stomp.HeaderVersion))
	chk.False(fix.engine.ShouldTerminate())
	chk.True(fix.users.IsActive("alice"))
	chk.True(fix.users.IsRegistered("alice"))
}

func TestEngine_FatalErrors(t *testing.T) {
	type ErrorTest struct {
		Name    string
		Prepare func(fix *engineFixture)
		Frame   stomp.Frame
		Message string
	}
	tests := []ErrorTest{
		{
			Name:    "connect missing passcode",
			Prepare: func(fix *engineFixture) {},
			Frame: stomp.Frame{
				Command: "CONNECT",
				Headers: stomp.NewHeaders(stomp.HeaderLogin, "alice"),
			},
			Message: ErrMsgMalformed,
		},
		{
			Name:    "subscribe missing id",
			Prepare: func(fix *engineFixture) { fix.connect("alice") },
			Frame: stomp.Frame{
				Command: "SUBSCRIBE",
				Headers: stomp.NewHeaders(stomp.HeaderDestination, "/topic/news"),
			},
			Message: ErrMsgMalformed,
		},
		{
			Name:    "command before connect",
			Prepare: func(fix *engineFixture) {},
			Frame:   frames.Subscribe("/topic/news", "0"),
			Message: ErrMsgViolation,
		},
		{
			Name:    "disconnect before connect",
			Prepare: func(fix *engineFixture) {},
			Frame:   frames.Disconnect(""),
			Message: ErrMsgViolation,
		},
		{
			Name:    "send to unsubscribed destination",
			Prepare: func(fix *engineFixture) { fix.connect("alice") },
			Frame:   frames.SendString("/topic/news", "hello"),
			Message: ErrMsgViolation,
		},
		{
			Name:    "duplicate connect",
			Prepare: func(fix *engineFixture) { fix.connect("alice") },
			Frame:   frames.Connect("alice", "secret"),
			Message: ErrMsgAuthConflict,
		},
		{
			Name: "wrong password",
			Prepare: func(fix *engineFixture) {
				fix.users.Register("alice", "secret")
			},
			Frame:   frames.Connect("alice", "wrong"),
			Message: ErrMsgAuthConflict,
		},
		{
			Name: "user already active elsewhere",
			Prepare: func(fix *engineFixture) {
				fix.users.Register("alice", "secret")
				fix.users.SetActive("alice")
			},
			Frame:   frames.Connect("alice", "secret"),
			Message: ErrMsgAuthConflict,
		},
		{
			Name:    "unknown command",
			Prepare: func(fix *engineFixture) { fix.connect("alice") },
			Frame: stomp.Frame{
				Command: "NUKE",
			},
			Message: ErrMsgUnknown,
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			chk := assert.New(t)
			fix := newEngineFixture(1)
			test.Prepare(fix)
			before := len(fix.rec.Frames())
			//
			fix.engine.Process(test.Frame)
			//
			got := fix.rec.Frames()
			chk.Len(got, before+1)
			last := got[len(got)-1]
			chk.Equal("ERROR", last.Command)
			chk.Equal(test.Message, last.Headers.Get(stomp.HeaderMessage))
			chk.True(fix.engine.ShouldTerminate())
			//
			// The identity is swept from the registry and further frames are
			// ignored.
			chk.False(fix.registry.SendToConnection(1, frames.Receipt("r")))
			fix.engine.Process(frames.Connect("alice", "secret"))
			chk.Len(fix.rec.Frames(), before+1)
		})
	}
}

func TestEngine_ErrorLogsUserOut(t *testing.T) {
	chk := assert.New(t)
	fix := newEngineFixture(1)
	//
	fix.connect("alice")
	chk.True(fix.users.IsActive("alice"))
	fix.engine.Process(stomp.Frame{Command: "NUKE"})
	//
	// alice can log in again from another connection.
	chk.False(fix.users.IsActive("alice"))
	chk.NoError(fix.users.Login("alice", "secret"))
}

func TestEngine_ErrorEchoesReceiptID(t *testing.T) {
	chk := assert.New(t)
	fix := newEngineFixture(1)
	fix.connect("alice")
	//
	send := frames.SendString("/topic/news", "hello")
	send.Headers.Set(stomp.HeaderReceipt, "r-9")
	fix.engine.Process(send)
	//
	got := fix.rec.Frames()
	last := got[len(got)-1]
	chk.Equal("ERROR", last.Command)
	chk.Equal("r-9", last.Headers.Get(stomp.HeaderReceiptID))
}

func TestEngine_SubscribeSendDeliver(t *testing.T) {
	chk := assert.New(t)
	fix := newEngineFixture(1)
	fix.connect("alice")
	//
	bob, bobRec := fix.peer(2)
	bob.Process(frames.Connect("bob", "x"))
	//
	fix.engine.Process(frames.Subscribe("/topic/news", "0"))
	bob.Process(frames.Subscribe("/topic/news", "1"))
	//
	bob.Process(frames.SendString("/topic/news", "hello"))
	//
	// alice got the message stamped with her subscription id.
	aliceFrames := fix.rec.Frames()
	last := aliceFrames[len(aliceFrames)-1]
	chk.Equal("MESSAGE", last.Command)
	chk.Equal("/topic/news", last.Headers.Get(stomp.HeaderDestination))
	chk.Equal("0", last.Headers.Get(stomp.HeaderSubscription))
	chk.NotEmpty(last.Headers.Get(stomp.HeaderMessageID))
	chk.Equal([]byte("hello"), last.Body)
	//
	// bob is also a subscriber and receives his own message under his id.
	bobFrames := bobRec.Frames()
	bobLast := bobFrames[len(bobFrames)-1]
	chk.Equal("MESSAGE", bobLast.Command)
	chk.Equal("1", bobLast.Headers.Get(stomp.HeaderSubscription))
	//
	// Message ids are unique per broadcast.
	bob.Process(frames.SendString("/topic/news", "again"))
	next := fix.rec.Frames()
	chk.NotEqual(
		last.Headers.Get(stomp.HeaderMessageID),
		next[len(next)-1].Headers.Get(stomp.HeaderMessageID),
	)
}

func TestEngine_UnsubscribeStopsDelivery(t *testing.T) {
	chk := assert.New(t)
	fix := newEngineFixture(1)
	fix.connect("alice")
	//
	publisher, _ := fix.peer(2)
	publisher.Process(frames.Connect("bob", "x"))
	publisher.Process(frames.Subscribe("/topic/news", "9"))
	//
	fix.engine.Process(frames.Subscribe("/topic/news", "0"))
	fix.engine.Process(frames.Unsubscribe("0"))
	//
	before := len(fix.rec.Frames())
	publisher.Process(frames.SendString("/topic/news", "hello"))
	chk.Len(fix.rec.Frames(), before)
	//
	// A second unsubscribe for the same id is a no-op, not an error.
	fix.engine.Process(frames.Unsubscribe("0"))
	chk.False(fix.engine.ShouldTerminate())
}

func TestEngine_Receipts(t *testing.T) {
	chk := assert.New(t)
	fix := newEngineFixture(1)
	fix.connect("alice")
	//
	subscribe := frames.Subscribe("/topic/news", "0")
	subscribe.Headers.Set(stomp.HeaderReceipt, "r-1")
	fix.engine.Process(subscribe)
	//
	got := fix.rec.Frames()
	last := got[len(got)-1]
	chk.Equal("RECEIPT", last.Command)
	chk.Equal("r-1", last.Headers.Get(stomp.HeaderReceiptID))
	//
	// No receipt header, no receipt.
	before := len(fix.rec.Frames())
	fix.engine.Process(frames.Unsubscribe("0"))
	chk.Len(fix.rec.Frames(), before)
}

func TestEngine_Disconnect(t *testing.T) {
	chk := assert.New(t)
	fix := newEngineFixture(1)
	fix.connect("alice")
	fix.engine.Process(frames.Subscribe("/topic/news", "0"))
	//
	fix.engine.Process(frames.Disconnect("r-done"))
	//
	// The receipt goes out before teardown.
	got := fix.rec.Frames()
	last := got[len(got)-1]
	chk.Equal("RECEIPT", last.Command)
	chk.Equal("r-done", last.Headers.Get(stomp.HeaderReceiptID))
	//
	chk.True(fix.engine.ShouldTerminate())
	chk.False(fix.users.IsActive("alice"))
	chk.False(fix.registry.SendToConnection(1, frames.Receipt("r")))
	//
	// Subscriptions were swept with the identity.
	rec := &recorder{}
	fix.registry.AddConnection(3, rec)
	fix.registry.Subscribe("/topic/news", 3, "0")
	fix.registry.SendToChannel("/topic/news", frames.Message("/topic/news", "m", nil))
	chk.Len(rec.Frames(), 1)
	chk.Len(fix.rec.Frames(), len(got))
}

func TestEngine_CloseReleasesSession(t *testing.T) {
	chk := assert.New(t)
	fix := newEngineFixture(1)
	fix.connect("alice")
	fix.engine.Process(frames.Subscribe("/topic/news", "0"))
	//
	// Transport-level closure without DISCONNECT.
	fix.engine.Close()
	fix.engine.Close() // idempotent
	//
	chk.True(fix.engine.ShouldTerminate())
	chk.False(fix.users.IsActive("alice"))
	chk.False(fix.registry.SendToConnection(1, frames.Receipt("r")))
}
