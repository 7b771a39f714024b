package stomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders_InsertionOrder(t *testing.T) {
	chk := assert.New(t)
	//
	var h Headers
	h.Set("destination", "/topic/news")
	h.Set("message-id", "msg-1")
	h.Set("subscription", "0")
	chk.Equal([]string{"destination", "message-id", "subscription"}, h.Keys())
	//
	// Overwriting keeps the original position.
	h.Set("message-id", "msg-2")
	chk.Equal([]string{"destination", "message-id", "subscription"}, h.Keys())
	chk.Equal("msg-2", h.Get("message-id"))
}

func TestHeaders_GetHasDel(t *testing.T) {
	chk := assert.New(t)
	//
	h := NewHeaders("login", "alice", "passcode", "secret")
	chk.Equal(2, h.Len())
	chk.True(h.Has("login"))
	chk.Equal("alice", h.Get("login"))
	chk.False(h.Has("receipt"))
	chk.Equal("", h.Get("receipt"))
	//
	h.Del("login")
	chk.False(h.Has("login"))
	chk.Equal([]string{"passcode"}, h.Keys())
	//
	// Deleting an absent name is a no-op.
	h.Del("login")
	chk.Equal(1, h.Len())
}

func TestHeaders_Clone(t *testing.T) {
	chk := assert.New(t)
	//
	h := NewHeaders("a", "1", "b", "2")
	c := h.Clone()
	chk.Equal(h.Keys(), c.Keys())
	chk.Equal(h.Get("a"), c.Get("a"))
	//
	c.Set("a", "changed")
	c.Set("z", "3")
	chk.Equal("1", h.Get("a"))
	chk.False(h.Has("z"))
}
