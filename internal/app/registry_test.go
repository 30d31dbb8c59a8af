package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linguacall/server/internal/domain"
)

func TestRegistry_Register_EvictsPriorConnection(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	uid := domain.UserID("alice")
	first := &fakeConn{}
	second := &fakeConn{}

	// Given a live connection
	req.False(reg.Register(uid, first))

	// When the same identity opens a second connection
	evicted := reg.Register(uid, second)

	// Then exactly one connection remains and the superseded one is closed
	req.True(evicted)
	req.True(first.isClosed())
	req.False(second.isClosed())
	got, ok := reg.Lookup(uid)
	req.True(ok)
	req.Same(second, got)
}

func TestRegistry_Send_NotConnected(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	err := reg.Send("nobody", map[string]string{"type": "pong"})
	req.ErrorIs(err, domain.ErrNotConnected)
}

func TestRegistry_Deregister_StaleConnectionIsNoop(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	uid := domain.UserID("alice")
	first := &fakeConn{}
	second := &fakeConn{}

	reg.Register(uid, first)
	reg.Register(uid, second)

	// The evicted connection's late cleanup must not unbind the new one
	req.False(reg.Deregister(uid, first))
	req.True(reg.Online(uid))

	req.True(reg.Deregister(uid, second))
	req.False(reg.Online(uid))

	// Repeating the same deregistration is harmless
	req.False(reg.Deregister(uid, second))
}

func TestRegistry_ClearCurrentCall_OnlyMatching(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	uid := domain.UserID("alice")
	reg.Register(uid, &fakeConn{})

	reg.SetCurrentCall(uid, "call-1")
	reg.ClearCurrentCall(uid, "call-2")

	p, ok := reg.Presence(uid)
	req.True(ok)
	req.Equal(domain.CallID("call-1"), p.CurrentCall)

	reg.ClearCurrentCall(uid, "call-1")
	p, _ = reg.Presence(uid)
	req.Empty(p.CurrentCall)
}

func TestRegistry_Drop_ClosesConnection(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	uid := domain.UserID("alice")
	conn := &fakeConn{}
	reg.Register(uid, conn)

	reg.Drop(uid)

	req.True(conn.isClosed())
	req.False(reg.Online(uid))
}
