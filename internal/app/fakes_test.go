package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	broken bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.broken {
		return errors.New("connection closed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// messages decodes every received frame for assertions.
func (c *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, kind string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range c.messages(t) {
		if m["type"] == kind {
			out = append(out, m)
		}
	}
	return out
}

type fakeDirectory struct {
	mu     sync.Mutex
	names  map[domain.UserID]string
	online map[domain.UserID]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		names:  make(map[domain.UserID]string),
		online: make(map[domain.UserID]bool),
	}
}

func (d *fakeDirectory) DisplayName(_ context.Context, id domain.UserID) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name, ok := d.names[id]; ok {
		return name, nil
	}
	return "", domain.ErrNotFound
}

func (d *fakeDirectory) SetOnline(_ context.Context, id domain.UserID, online bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.online[id] = online
	return nil
}

type storedCall struct {
	a, b      domain.UserID
	roomToken string
}

type fakeStore struct {
	mu    sync.Mutex
	calls map[domain.CallID]storedCall
	ended map[domain.CallID]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		calls: make(map[domain.CallID]storedCall),
		ended: make(map[domain.CallID]time.Duration),
	}
}

func (s *fakeStore) Participants(_ context.Context, id domain.CallID) (domain.UserID, domain.UserID, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.ended[id]; done {
		return "", "", "", domain.ErrNotFound
	}
	if c, ok := s.calls[id]; ok {
		return c.a, c.b, c.roomToken, nil
	}
	return "", "", "", domain.ErrNotFound
}

func (s *fakeStore) MarkEnded(_ context.Context, id domain.CallID, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calls[id]; !ok {
		return domain.ErrNotFound
	}
	s.ended[id] = d
	return nil
}

func newTestHub() (*Hub, *fakeDirectory, *fakeStore) {
	dir := newFakeDirectory()
	st := newFakeStore()
	return NewHub(dir, st), dir, st
}

// connect wires a fake connection for the identity through the full
// connect cascade.
func connect(h *Hub, id domain.UserID) *fakeConn {
	c := &fakeConn{}
	h.Connect(context.Background(), id, c)
	return c
}
