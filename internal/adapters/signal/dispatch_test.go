package signal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linguacall/server/internal/app"
	"github.com/linguacall/server/internal/core"
	"github.com/linguacall/server/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
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

type nullDirectory struct{}

func (nullDirectory) DisplayName(context.Context, domain.UserID) (string, error) {
	return "", domain.ErrNotFound
}
func (nullDirectory) SetOnline(context.Context, domain.UserID, bool) error { return nil }

type nullStore struct{}

func (nullStore) Participants(context.Context, domain.CallID) (domain.UserID, domain.UserID, string, error) {
	return "", "", "", domain.ErrNotFound
}
func (nullStore) MarkEnded(context.Context, domain.CallID, time.Duration) error {
	return domain.ErrNotFound
}

func newTestController() *Controller {
	return &Controller{
		Hub:     app.NewHub(nullDirectory{}, nullStore{}),
		Limiter: NewInviteRateLimiter(10, time.Minute),
	}
}

func dial(ctl *Controller, id domain.UserID) *fakeConn {
	c := &fakeConn{}
	ctl.Hub.Connect(context.Background(), id, c)
	return c
}

func TestDispatch_PingPong(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	conn := dial(ctl, "alice")

	ctl.dispatch(context.Background(), "alice", conn, []byte(`{"type":"ping"}`))

	req.Len(conn.ofType(t, "pong"), 1)
}

func TestDispatch_UnknownTypeKeepsConnectionOpen(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	conn := dial(ctl, "alice")

	ctl.dispatch(context.Background(), "alice", conn, []byte(`{"type":"teleport"}`))

	errs := conn.ofType(t, "error")
	req.Len(errs, 1)
	req.Contains(errs[0]["error"], "teleport")
	req.False(conn.isClosed())
}

func TestDispatch_MalformedFrameIsDropped(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	conn := dial(ctl, "alice")

	ctl.dispatch(context.Background(), "alice", conn, []byte(`keepalive noise`))

	req.Empty(conn.messages(t))
	req.False(conn.isClosed())
}

func TestDispatch_InviteAcceptScenario(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	alice := dial(ctl, "alice")
	bob := dial(ctl, "bob")
	ctx := context.Background()

	// A invites B
	ctl.dispatch(ctx, "alice", alice, []byte(`{"type":"send_call_invitation","to_user":"bob","call_id":"call-1"}`))

	invites := bob.ofType(t, "call_invitation")
	req.Len(invites, 1)
	invID, ok := invites[0]["invitation_id"].(string)
	req.True(ok)
	req.Len(alice.ofType(t, "invitation_sent"), 1)

	// B accepts with the received invitation id
	accept, err := json.Marshal(map[string]string{"type": "accept_call_invitation", "invitation_id": invID})
	req.NoError(err)
	ctl.dispatch(ctx, "bob", bob, accept)

	accepted := alice.ofType(t, "call_accepted")
	started := bob.ofType(t, "call_started")
	req.Len(accepted, 1)
	req.Len(started, 1)
	req.NotEmpty(accepted[0]["room_id"])
	req.Equal(accepted[0]["room_id"], started[0]["room_id"])
}

func TestDispatch_SignalForUnknownCall(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	alice := dial(ctl, "alice")
	bob := dial(ctl, "bob")

	ctl.dispatch(context.Background(), "alice", alice,
		[]byte(`{"type":"webrtc_signal","call_id":"ghost","to_user_id":"bob","signal":{"sdp":"x"}}`))

	results := alice.ofType(t, "signal_result")
	req.Len(results, 1)
	req.Equal("Call not found", results[0]["error"])
	req.Empty(bob.messages(t))
}

func TestDispatch_SignalWithEmbeddedCallID(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	alice := dial(ctl, "alice")
	bob := dial(ctl, "bob")

	ctl.Hub.Calls.Ensure("call-1", [2]domain.UserID{"alice", "bob"}, "")

	ctl.dispatch(context.Background(), "alice", alice,
		[]byte(`{"type":"webrtc_signal","to_user_id":"bob","signal":{"call_id":"call-1","sdp":"x"}}`))

	req.Len(bob.ofType(t, "signal"), 1)
	results := alice.ofType(t, "signal_result")
	req.Len(results, 1)
	req.Equal(true, results[0]["success"])
}

func TestDispatch_TranscriptionBroadcast(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	alice := dial(ctl, "alice")
	bob := dial(ctl, "bob")

	ctl.Hub.Calls.Ensure("call-1", [2]domain.UserID{"alice", "bob"}, "")

	ctl.dispatch(context.Background(), "alice", alice,
		[]byte(`{"type":"transcription","call_id":"call-1","text":"how are you","speaker_role":"speaker"}`))

	got := bob.ofType(t, "transcription")
	req.Len(got, 1)
	req.Equal("how are you", got[0]["text"])
	req.Empty(alice.ofType(t, "transcription"))
}

func TestDispatch_EndCall(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	alice := dial(ctl, "alice")
	bob := dial(ctl, "bob")

	ctl.Hub.Calls.Ensure("call-1", [2]domain.UserID{"alice", "bob"}, "")

	ctl.dispatch(context.Background(), "alice", alice, []byte(`{"type":"end_call","call_id":"call-1"}`))

	results := alice.ofType(t, "end_call_result")
	req.Len(results, 1)
	req.Equal(true, results[0]["success"])
	req.Len(bob.ofType(t, "call_ended"), 1)
}

func TestDispatch_CheckOnline(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	alice := dial(ctl, "alice")
	dial(ctl, "bob")

	ctx := context.Background()
	ctl.dispatch(ctx, "alice", alice, []byte(`{"type":"check_online","target_user":"bob"}`))
	ctl.dispatch(ctx, "alice", alice, []byte(`{"type":"check_online","target_user":"ghost"}`))

	statuses := alice.ofType(t, "online_status")
	req.Len(statuses, 2)
	req.Equal(true, statuses[0]["is_online"])
	req.Equal(false, statuses[1]["is_online"])
}

func TestDispatch_InviteRateLimited(t *testing.T) {
	req := require.New(t)
	ctl := newTestController()
	ctl.Limiter = NewInviteRateLimiter(1, time.Minute)
	alice := dial(ctl, "alice")
	dial(ctl, "bob")
	ctx := context.Background()

	ctl.dispatch(ctx, "alice", alice, []byte(`{"type":"send_call_invitation","to_user":"bob","call_id":"c1"}`))
	ctl.dispatch(ctx, "alice", alice, []byte(`{"type":"send_call_invitation","to_user":"bob","call_id":"c2"}`))

	results := alice.ofType(t, "invitation_result")
	req.Len(results, 1)
	req.Contains(results[0]["error"], "too many invitations")
}
