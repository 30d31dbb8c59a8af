package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInviteRateLimiter_BlocksOverLimit(t *testing.T) {
	req := require.New(t)
	rl := NewInviteRateLimiter(3, time.Minute)

	req.True(rl.Allow("alice"))
	req.True(rl.Allow("alice"))
	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))

	// Other identities have their own window
	req.True(rl.Allow("bob"))
}

func TestInviteRateLimiter_WindowSlides(t *testing.T) {
	req := require.New(t)
	rl := NewInviteRateLimiter(1, 10*time.Millisecond)

	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))

	time.Sleep(20 * time.Millisecond)
	req.True(rl.Allow("alice"))
}
