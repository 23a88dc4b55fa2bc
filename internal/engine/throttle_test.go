package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle_CapsRepeats(t *testing.T) {
	th := newLogThrottle(3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := th.allow("same fault")
		assert.True(t, ok, "message %d should pass", i+1)
	}
	ok, _ := th.allow("same fault")
	assert.False(t, ok, "message over the cap must be suppressed")
}

func TestThrottle_DistinctMessagesIndependent(t *testing.T) {
	th := newLogThrottle(1, time.Minute)

	ok, _ := th.allow("fault a")
	assert.True(t, ok)
	ok, _ = th.allow("fault b")
	assert.True(t, ok)
	ok, _ = th.allow("fault a")
	assert.False(t, ok)
}

func TestThrottle_WindowResetReportsSuppressed(t *testing.T) {
	th := newLogThrottle(1, time.Minute)
	now := time.Unix(0, 0)
	th.now = func() time.Time { return now }

	ok, _ := th.allow("fault")
	assert.True(t, ok)
	for i := 0; i < 4; i++ {
		ok, _ = th.allow("fault")
		assert.False(t, ok)
	}

	now = now.Add(2 * time.Minute)
	ok, suppressed := th.allow("fault")
	assert.True(t, ok, "a fresh window admits the message again")
	assert.Equal(t, 4, suppressed)
}

func TestThrottle_Defaults(t *testing.T) {
	th := newLogThrottle(0, 0)
	assert.Equal(t, defaultThrottleLimit, th.limit)
	assert.Equal(t, defaultThrottleWindow, th.window)
}
