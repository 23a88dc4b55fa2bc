package engine

import (
	"sync"
	"time"
)

// logThrottle caps repeated identical messages per rolling window so a
// broken expression evaluated every tick cannot flood the log.
type logThrottle struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	seen   map[string]*throttleSlot
	now    func() time.Time
}

type throttleSlot struct {
	windowStart time.Time
	count       int
	suppressed  int
}

const (
	defaultThrottleLimit  = 5
	defaultThrottleWindow = time.Minute
)

func newLogThrottle(limit int, window time.Duration) *logThrottle {
	if limit <= 0 {
		limit = defaultThrottleLimit
	}
	if window <= 0 {
		window = defaultThrottleWindow
	}
	return &logThrottle{
		limit:  limit,
		window: window,
		seen:   make(map[string]*throttleSlot),
		now:    time.Now,
	}
}

// allow reports whether the message may be logged now. suppressed is the
// number of identical messages dropped since the last allowed one, so
// the first message of a fresh window can report the gap.
func (t *logThrottle) allow(message string) (ok bool, suppressed int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	slot, exists := t.seen[message]
	if !exists || now.Sub(slot.windowStart) >= t.window {
		prev := 0
		if exists {
			prev = slot.suppressed
		}
		t.seen[message] = &throttleSlot{windowStart: now, count: 1}
		return true, prev
	}

	if slot.count < t.limit {
		slot.count++
		return true, 0
	}
	slot.suppressed++
	return false, 0
}
