package matching

import (
	"time"

	"github.com/benbjohnson/clock"
)

// pairTimer is the single cancellable timer owned jointly by a paired
// sessions' timed phase. Both sessions hold the same handle.
type pairTimer struct {
	timer *clock.Timer
}

// TimeoutScheduler arms and cancels pair timers. Arming a new timed phase
// always cancels whatever timer either session held before. A timer that
// fires after its phase ended is harmless: every callback re-validates
// session state under the engine lock before acting.
type TimeoutScheduler struct {
	clock clock.Clock
}

func NewTimeoutScheduler(clk clock.Clock) *TimeoutScheduler {
	return &TimeoutScheduler{clock: clk}
}

// SchedulePair cancels any prior timer on either session and arms one shared
// timer for both. fn runs on its own goroutine when the timer fires.
func (ts *TimeoutScheduler) SchedulePair(a, b *Session, d time.Duration, fn func()) {
	ts.Cancel(a)
	ts.Cancel(b)

	pt := &pairTimer{}
	pt.timer = ts.clock.AfterFunc(d, fn)
	a.timer = pt
	b.timer = pt
}

// Cancel stops and releases the session's timer if one is armed. Stopping a
// shared timer through one session is enough; the partner's handle is
// released separately via CancelPair.
func (ts *TimeoutScheduler) Cancel(s *Session) {
	if s == nil || s.timer == nil {
		return
	}
	s.timer.timer.Stop()
	s.timer = nil
}

func (ts *TimeoutScheduler) CancelPair(a, b *Session) {
	ts.Cancel(a)
	ts.Cancel(b)
}

// clearFired releases a handle whose timer has already fired.
func clearFired(sessions ...*Session) {
	for _, s := range sessions {
		if s != nil {
			s.timer = nil
		}
	}
}
