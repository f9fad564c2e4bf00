package timeline

import (
	"time"

	"coachgraph/src/helper/clock"
)

// snapshotScheduler throttles snapshot requests to one per interval. A request
// inside the window is deferred to the end of the window, and only the latest
// deferred value is kept (one pending timer at most).
//
// It is not safe for concurrent use; the Controller serializes calls with its
// own mutex, including the timer callback through lock/unlock.
type snapshotScheduler struct {
	clock    clock.Clock
	interval time.Duration
	fire     func(at time.Time)
	lock     func()
	unlock   func()

	lastCall  time.Time
	pending   clock.Timer
	pendingAt time.Time
	stopped   bool
}

func newSnapshotScheduler(clk clock.Clock, interval time.Duration, lock, unlock func(), fire func(at time.Time)) *snapshotScheduler {
	return &snapshotScheduler{clock: clk, interval: interval, fire: fire, lock: lock, unlock: unlock}
}

// request must be called with the controller lock held.
func (s *snapshotScheduler) request(at time.Time) {
	if s.stopped {
		return
	}
	if s.pending != nil {
		s.pendingAt = at
		return
	}

	now := s.clock.Now()
	if s.lastCall.IsZero() || now.Sub(s.lastCall) >= s.interval {
		s.lastCall = now
		s.fire(at)
		return
	}

	s.pendingAt = at
	s.pending = s.clock.AfterFunc(s.lastCall.Add(s.interval).Sub(now), s.flush)
}

func (s *snapshotScheduler) flush() {
	s.lock()
	defer s.unlock()

	if s.stopped || s.pending == nil {
		return
	}
	s.pending = nil
	s.lastCall = s.clock.Now()
	s.fire(s.pendingAt)
}

// stop cancels the pending follow-up, if any. Must be called with the
// controller lock held.
func (s *snapshotScheduler) stop() {
	s.stopped = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}
