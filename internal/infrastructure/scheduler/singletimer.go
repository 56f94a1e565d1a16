package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SingleTimer holds at most one pending deferred action. Scheduling a new
// action cancels the previous one under the same lock, so two actions never
// coexist.
type SingleTimer struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timer  clockwork.Timer
	gen    uint64
	fireAt time.Time
}

// Handle identifies one scheduled action.
type Handle struct {
	owner *SingleTimer
	gen   uint64
}

func NewSingleTimer(clock clockwork.Clock) *SingleTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SingleTimer{clock: clock}
}

// Schedule arranges for fn to run at the given wall-clock time. Times in
// the past are clamped to now.
func (s *SingleTimer) Schedule(at time.Time, fn func()) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	gen := s.gen

	now := s.clock.Now()
	if at.Before(now) {
		at = now
	}
	s.fireAt = at
	s.timer = s.clock.AfterFunc(at.Sub(now), func() { s.fire(gen, fn) })

	return &Handle{owner: s, gen: gen}
}

func (s *SingleTimer) fire(gen uint64, fn func()) {
	s.mu.Lock()
	if s.gen != gen || s.timer == nil {
		// superseded or cancelled after the runtime already queued us
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.fireAt = time.Time{}
	s.mu.Unlock()

	fn()
}

// Cancel drops the pending action, if any.
func (s *SingleTimer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
}

func (s *SingleTimer) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.fireAt = time.Time{}
}

// Pending reports whether an action is waiting to fire.
func (s *SingleTimer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// FireAt returns the time the pending action is due.
func (s *SingleTimer) FireAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.fireAt, true
}

// Cancel drops the action only if it is still the one pending.
func (h *Handle) Cancel() {
	if h == nil || h.owner == nil {
		return
	}
	s := h.owner
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != h.gen {
		return
	}
	s.stopLocked()
	s.gen++
}

// Active reports whether this handle's action is still pending.
func (h *Handle) Active() bool {
	if h == nil || h.owner == nil {
		return false
	}
	s := h.owner
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == h.gen && s.timer != nil
}
