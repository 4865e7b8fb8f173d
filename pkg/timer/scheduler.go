package timer

import (
	"sync"
	"time"
)

// FireFunc is invoked when a scheduled continuation is due.
type FireFunc func(key, token string)

// Scheduler keeps at most one pending continuation per conversation key.
// Scheduling a key again replaces the previous continuation; callbacks carry the
// token they were scheduled with so stale fires can be recognized by the receiver.
type Scheduler struct {
	clock Clock
	fire  FireFunc

	mu      sync.Mutex
	pending map[string]entry
}

type entry struct {
	token string
	stop  func() bool
}

// NewScheduler creates a scheduler calling fire when continuations are due.
func NewScheduler(clock Clock, fire FireFunc) *Scheduler {
	if clock == nil {
		clock = Real{}
	}
	return &Scheduler{clock: clock, fire: fire, pending: make(map[string]entry)}
}

// Schedule arranges fire(key, token) at due. A due time in the past fires as soon as possible.
func (s *Scheduler) Schedule(key, token string, due time.Time) {
	d := due.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pending[key]; ok {
		prev.stop()
	}
	stop := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.pending[key]
		if ok && current.token == token {
			delete(s.pending, key)
		}
		s.mu.Unlock()
		s.fire(key, token)
	})
	s.pending[key] = entry{token: token, stop: stop}
}

// Cancel drops the pending continuation of key, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pending[key]; ok {
		prev.stop()
		delete(s.pending, key)
	}
}

// Pending returns the token scheduled for key.
func (s *Scheduler) Pending(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key]
	return e.token, ok
}

// Stop cancels every pending continuation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.pending {
		e.stop()
		delete(s.pending, key)
	}
}

// Now returns the scheduler clock's time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}
