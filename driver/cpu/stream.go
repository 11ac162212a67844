package cpu

import (
	"sync"

	"github.com/accelkit/accelgo/driver"
)

// stream is a FIFO work queue drained by one worker goroutine. The first
// failing task's status sticks until the stream's own synchronize consumes
// it; context-wide waits go through drain, which leaves the status in place
// for the stream's owner. All entry points are safe against a concurrent
// stop: a stopped stream rejects new work and lets waiters finish instead
// of panicking.
type stream struct {
	owner driver.Ctx

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func() driver.Status
	pending int
	sticky  driver.Status
	stopped bool
}

func newStream(owner driver.Ctx) *stream {
	s := &stream{owner: owner, sticky: driver.StatusSuccess}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

func (s *stream) loop() {
	s.mu.Lock()
	for {
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		st := fn()

		s.mu.Lock()
		if st != driver.StatusSuccess && s.sticky == driver.StatusSuccess {
			s.sticky = st
		}
		s.pending--
		s.cond.Broadcast()
	}
}

// submit enqueues fn; it reports false when the stream has been stopped.
func (s *stream) submit(fn func() driver.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.queue = append(s.queue, fn)
	s.pending++
	s.cond.Broadcast()
	return true
}

func (s *stream) query() driver.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending > 0 {
		return driver.StatusErrorNotReady
	}
	return s.sticky
}

// synchronize waits for all submitted work and consumes the sticky status.
// Only the stream's own synchronize clears it.
func (s *stream) synchronize() driver.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending > 0 {
		s.cond.Wait()
	}
	st := s.sticky
	s.sticky = driver.StatusSuccess
	return st
}

// drain waits for all submitted work without touching the sticky status.
func (s *stream) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending > 0 {
		s.cond.Wait()
	}
}

// stop lets already-queued work finish, then retires the worker. Later
// submits are rejected; waiters drain normally.
func (s *stream) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cond.Broadcast()
}
