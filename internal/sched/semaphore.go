package sched

import (
	"math"
	"sync/atomic"
)

// Yielder gives up the processor until the caller is scheduled again.
type Yielder interface {
	Yield() error
}

// Semaphore is a counting permit guarding a shared resource.
//
// It is not a queueing semaphore: a contended Acquire polls by yielding to
// other tasks until a permit shows up, so waiters get no ordering beyond what
// the scheduler's selection produces.
type Semaphore struct {
	permits atomic.Uint32
}

// NewSemaphore returns a semaphore holding the given number of permits.
func NewSemaphore(permits uint32) *Semaphore {
	s := &Semaphore{}
	s.permits.Store(permits)
	return s
}

// TryAcquire takes a permit if one is available.
func (s *Semaphore) TryAcquire() bool {
	for {
		n := s.permits.Load()
		if n == 0 {
			return false
		}
		if s.permits.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// Acquire takes a permit, yielding through y on every failed attempt.
// The only error is the one returned by y.
func (s *Semaphore) Acquire(y Yielder) error {
	for !s.TryAcquire() {
		if err := y.Yield(); err != nil {
			return err
		}
	}
	return nil
}

// Release returns a permit. At the maximum count it is a no-op.
func (s *Semaphore) Release() {
	for {
		n := s.permits.Load()
		if n == math.MaxUint32 {
			return
		}
		if s.permits.CompareAndSwap(n, n+1) {
			return
		}
	}
}

// Permits returns the number of free permits.
func (s *Semaphore) Permits() uint32 {
	return s.permits.Load()
}
