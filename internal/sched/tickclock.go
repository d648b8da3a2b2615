// internal/sched/tickclock.go

package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the periodic tick source plus the delay primitive task bodies use
// while holding the actuator.
type Clock interface {
	// Every registers isr to run once per period. Only one registration is kept.
	Every(period time.Duration, isr func())
	// Sleep holds the caller for d.
	Sleep(d time.Duration)
	// Stop cancels the periodic registration. No isr runs once it returns.
	Stop()
}

// TickClock fires ticks from a real time.Ticker and counts them atomically.
// The isr runs on the ticker goroutine.
type TickClock struct {
	count atomic.Int64
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup // ticker goroutines
}

// NewTickClock creates a stopped clock.
func NewTickClock() *TickClock {
	return &TickClock{stop: make(chan struct{})}
}

// Every begins emitting ticks at the given interval.
func (c *TickClock) Every(interval time.Duration, isr func()) {
	ticker := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				isr()
			case <-c.stop:
				return
			}
		}
	}()
}

// Sleep blocks the calling goroutine for d of wall time.
func (c *TickClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Stop signals the clock to stop emitting ticks and waits for an isr that
// is still running to return. It must not be called from the isr.
func (c *TickClock) Stop() {
	c.once.Do(func() { close(c.stop) })
	c.wg.Wait()
}

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}
