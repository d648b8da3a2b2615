package sched

import (
	"sync"
	"time"
)

// VirtualClock is a deterministic Clock. Time only moves when a task sleeps;
// every period boundary crossed during a Sleep fires the registered isr
// synchronously, in order.
type VirtualClock struct {
	mu      sync.Mutex
	now     time.Duration
	next    time.Duration
	period  time.Duration
	isr     func()
	stopped bool
}

// NewVirtualClock returns a clock at virtual time zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

func (c *VirtualClock) Every(period time.Duration, isr func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if period <= 0 {
		return
	}
	c.period = period
	c.isr = isr
	c.next = c.now + period
	c.stopped = false
}

// Sleep advances virtual time by d.
func (c *VirtualClock) Sleep(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for c.isr != nil && !c.stopped && c.next <= target {
		c.now = c.next
		c.next += c.period
		isr := c.isr
		c.mu.Unlock()
		isr()
		c.mu.Lock()
	}
	if target > c.now {
		c.now = target
	}
	c.mu.Unlock()
}

func (c *VirtualClock) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

// Now returns the elapsed virtual time.
func (c *VirtualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
