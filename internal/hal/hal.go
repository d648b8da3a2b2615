// Package hal holds the hardware collaborators the scheduler drives: the
// shared output line.
package hal

import (
	"fmt"
	"sync"
)

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

// Pin is a virtual output line. It records its level and how many times it
// was driven high.
type Pin struct {
	mu      sync.Mutex
	name    string
	level   bool
	pulses  int
	onWrite func(name string, level bool)
}

// NewPin returns a low pin. onWrite, if set, sees every level change.
func NewPin(name string, onWrite func(name string, level bool)) *Pin {
	return &Pin{name: name, onWrite: onWrite}
}

func (p *Pin) High() { p.write(true) }
func (p *Pin) Low()  { p.write(false) }

func (p *Pin) write(level bool) {
	p.mu.Lock()
	if level && !p.level {
		p.pulses++
	}
	p.level = level
	cb := p.onWrite
	p.mu.Unlock()

	if cb != nil {
		cb(p.name, level)
	}
}

// Name returns the pin label.
func (p *Pin) Name() string { return p.name }

// Level returns the current output level.
func (p *Pin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Pulses returns how many low-to-high transitions the pin has seen.
func (p *Pin) Pulses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pulses
}

// Guard tracks who is inside the guarded region of a shared actuator and
// records every overlap.
type Guard struct {
	mu         sync.Mutex
	holder     int
	held       bool
	entries    int
	violations []string
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Enter marks owner as inside the region.
func (g *Guard) Enter(owner int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		g.violations = append(g.violations, fmt.Sprintf("owner %d entered while %d holds the actuator", owner, g.holder))
	}
	g.holder, g.held = owner, true
	g.entries++
}

// Exit marks owner as having left the region.
func (g *Guard) Exit(owner int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held || g.holder != owner {
		g.violations = append(g.violations, fmt.Sprintf("owner %d left a region it does not hold", owner))
	}
	g.held = false
}

// Entries returns how many times the region was entered.
func (g *Guard) Entries() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entries
}

// Violations returns every recorded overlap.
func (g *Guard) Violations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.violations...)
}
