package triggers

import (
	"sync"
	"time"
)

// CooldownGate is a rate limiter shared by every instance of one trigger type.
type CooldownGate struct {
	window time.Duration

	mu        sync.Mutex
	lastFired time.Time
	fired     bool
}

func NewCooldownGate(window time.Duration) *CooldownGate {
	return &CooldownGate{window: window}
}

// TryFire reports whether a firing at now is allowed and, if so, records it.
// Allowed when nothing fired yet or now-lastFired >= window.
func (g *CooldownGate) TryFire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fired && now.Sub(g.lastFired) < g.window {
		return false
	}
	g.lastFired = now
	g.fired = true
	return true
}

// LastFired returns the last firing time and whether any firing happened.
func (g *CooldownGate) LastFired() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastFired, g.fired
}

// process-wide gates keyed by trigger type
var sharedGates = struct {
	sync.Mutex
	byKind map[string]*CooldownGate
}{byKind: make(map[string]*CooldownGate)}

// SharedCooldown returns the process-wide gate for kind, creating it with window on
// first use. Later callers get the existing gate regardless of window.
func SharedCooldown(kind string, window time.Duration) *CooldownGate {
	sharedGates.Lock()
	defer sharedGates.Unlock()
	if g, ok := sharedGates.byKind[kind]; ok {
		return g
	}
	g := NewCooldownGate(window)
	sharedGates.byKind[kind] = g
	return g
}
