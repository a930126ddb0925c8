package triggers

import (
	"log"
	"sync"
	"time"

	"community-milestones/models"

	"github.com/jonboulle/clockwork"
)

// intensityTiers maps consecutive click counts to an escalation tier.
var intensityTiers = []Intensity{
	IntensityNone,
	IntensityLight,
	IntensityMedium,
	IntensityHeavy,
	IntensityExtreme,
}

// IntensityFor returns the tier for a click count, saturating at the top tier.
func IntensityFor(count int) Intensity {
	switch {
	case count <= 0:
		return IntensityNone
	case count >= len(intensityTiers):
		return intensityTiers[len(intensityTiers)-1]
	default:
		return intensityTiers[count]
	}
}

// ExplosionConfig tunes the click accumulator.
type ExplosionConfig struct {
	Milestone         models.Milestone
	Threshold         int
	ResetWindow       time.Duration
	ExplosionDuration time.Duration
	HiddenFor         time.Duration
	// GlitchInterval is the period of the ambient glitch; zero disables it.
	GlitchInterval time.Duration
}

// DefaultExplosionConfig is the glitch/explosion trigger.
func DefaultExplosionConfig() ExplosionConfig {
	m, _ := models.LookupMilestone(models.MilestoneGlitchExplosion)
	return ExplosionConfig{
		Milestone:         m,
		Threshold:         5,
		ResetWindow:       2 * time.Second,
		ExplosionDuration: 1 * time.Second,
		HiddenFor:         5 * time.Second,
		GlitchInterval:    4 * time.Second,
	}
}

// ExplosionStatus is a point-in-time view of the accumulator.
type ExplosionStatus struct {
	Count     int
	Tier      Intensity
	Exploding bool
	Visible   bool
}

// ExplosionTrigger counts rapid clicks and explodes at the threshold.
// While exploding or hidden, clicks are ignored and the glitch does not run.
// The glitch also pauses while the element is outside the viewport.
type ExplosionTrigger struct {
	cfg   ExplosionConfig
	deps  Deps
	clock clockwork.Clock
	view  Visibility

	mu        sync.Mutex
	mounted   bool
	unwatch   func()
	count     int
	tier      Intensity
	exploding bool
	visible   bool

	resetGen  uint64
	glitchGen uint64
	reset     clockwork.Timer
	glitch    clockwork.Timer
	done      clockwork.Timer
	restore   clockwork.Timer
}

// NewExplosionTrigger builds the accumulator. view may be nil, which reads as always
// on screen; a VisibilityNotifier re-arms the glitch when the element scrolls back in.
func NewExplosionTrigger(cfg ExplosionConfig, deps Deps, view Visibility) *ExplosionTrigger {
	return &ExplosionTrigger{
		cfg:     cfg,
		deps:    deps,
		clock:   deps.clock(),
		view:    view,
		visible: true,
	}
}

// Mount starts the ambient glitch.
func (e *ExplosionTrigger) Mount() {
	e.mu.Lock()
	if e.mounted {
		e.mu.Unlock()
		return
	}
	e.mounted = true
	e.scheduleGlitchLocked()
	e.mu.Unlock()

	if n, ok := e.view.(VisibilityNotifier); ok {
		unwatch := n.OnChange(e.onViewportChange)
		e.mu.Lock()
		if e.mounted && e.unwatch == nil {
			e.unwatch, unwatch = unwatch, nil
		}
		e.mu.Unlock()
		if unwatch != nil {
			unwatch()
		}
	}
}

// Unmount cancels every pending timer and stops watching the viewport.
func (e *ExplosionTrigger) Unmount() {
	e.mu.Lock()
	e.mounted = false
	e.resetGen++
	e.glitchGen++
	for _, t := range []clockwork.Timer{e.reset, e.glitch, e.done, e.restore} {
		stopTimer(t)
	}
	e.reset, e.glitch, e.done, e.restore = nil, nil, nil, nil
	unwatch := e.unwatch
	e.unwatch = nil
	e.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
}

func (e *ExplosionTrigger) inViewport() bool {
	return e.view == nil || e.view.InViewport()
}

func (e *ExplosionTrigger) onViewportChange(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return
	}
	if visible {
		e.scheduleGlitchLocked()
		return
	}
	e.glitchGen++
	stopTimer(e.glitch)
	e.glitch = nil
}

// Click registers one click on the element.
func (e *ExplosionTrigger) Click() {
	e.mu.Lock()
	if !e.mounted || e.exploding || !e.visible {
		e.mu.Unlock()
		return
	}

	e.count++
	e.resetGen++
	stopTimer(e.reset)
	e.reset = nil

	if e.count >= e.cfg.Threshold {
		e.exploding = true
		e.visible = false
		e.count = 0
		e.tier = IntensityNone
		e.glitchGen++
		stopTimer(e.glitch)
		e.glitch = nil
		e.done = e.clock.AfterFunc(e.cfg.ExplosionDuration, e.explosionDone)
		e.restore = e.clock.AfterFunc(e.cfg.HiddenFor, e.reappear)
		e.mu.Unlock()

		log.Printf("[TRIGGER] 💥 Click threshold reached: %s", e.cfg.Milestone.ID)
		e.deps.attemptUnlock(e.cfg.Milestone)
		e.deps.play(Effect{Name: "explosion"})
		return
	}

	e.tier = IntensityFor(e.count)
	tier := e.tier
	gen := e.resetGen
	e.reset = e.clock.AfterFunc(e.cfg.ResetWindow, func() { e.resetCount(gen) })
	e.mu.Unlock()

	e.deps.play(Effect{Name: "shake", Intensity: tier})
}

func (e *ExplosionTrigger) resetCount(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.resetGen || !e.mounted {
		return
	}
	e.count = 0
	e.tier = IntensityNone
	e.reset = nil
}

func (e *ExplosionTrigger) explosionDone() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return
	}
	e.exploding = false
	e.done = nil
	e.scheduleGlitchLocked()
}

func (e *ExplosionTrigger) reappear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return
	}
	e.visible = true
	e.restore = nil
	e.scheduleGlitchLocked()
}

// scheduleGlitchLocked arms the next glitch if the element is idle and shown.
func (e *ExplosionTrigger) scheduleGlitchLocked() {
	if e.cfg.GlitchInterval <= 0 || !e.mounted || !e.visible || e.exploding {
		return
	}
	e.glitchGen++
	gen := e.glitchGen
	stopTimer(e.glitch)
	e.glitch = e.clock.AfterFunc(e.cfg.GlitchInterval, func() { e.glitchTick(gen) })
}

func (e *ExplosionTrigger) glitchTick(gen uint64) {
	e.mu.Lock()
	if gen != e.glitchGen || !e.mounted || !e.visible || e.exploding {
		e.mu.Unlock()
		return
	}
	if !e.inViewport() {
		e.glitch = nil
		// a notifier re-arms on the next flip; a plain Visibility is polled
		if _, ok := e.view.(VisibilityNotifier); !ok {
			e.scheduleGlitchLocked()
		}
		e.mu.Unlock()
		return
	}
	e.scheduleGlitchLocked()
	e.mu.Unlock()

	e.deps.play(Effect{Name: "glitch", Intensity: IntensityLight})
}

// Status returns the current state.
func (e *ExplosionTrigger) Status() ExplosionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ExplosionStatus{Count: e.count, Tier: e.tier, Exploding: e.exploding, Visible: e.visible}
}
