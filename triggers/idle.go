package triggers

import (
	"log"
	"sync"
	"time"

	"community-milestones/models"

	"github.com/jonboulle/clockwork"
)

// Visibility is the part of ViewportDetector the coordinators read.
type Visibility interface {
	InViewport() bool
}

// VisibilityNotifier is a Visibility that also reports flips, as ViewportDetector does.
type VisibilityNotifier interface {
	Visibility
	OnChange(fn func(visible bool)) (cancel func())
}

// Environment exposes display and page-load gates, read at the moment they are checked.
type Environment interface {
	ViewportSize() (width, height int)
	PageLoaded() bool
}

// IdleConfig tunes the ambient idle trigger.
type IdleConfig struct {
	Milestone models.Milestone
	Effect    string
	// Debounce collapses bursts of interactions into one "settled" signal.
	Debounce time.Duration
	// Delay is the sustained inactivity required after settling.
	Delay            time.Duration
	MinWidth         int
	RequireLandscape bool
}

// DefaultIdleConfig is the creeper ambient trigger.
func DefaultIdleConfig() IdleConfig {
	m, _ := models.LookupMilestone(models.MilestoneCreeper)
	return IdleConfig{
		Milestone:        m,
		Effect:           "creeper",
		Debounce:         150 * time.Millisecond,
		Delay:            60 * time.Second,
		MinWidth:         1024,
		RequireLandscape: true,
	}
}

// IdlePhase is the idle trigger state.
type IdlePhase int

const (
	IdlePhaseIdle IdlePhase = iota
	IdlePhaseSettling
	IdlePhaseWaiting
	IdlePhaseTriggered
)

func (p IdlePhase) String() string {
	switch p {
	case IdlePhaseIdle:
		return "idle"
	case IdlePhaseSettling:
		return "settling"
	case IdlePhaseWaiting:
		return "waiting"
	case IdlePhaseTriggered:
		return "triggered"
	default:
		return "unknown"
	}
}

// IdleStatus is a point-in-time view of the trigger.
type IdleStatus struct {
	Phase        IdlePhase
	HasTriggered bool
	// DelayArms counts how many times the inactivity delay was started.
	DelayArms int
}

// IdleTrigger fires once per mounted lifetime after sustained inactivity that follows
// at least one interaction.
type IdleTrigger struct {
	cfg     IdleConfig
	deps    Deps
	clock   clockwork.Clock
	input   InputSource
	visible Visibility
	env     Environment

	mu           sync.Mutex
	mounted      bool
	phase        IdlePhase
	hasTriggered bool
	gen          uint64
	debounce     clockwork.Timer
	delay        clockwork.Timer
	delayArms    int
	unsubscribe  func()
}

func NewIdleTrigger(cfg IdleConfig, deps Deps, input InputSource, visible Visibility, env Environment) *IdleTrigger {
	return &IdleTrigger{
		cfg:     cfg,
		deps:    deps,
		clock:   deps.clock(),
		input:   input,
		visible: visible,
		env:     env,
	}
}

// Mount subscribes to the interaction stream.
func (t *IdleTrigger) Mount() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mounted || t.input == nil {
		return
	}
	t.mounted = true
	t.unsubscribe = t.input.Subscribe(t.onInteraction)
}

// Unmount removes the listeners and cancels pending timers.
func (t *IdleTrigger) Unmount() {
	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mounted = false
	t.gen++
	stopTimer(t.debounce)
	stopTimer(t.delay)
	t.debounce, t.delay = nil, nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (t *IdleTrigger) onInteraction(Interaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.mounted || t.hasTriggered {
		return
	}

	// any activity restarts the whole debounce + delay cycle
	t.gen++
	gen := t.gen
	stopTimer(t.delay)
	stopTimer(t.debounce)
	t.delay = nil
	t.phase = IdlePhaseSettling
	t.debounce = t.clock.AfterFunc(t.cfg.Debounce, func() { t.settle(gen) })
}

func (t *IdleTrigger) settle(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || !t.mounted || t.hasTriggered {
		return
	}
	t.debounce = nil
	if !t.gatesOpen() {
		t.phase = IdlePhaseIdle
		return
	}
	t.phase = IdlePhaseWaiting
	t.delayArms++
	t.delay = t.clock.AfterFunc(t.cfg.Delay, func() { t.elapse(gen) })
}

func (t *IdleTrigger) elapse(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.mounted || t.hasTriggered {
		t.mu.Unlock()
		return
	}
	t.delay = nil
	// gates are re-read here: a resize since settling can still suppress the trigger
	if !t.gatesOpen() {
		t.phase = IdlePhaseIdle
		t.mu.Unlock()
		return
	}
	t.phase = IdlePhaseTriggered
	t.hasTriggered = true
	t.mu.Unlock()

	log.Printf("[TRIGGER] 🟩 Idle trigger fired: %s", t.cfg.Milestone.ID)
	t.deps.play(Effect{Name: t.cfg.Effect})
	t.deps.attemptUnlock(t.cfg.Milestone)
}

// AnimationEnded returns to Idle after the reward visual; hasTriggered stays set.
func (t *IdleTrigger) AnimationEnded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == IdlePhaseTriggered {
		t.phase = IdlePhaseIdle
	}
}

// Status returns the current state.
func (t *IdleTrigger) Status() IdleStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return IdleStatus{Phase: t.phase, HasTriggered: t.hasTriggered, DelayArms: t.delayArms}
}

// gatesOpen must be called with t.mu held.
func (t *IdleTrigger) gatesOpen() bool {
	if t.visible == nil || !t.visible.InViewport() {
		return false
	}
	if t.env == nil {
		return true
	}
	if !t.env.PageLoaded() {
		return false
	}
	w, h := t.env.ViewportSize()
	if w < t.cfg.MinWidth {
		return false
	}
	if t.cfg.RequireLandscape && w <= h {
		return false
	}
	return true
}
