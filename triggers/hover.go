package triggers

import (
	"log"
	"sync"
	"time"

	"community-milestones/models"

	"github.com/jonboulle/clockwork"
)

// HoverConfig tunes a cooldown-gated hover trigger.
type HoverConfig struct {
	Milestone models.Milestone
	// Kind keys the shared cooldown; every instance of a kind contends for one window.
	Kind           string
	Cooldown       time.Duration
	SecondaryDelay time.Duration
	Primary        Effect
	Secondary      Effect
}

// DefaultBirthdayConfig is the birthday confetti trigger on member cards.
func DefaultBirthdayConfig() HoverConfig {
	m, _ := models.LookupMilestone(models.MilestoneBirthdayConfetti)
	return HoverConfig{
		Milestone:      m,
		Kind:           "birthday",
		Cooldown:       3 * time.Second,
		SecondaryDelay: 100 * time.Millisecond,
		Primary:        Effect{Name: "confetti", Intensity: IntensityHeavy},
		Secondary:      Effect{Name: "confetti", Intensity: IntensityLight},
	}
}

// HoverTrigger is one instance (e.g. one member card). It only rate-limits the visual;
// at-most-once unlocking is the guard's job.
type HoverTrigger struct {
	cfg        HoverConfig
	deps       Deps
	clock      clockwork.Clock
	gate       *CooldownGate
	qualifying bool

	mu        sync.Mutex
	mounted   bool
	secondary clockwork.Timer
}

// NewHoverTrigger binds an instance to the shared gate for cfg.Kind. Non-qualifying
// instances (e.g. cards without the special rank) never fire.
func NewHoverTrigger(cfg HoverConfig, deps Deps, qualifying bool) *HoverTrigger {
	return &HoverTrigger{
		cfg:        cfg,
		deps:       deps,
		clock:      deps.clock(),
		gate:       SharedCooldown(cfg.Kind, cfg.Cooldown),
		qualifying: qualifying,
		mounted:    true,
	}
}

// HoverEnter fires the reward if the shared cooldown allows it. Returns whether it fired.
func (h *HoverTrigger) HoverEnter() bool {
	h.mu.Lock()
	if !h.mounted || !h.qualifying {
		h.mu.Unlock()
		return false
	}
	if !h.gate.TryFire(h.clock.Now()) {
		h.mu.Unlock()
		return false
	}
	stopTimer(h.secondary)
	h.secondary = h.clock.AfterFunc(h.cfg.SecondaryDelay, h.fireSecondary)
	h.mu.Unlock()

	log.Printf("[TRIGGER] 🎉 Hover reward fired: %s", h.cfg.Kind)
	h.deps.play(h.cfg.Primary)
	h.deps.attemptUnlock(h.cfg.Milestone)
	return true
}

func (h *HoverTrigger) fireSecondary() {
	h.mu.Lock()
	if !h.mounted {
		h.mu.Unlock()
		return
	}
	h.secondary = nil
	h.mu.Unlock()

	h.deps.play(h.cfg.Secondary)
}

// Unmount cancels the pending secondary effect.
func (h *HoverTrigger) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mounted = false
	stopTimer(h.secondary)
	h.secondary = nil
}
