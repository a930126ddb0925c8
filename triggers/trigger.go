// Package triggers holds the detectors that decide when a milestone unlock is attempted.
// Every coordinator ends in the same guarded unlock call; none of them tracks unlock state.
package triggers

import (
	"context"
	"log"
	"sync"

	"community-milestones/models"
	"community-milestones/unlock"

	"github.com/jonboulle/clockwork"
)

// Unlocker is satisfied by *unlock.Guard.
type Unlocker interface {
	AttemptUnlock(ctx context.Context, id, imageKey string, locale models.Locale)
}

// Intensity is the escalation tier of a visual effect.
type Intensity string

const (
	IntensityNone    Intensity = ""
	IntensityLight   Intensity = "light"
	IntensityMedium  Intensity = "medium"
	IntensityHeavy   Intensity = "heavy"
	IntensityExtreme Intensity = "extreme"
)

// Effect is a visual reward rendered by the UI collaborator.
type Effect struct {
	Name      string
	Intensity Intensity
}

// EffectPlayer renders effects. Play must not block.
type EffectPlayer interface {
	Play(Effect)
}

// EffectFunc adapts a function to EffectPlayer.
type EffectFunc func(Effect)

func (f EffectFunc) Play(e Effect) { f(e) }

// Deps are the collaborators shared by all coordinators.
type Deps struct {
	Clock    clockwork.Clock
	Effects  EffectPlayer
	Unlocker Unlocker
	// Locale is the raw ambient locale; it is normalized on every unlock.
	Locale string
	// Pending, when set, tracks unlock attempts that are still running.
	Pending *sync.WaitGroup
}

func (d Deps) clock() clockwork.Clock {
	if d.Clock == nil {
		return clockwork.NewRealClock()
	}
	return d.Clock
}

func (d Deps) play(e Effect) {
	if d.Effects != nil {
		d.Effects.Play(e)
	}
}

// attemptUnlock is fire-and-forget: the visual reward never waits on persistence.
func (d Deps) attemptUnlock(m models.Milestone) {
	if d.Unlocker == nil || m.ID == "" {
		return
	}
	locale := unlock.NormalizeLocale(d.Locale)
	if d.Pending != nil {
		d.Pending.Add(1)
	}
	go func() {
		if d.Pending != nil {
			defer d.Pending.Done()
		}
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[TRIGGER] ❌ Unlock of %s panicked: %v", m.ID, r)
			}
		}()
		d.Unlocker.AttemptUnlock(context.Background(), m.ID, m.ImageKey, locale)
	}()
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}
