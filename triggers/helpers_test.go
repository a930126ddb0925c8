package triggers

import (
	"context"
	"sync"
	"testing"
	"time"

	"community-milestones/models"
)

type effectLog struct {
	mu      sync.Mutex
	effects []Effect
}

func (l *effectLog) Play(e Effect) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.effects = append(l.effects, e)
}

func (l *effectLog) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.effects {
		if e.Name == name {
			n++
		}
	}
	return n
}

func (l *effectLog) last() Effect {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.effects) == 0 {
		return Effect{}
	}
	return l.effects[len(l.effects)-1]
}

type unlockCall struct {
	id, imageKey string
	locale       models.Locale
}

type unlockLog struct {
	mu    sync.Mutex
	calls []unlockCall
}

func (l *unlockLog) AttemptUnlock(_ context.Context, id, imageKey string, locale models.Locale) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, unlockCall{id, imageKey, locale})
}

func (l *unlockLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *unlockLog) first() unlockCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[0]
}

// eventually polls cond; timer callbacks run on their own goroutines.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// settleCallbacks gives already-fired callbacks a chance to run before a negative check.
func settleCallbacks() {
	time.Sleep(20 * time.Millisecond)
}

type fakeElement struct{ name string }

func (e *fakeElement) Contains(other Element) bool {
	o, ok := other.(*fakeElement)
	return ok && o == e
}

type fakeObserver struct {
	mu           sync.Mutex
	callback     func([]IntersectionEntry)
	opts         ObserverOptions
	observed     []Element
	disconnected bool
}

func (o *fakeObserver) Observe(el Element) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observed = append(o.observed, el)
}

func (o *fakeObserver) Unobserve(Element) {}

func (o *fakeObserver) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disconnected = true
}

func (o *fakeObserver) deliver(entries ...IntersectionEntry) {
	o.callback(entries)
}

func newFakeFactory() (*fakeObserver, ObserverFactory) {
	obs := &fakeObserver{}
	return obs, func(cb func([]IntersectionEntry), opts ObserverOptions) Observer {
		obs.callback = cb
		obs.opts = opts
		return obs
	}
}

// staticVisibility is a Visibility that can be flipped by tests.
type staticVisibility struct {
	mu      sync.Mutex
	visible bool
}

func (v *staticVisibility) InViewport() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

type fakeEnv struct {
	mu            sync.Mutex
	width, height int
	loaded        bool
}

func (e *fakeEnv) ViewportSize() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height
}

func (e *fakeEnv) PageLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

func (e *fakeEnv) resize(w, h int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width, e.height = w, h
}
