package panel

import (
	"sync"

	"community-milestones/triggers"
)

// Document delivers document-level clicks.
type Document interface {
	OnClick(fn func(target triggers.Element)) (remove func())
}

// ClickBus is a Document fed by the host's global click listener.
type ClickBus struct {
	mu     sync.Mutex
	subs   map[int]func(triggers.Element)
	nextID int
}

func NewClickBus() *ClickBus {
	return &ClickBus{subs: make(map[int]func(triggers.Element))}
}

func (b *ClickBus) OnClick(fn func(triggers.Element)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Click dispatches one click on target.
func (b *ClickBus) Click(target triggers.Element) {
	b.mu.Lock()
	fns := make([]func(triggers.Element), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(target)
	}
}

// Listeners returns the number of registered click handlers.
func (b *ClickBus) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
