package triggers

import "sync"

// Interaction is a normalized user-activity signal.
type Interaction int

const (
	PointerMove Interaction = iota
	KeyPress
	Scroll
	Touch
)

func (i Interaction) String() string {
	switch i {
	case PointerMove:
		return "pointermove"
	case KeyPress:
		return "keydown"
	case Scroll:
		return "scroll"
	case Touch:
		return "touchstart"
	default:
		return "unknown"
	}
}

// InputSource delivers interactions from the document-level listeners.
type InputSource interface {
	Subscribe(fn func(Interaction)) (unsubscribe func())
}

// InputBus fans raw host events out to subscribers as one stream.
type InputBus struct {
	mu     sync.Mutex
	subs   map[int]func(Interaction)
	nextID int
}

func NewInputBus() *InputBus {
	return &InputBus{subs: make(map[int]func(Interaction))}
}

func (b *InputBus) Subscribe(fn func(Interaction)) func() {
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

// Emit forwards one raw event.
func (b *InputBus) Emit(i Interaction) {
	b.mu.Lock()
	fns := make([]func(Interaction), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(i)
	}
}

// Listeners returns the number of live subscriptions.
func (b *InputBus) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
