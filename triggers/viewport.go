package triggers

import "sync"

// Element is an opaque handle to a rendered node.
type Element interface {
	// Contains reports whether other is this element or one of its descendants.
	Contains(other Element) bool
}

// IntersectionEntry is one observation delivered by the visibility primitive.
type IntersectionEntry struct {
	IsIntersecting bool
	Ratio          float64
}

// ObserverOptions configures the visibility primitive.
type ObserverOptions struct {
	Threshold  float64
	RootMargin string
}

// Observer is the visibility/intersection primitive provided by the host.
type Observer interface {
	Observe(el Element)
	Unobserve(el Element)
	Disconnect()
}

// ObserverFactory constructs an Observer delivering batches to callback.
type ObserverFactory func(callback func([]IntersectionEntry), opts ObserverOptions) Observer

// ViewportState is the detector lifecycle.
type ViewportState int

const (
	NotObserving ViewportState = iota
	Observing
	Disconnected
)

func (s ViewportState) String() string {
	switch s {
	case Observing:
		return "observing"
	case Disconnected:
		return "disconnected"
	default:
		return "not-observing"
	}
}

// ViewportDetector tracks whether an anchor element is sufficiently visible.
type ViewportDetector struct {
	factory ObserverFactory
	opts    ObserverOptions

	mu         sync.Mutex
	state      ViewportState
	observer   Observer
	inViewport bool
	listeners  map[int]func(bool)
	nextID     int
}

// NewViewportDetector returns a detector in the NotObserving state.
func NewViewportDetector(factory ObserverFactory, opts ObserverOptions) *ViewportDetector {
	return &ViewportDetector{
		factory:   factory,
		opts:      opts,
		listeners: make(map[int]func(bool)),
	}
}

// Mount starts observing anchor. A nil anchor or factory is a silent no-op.
func (d *ViewportDetector) Mount(anchor Element) {
	if anchor == nil || d.factory == nil {
		return
	}

	d.mu.Lock()
	if d.state != NotObserving {
		d.mu.Unlock()
		return
	}
	d.state = Observing
	d.mu.Unlock()

	obs := d.factory(d.handle, d.opts)
	if obs == nil {
		d.mu.Lock()
		d.state = NotObserving
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	if d.state != Observing {
		// unmounted while the observer was being built
		d.mu.Unlock()
		obs.Disconnect()
		return
	}
	d.observer = obs
	d.mu.Unlock()

	obs.Observe(anchor)
}

// Unmount disconnects the observer. Terminal.
func (d *ViewportDetector) Unmount() {
	d.mu.Lock()
	obs := d.observer
	d.observer = nil
	d.state = Disconnected
	d.inViewport = false
	d.listeners = make(map[int]func(bool))
	d.mu.Unlock()

	if obs != nil {
		obs.Disconnect()
	}
}

// handle applies a batch; the last entry in the batch is authoritative. An entry only
// counts as visible once its ratio reaches the configured threshold.
func (d *ViewportDetector) handle(entries []IntersectionEntry) {
	if len(entries) == 0 {
		return
	}
	last := entries[len(entries)-1]
	visible := last.IsIntersecting && last.Ratio >= d.opts.Threshold

	d.mu.Lock()
	if d.state != Observing {
		d.mu.Unlock()
		return
	}
	changed := d.inViewport != visible
	d.inViewport = visible
	fns := make([]func(bool), 0, len(d.listeners))
	if changed {
		for _, fn := range d.listeners {
			fns = append(fns, fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(visible)
	}
}

// InViewport reports the latest observed visibility.
func (d *ViewportDetector) InViewport() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inViewport
}

// State returns the lifecycle state.
func (d *ViewportDetector) State() ViewportState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// OnChange registers fn for visibility flips.
func (d *ViewportDetector) OnChange(fn func(visible bool)) (cancel func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}
