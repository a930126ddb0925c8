// Package panel implements the achievement menu: unlock progress and the identity
// binding form used to sync unlocks remotely.
package panel

import (
	"context"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"community-milestones/models"
	"community-milestones/triggers"
	"community-milestones/unlock"

	"github.com/jonboulle/clockwork"
)

// Binder is the adapter surface the panel reads and writes.
type Binder interface {
	Milestones() unlock.Snapshot
	Binding() models.UserBinding
	SaveBinding(ctx context.Context, externalID string, ids []string) bool
	Subscribe(fn func(unlock.Snapshot)) (cancel func())
}

// Config tunes the panel.
type Config struct {
	// CloseDelay keeps content rendered while the exit animation runs.
	CloseDelay time.Duration
	// MessageTTL is how long success/failure messages stay visible.
	MessageTTL time.Duration
	// Total is the number of milestones in the catalog.
	Total int
}

func DefaultConfig() Config {
	return Config{
		CloseDelay: 300 * time.Millisecond,
		MessageTTL: 5 * time.Second,
		Total:      models.TotalMilestones(),
	}
}

// SaveStatus is the outcome shown under the binding form.
type SaveStatus int

const (
	StatusNone SaveStatus = iota
	StatusSuccess
	StatusFailure
)

// View is everything the UI needs to render the panel.
type View struct {
	Visible       bool // entry point shown at all
	Open          bool
	Rendered      bool // content mounted (stays true during the close delay)
	Progress      Progress
	UnlockedIDs   []string
	Input         string
	InputError    string
	InputReadOnly bool
	ButtonLabel   string
	SaveDisabled  bool
	Saving        bool
	Status        SaveStatus
	Message       string
}

// Panel is the achievement menu state machine.
type Panel struct {
	cfg    Config
	binder Binder
	clock  clockwork.Clock
	doc    Document
	msgs   *Messages

	mu           sync.Mutex
	root         triggers.Element
	snapshot     unlock.Snapshot
	open         bool
	rendered     bool
	closeGen     uint64
	closeTimer   clockwork.Timer
	input        string
	inputErr     string
	boundID      string
	labelBound   bool // binding state as of the last open
	saving       bool
	savedThisRun bool
	status       SaveStatus
	message      string
	msgGen       uint64
	msgTimer     clockwork.Timer
	removeClick  func()
	unsubscribe  func()
	mountGen     uint64 // bumped on Unmount; a Save that outlives it drops its result
}

func New(cfg Config, binder Binder, clock clockwork.Clock, doc Document, msgs *Messages) *Panel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if msgs == nil {
		msgs = NewMessages(models.FallbackLocale, nil)
	}
	return &Panel{cfg: cfg, binder: binder, clock: clock, doc: doc, msgs: msgs}
}

// Mount reads the current unlock set and follows later changes. root is the panel's
// own subtree, used to ignore clicks inside it.
func (p *Panel) Mount(root triggers.Element) {
	snap := p.binder.Milestones()
	binding := p.binder.Binding()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.root = root
	p.snapshot = snap
	p.boundID = binding.ExternalID
	p.labelBound = binding.Bound()
	if p.unsubscribe == nil {
		p.unsubscribe = p.binder.Subscribe(p.onChange)
	}
}

// Unmount drops every listener and pending timer.
func (p *Panel) Unmount() {
	p.mu.Lock()
	unsubscribe, removeClick := p.unsubscribe, p.removeClick
	p.unsubscribe, p.removeClick = nil, nil
	p.closeGen++
	p.msgGen++
	stopTimer(p.closeTimer)
	stopTimer(p.msgTimer)
	p.closeTimer, p.msgTimer = nil, nil
	p.open, p.rendered = false, false
	p.saving, p.savedThisRun = false, false
	p.status, p.message = StatusNone, ""
	p.mountGen++
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if removeClick != nil {
		removeClick()
	}
}

func (p *Panel) onChange(s unlock.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = s
}

// Toggle opens a closed panel and closes an open one.
func (p *Panel) Toggle() {
	p.mu.Lock()
	open := p.open
	p.mu.Unlock()
	if open {
		p.Close()
	} else {
		p.Open()
	}
}

// Open shows the panel. Nothing happens while no milestone is unlocked.
func (p *Panel) Open() {
	binding := p.binder.Binding()

	p.mu.Lock()
	if p.open || p.snapshot.Count == 0 {
		p.mu.Unlock()
		return
	}
	p.open = true
	p.rendered = true
	p.closeGen++
	stopTimer(p.closeTimer)
	p.closeTimer = nil

	p.boundID = binding.ExternalID
	p.labelBound = binding.Bound()
	p.savedThisRun = false
	if p.labelBound {
		p.input = p.boundID
		p.inputErr = ""
	}
	needClick := p.removeClick == nil && p.doc != nil
	p.mu.Unlock()

	if needClick {
		remove := p.doc.OnClick(p.onDocumentClick)
		p.mu.Lock()
		if p.open && p.removeClick == nil {
			p.removeClick = remove
			remove = nil
		}
		p.mu.Unlock()
		if remove != nil {
			remove()
		}
	}
}

// Close starts the exit animation; content unmounts after CloseDelay.
func (p *Panel) Close() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	p.open = false
	removeClick := p.removeClick
	p.removeClick = nil
	p.closeGen++
	gen := p.closeGen
	stopTimer(p.closeTimer)
	p.closeTimer = p.clock.AfterFunc(p.cfg.CloseDelay, func() { p.finishClose(gen) })
	p.mu.Unlock()

	if removeClick != nil {
		removeClick()
	}
}

func (p *Panel) finishClose(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.closeGen || p.open {
		return
	}
	p.rendered = false
	p.closeTimer = nil
}

func (p *Panel) onDocumentClick(target triggers.Element) {
	p.mu.Lock()
	root := p.root
	p.mu.Unlock()

	if root == nil {
		return
	}
	if target != nil && root.Contains(target) {
		return
	}
	p.Close()
}

// SetInput updates the identity field; it is ignored once an identity is bound.
func (p *Panel) SetInput(value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.boundID != "" {
		return
	}
	p.input = value
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		p.inputErr = ""
	case !unlock.IsValidExternalID(trimmed):
		p.inputErr = p.msgs.Text(KeyInvalidID)
	default:
		p.inputErr = ""
	}
}

// canSaveLocked must be called with p.mu held.
func (p *Panel) canSaveLocked() bool {
	if p.saving || p.savedThisRun {
		return false
	}
	id := p.submitIDLocked()
	return id != "" && unlock.IsValidExternalID(id)
}

func (p *Panel) submitIDLocked() string {
	if p.boundID != "" {
		return p.boundID
	}
	return strings.TrimSpace(p.input)
}

// Save binds (or, once bound, refreshes) the unlock set remotely. Returns the outcome;
// false also covers "save not allowed right now".
func (p *Panel) Save(ctx context.Context) bool {
	p.mu.Lock()
	if !p.canSaveLocked() {
		p.mu.Unlock()
		return false
	}
	p.saving = true
	mountGen := p.mountGen
	id := p.submitIDLocked()
	ids := slices.Clone(p.snapshot.UnlockedIDs)
	p.msgGen++
	stopTimer(p.msgTimer)
	p.msgTimer = nil
	p.status, p.message = StatusNone, ""
	p.mu.Unlock()

	ok := p.binder.SaveBinding(ctx, id, ids)

	p.mu.Lock()
	defer p.mu.Unlock()
	if mountGen != p.mountGen {
		// unmounted while saving; the next Mount reads the binding afresh
		return ok
	}
	p.msgGen++
	gen := p.msgGen
	if ok {
		log.Printf("[PANEL] ✅ Saved %d milestone(s) for %s", len(ids), id)
		p.status = StatusSuccess
		p.message = p.msgs.Text(KeySaved)
		p.boundID = id
		p.input = id
		p.inputErr = ""
		p.saving = false
		p.savedThisRun = true
		p.msgTimer = p.clock.AfterFunc(p.cfg.MessageTTL, func() { p.clearMessage(gen, false) })
		return true
	}

	log.Printf("[PANEL] ❌ Save failed for %s", id)
	p.status = StatusFailure
	p.message = p.msgs.Text(KeySaveError)
	p.msgTimer = p.clock.AfterFunc(p.cfg.MessageTTL, func() { p.clearMessage(gen, true) })
	return false
}

func (p *Panel) clearMessage(gen uint64, releaseSave bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.msgGen {
		return
	}
	p.status, p.message = StatusNone, ""
	if releaseSave {
		p.saving = false
	}
	p.msgTimer = nil
}

// View returns the render state.
func (p *Panel) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := p.msgs.Text(KeySave)
	if p.labelBound {
		label = p.msgs.Text(KeyRefresh)
	}
	return View{
		Visible:       p.snapshot.Count > 0,
		Open:          p.open,
		Rendered:      p.rendered,
		Progress:      ComputeProgress(p.snapshot.Count, p.cfg.Total),
		UnlockedIDs:   slices.Clone(p.snapshot.UnlockedIDs),
		Input:         p.input,
		InputError:    p.inputErr,
		InputReadOnly: p.boundID != "",
		ButtonLabel:   label,
		SaveDisabled:  !p.canSaveLocked(),
		Saving:        p.saving,
		Status:        p.status,
		Message:       p.message,
	}
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}
