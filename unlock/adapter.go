package unlock

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"community-milestones/models"
)

const defaultRemoteTimeout = 10 * time.Second

// UnlockRequest is the remote payload for a single unlock.
type UnlockRequest = models.UnlockRequest

// Remote is the remote persistence endpoint.
type Remote interface {
	SaveUnlock(ctx context.Context, req UnlockRequest) error
	SaveBinding(ctx context.Context, externalID string, milestoneIDs []string) error
	FetchUnlocked(ctx context.Context, externalID string) ([]string, error)
}

// Snapshot is what milestone readers (the panel) see.
type Snapshot struct {
	Count       int
	UnlockedIDs []string
}

// Adapter reads and writes the local unlock cache and syncs it with the remote store.
// Nothing on it returns an error to UI callers: failures are logged and degrade to
// "not unlocked" / "not saved".
type Adapter struct {
	store         LocalStore
	remote        Remote
	remoteTimeout time.Duration

	mu       sync.Mutex // serialises read-modify-write of the store
	subMu    sync.Mutex
	subs     map[int]func(Snapshot)
	nextSub  int
	inflight sync.WaitGroup
}

// NewAdapter builds an adapter; remote may be nil for a local-only session.
func NewAdapter(store LocalStore, remote Remote) *Adapter {
	return &Adapter{
		store:         store,
		remote:        remote,
		remoteTimeout: defaultRemoteTimeout,
		subs:          make(map[int]func(Snapshot)),
	}
}

// SetRemoteTimeout bounds each remote call.
func (a *Adapter) SetRemoteTimeout(d time.Duration) {
	a.remoteTimeout = d
}

func (a *Adapter) load() State {
	st, err := a.store.Load()
	if err != nil {
		log.Printf("[UNLOCK] ⚠️ Local cache unreadable, treating as empty: %v", err)
		return State{Version: stateVersion}
	}
	return st
}

// IsUnlocked reports whether id is in the local unlock set. A missing or corrupt
// cache reads as "not unlocked" so the milestone stays achievable.
func (a *Adapter) IsUnlocked(id string) bool {
	return a.load().Has(id)
}

// RecordUnlock adds id to the local set (idempotent) and starts a best-effort remote
// persist when an identity is bound. It never blocks on the network.
func (a *Adapter) RecordUnlock(ctx context.Context, id, imageKey string, locale models.Locale) {
	a.mu.Lock()
	st := a.load()
	added := st.Union(id)
	if added {
		if err := a.store.Save(st); err != nil {
			log.Printf("[UNLOCK] ❌ Failed to write unlock %q locally: %v", id, err)
		}
	}
	a.mu.Unlock()

	if added {
		log.Printf("[UNLOCK] ✅ Milestone unlocked: %s (%d total)", id, len(st.Unlocked))
		a.notify(Snapshot{Count: len(st.Unlocked), UnlockedIDs: slices.Clone(st.Unlocked)})
	}

	if a.remote == nil || st.ExternalID == "" {
		return
	}

	req := UnlockRequest{
		ExternalID:  st.ExternalID,
		MilestoneID: id,
		ImageKey:    imageKey,
		Locale:      locale,
	}
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.remoteTimeout)
		defer cancel()
		if err := a.remote.SaveUnlock(rctx, req); err != nil {
			log.Printf("[UNLOCK] ⚠️ Remote persist of %q for %s failed (ignored): %v", id, req.ExternalID, err)
		}
	}()
}

// Wait blocks until every in-flight remote persist has finished. Callers must make sure
// no RecordUnlock is running concurrently.
func (a *Adapter) Wait() {
	a.inflight.Wait()
}

// UnlockedIDs returns the unlock set in unlock order.
func (a *Adapter) UnlockedIDs() []string {
	return a.load().Unlocked
}

// UnlockedCount returns the size of the unlock set.
func (a *Adapter) UnlockedCount() int {
	return len(a.load().Unlocked)
}

// Milestones is the read side used by the panel.
func (a *Adapter) Milestones() Snapshot {
	st := a.load()
	return Snapshot{Count: len(st.Unlocked), UnlockedIDs: st.Unlocked}
}

// Binding returns the locally cached identity.
func (a *Adapter) Binding() models.UserBinding {
	return models.UserBinding{ExternalID: a.load().ExternalID}
}

// SaveBinding associates ids with externalID on the remote store. On success the identity
// is cached locally. Returns false on invalid input or any failure; never panics.
func (a *Adapter) SaveBinding(ctx context.Context, externalID string, ids []string) bool {
	id, err := CleanExternalID(externalID)
	if err != nil {
		log.Printf("[UNLOCK] 🚫 Refusing to bind invalid external id")
		return false
	}
	if a.remote == nil {
		log.Printf("[UNLOCK] ⚠️ No remote configured, cannot bind %s", id)
		return false
	}

	rctx, cancel := context.WithTimeout(ctx, a.remoteTimeout)
	defer cancel()
	if err := a.remote.SaveBinding(rctx, id, ids); err != nil {
		log.Printf("[UNLOCK] ❌ Binding %d milestone(s) to %s failed: %v", len(ids), id, err)
		return false
	}

	a.mu.Lock()
	st := a.load()
	st.ExternalID = id
	st.Union(ids...)
	saveErr := a.store.Save(st)
	a.mu.Unlock()
	if saveErr != nil {
		log.Printf("[UNLOCK] ⚠️ Bound %s remotely but failed to cache binding: %v", id, saveErr)
	}

	log.Printf("[UNLOCK] ✅ Bound %d milestone(s) to %s", len(ids), id)
	a.notify(Snapshot{Count: len(st.Unlocked), UnlockedIDs: slices.Clone(st.Unlocked)})
	return true
}

// Refresh re-syncs the current unlock set under the already bound identity.
func (a *Adapter) Refresh(ctx context.Context) bool {
	st := a.load()
	if st.ExternalID == "" {
		return false
	}
	return a.SaveBinding(ctx, st.ExternalID, st.Unlocked)
}

// Merge unions ids into the local set. Returns true when anything was added.
func (a *Adapter) Merge(ids []string) bool {
	a.mu.Lock()
	st := a.load()
	added := st.Union(ids...)
	var saveErr error
	if added {
		saveErr = a.store.Save(st)
	}
	a.mu.Unlock()

	if saveErr != nil {
		log.Printf("[UNLOCK] ❌ Failed to write merged unlock set: %v", saveErr)
		return false
	}
	if added {
		a.notify(Snapshot{Count: len(st.Unlocked), UnlockedIDs: slices.Clone(st.Unlocked)})
	}
	return added
}

// ErrNotBound is returned by PullRemote before any identity has been saved.
var ErrNotBound = errors.New("no identity bound")

// PullRemote fetches the remote set for the bound identity and merges it locally.
func (a *Adapter) PullRemote(ctx context.Context) error {
	st := a.load()
	if st.ExternalID == "" {
		return ErrNotBound
	}
	if a.remote == nil {
		return errors.New("no remote configured")
	}

	rctx, cancel := context.WithTimeout(ctx, a.remoteTimeout)
	defer cancel()
	ids, err := a.remote.FetchUnlocked(rctx, st.ExternalID)
	if err != nil {
		return err
	}

	known := ids[:0:0]
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := models.LookupMilestone(id); ok {
			known = append(known, id)
		}
	}
	if a.Merge(known) {
		log.Printf("[SYNC] 📥 Merged remote unlocks for %s", st.ExternalID)
	}
	return nil
}

// Subscribe registers fn for every change of the unlock set or binding.
func (a *Adapter) Subscribe(fn func(Snapshot)) (cancel func()) {
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subs, id)
		a.subMu.Unlock()
	}
}

func (a *Adapter) notify(s Snapshot) {
	a.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.subMu.Unlock()

	for _, fn := range fns {
		fn(Snapshot{Count: s.Count, UnlockedIDs: slices.Clone(s.UnlockedIDs)})
	}
}
