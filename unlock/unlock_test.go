package unlock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"community-milestones/models"
)

type fakeRemote struct {
	mu          sync.Mutex
	unlocks     []UnlockRequest
	bindings    map[string][]string
	bindErr     error
	unlockErr   error
	fetchResult []string
}

func (f *fakeRemote) SaveUnlock(_ context.Context, req UnlockRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocks = append(f.unlocks, req)
	return f.unlockErr
}

func (f *fakeRemote) SaveBinding(_ context.Context, externalID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bindErr != nil {
		return f.bindErr
	}
	if f.bindings == nil {
		f.bindings = map[string][]string{}
	}
	f.bindings[externalID] = slices.Clone(ids)
	return nil
}

func (f *fakeRemote) FetchUnlocked(_ context.Context, _ string) ([]string, error) {
	return f.fetchResult, nil
}

const validID = "775415193760169995"

func TestIsValidExternalID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{validID, true},
		{"12345678901234567", true},
		{"12345678901234567890", true},
		{"123456789012345678901", false},
		{"invalid", false},
		{"", false},
		{"12345", false},
		{" 775415193760169995", false},
		{"77541519376016999a", false},
	}
	for _, tt := range tests {
		if got := IsValidExternalID(tt.in); got != tt.want {
			t.Errorf("IsValidExternalID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCleanExternalIDTrims(t *testing.T) {
	id, err := CleanExternalID("  " + validID + "\n")
	if err != nil || id != validID {
		t.Fatalf("CleanExternalID() = %q, %v", id, err)
	}
	if _, err := CleanExternalID("abc"); !errors.Is(err, ErrInvalidExternalID) {
		t.Fatalf("expected ErrInvalidExternalID, got %v", err)
	}
}

func TestNormalizeLocale(t *testing.T) {
	tests := map[string]models.Locale{
		"de":    models.LocaleDE,
		"en":    models.LocaleEN,
		"fr":    models.LocaleDE,
		"":      models.LocaleDE,
		"en-US": models.LocaleDE,
		"EN":    models.LocaleDE,
	}
	for in, want := range tests {
		if got := NormalizeLocale(in); got != want {
			t.Errorf("NormalizeLocale(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordUnlockIsIdempotent(t *testing.T) {
	a := NewAdapter(NewMemoryStore(), nil)
	ctx := context.Background()

	a.RecordUnlock(ctx, "creeper", "creeper.webp", models.LocaleDE)
	a.RecordUnlock(ctx, "creeper", "creeper.webp", models.LocaleDE)
	a.RecordUnlock(ctx, "konami", "konami.webp", models.LocaleEN)

	if got := a.UnlockedIDs(); !slices.Equal(got, []string{"creeper", "konami"}) {
		t.Fatalf("UnlockedIDs() = %v", got)
	}
	if a.UnlockedCount() != 2 {
		t.Fatalf("UnlockedCount() = %d, want 2", a.UnlockedCount())
	}
}

func TestCorruptCacheReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unlocks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	a := NewAdapter(NewFileStore(path), nil)
	if a.IsUnlocked("creeper") {
		t.Fatalf("corrupt cache must read as not unlocked")
	}

	a.RecordUnlock(context.Background(), "creeper", "creeper.webp", models.LocaleDE)
	reopened := NewAdapter(NewFileStore(path), nil)
	if !reopened.IsUnlocked("creeper") {
		t.Fatalf("unlock not persisted after overwriting corrupt cache")
	}
}

func TestRemoteFailureIsSwallowed(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save(State{ExternalID: validID})
	remote := &fakeRemote{unlockErr: errors.New("network down")}
	a := NewAdapter(store, remote)

	a.RecordUnlock(context.Background(), "creeper", "creeper.webp", models.LocaleEN)
	a.Wait()

	if !a.IsUnlocked("creeper") {
		t.Fatalf("local unlock must survive a remote failure")
	}
	if len(remote.unlocks) != 1 || remote.unlocks[0].ExternalID != validID || remote.unlocks[0].Locale != models.LocaleEN {
		t.Fatalf("unexpected remote calls: %+v", remote.unlocks)
	}
}

func TestRecordUnlockSkipsRemoteWhenUnbound(t *testing.T) {
	remote := &fakeRemote{}
	a := NewAdapter(NewMemoryStore(), remote)
	a.RecordUnlock(context.Background(), "creeper", "creeper.webp", models.LocaleDE)
	a.Wait()
	if len(remote.unlocks) != 0 {
		t.Fatalf("unbound session must not call the remote, got %d calls", len(remote.unlocks))
	}
}

func TestSaveBinding(t *testing.T) {
	remote := &fakeRemote{}
	a := NewAdapter(NewMemoryStore(), remote)
	ctx := context.Background()
	a.RecordUnlock(ctx, "creeper", "creeper.webp", models.LocaleDE)

	if a.SaveBinding(ctx, "invalid", a.UnlockedIDs()) {
		t.Fatalf("invalid id must not bind")
	}
	if a.Binding().Bound() {
		t.Fatalf("failed save must not cache a binding")
	}

	if !a.SaveBinding(ctx, " "+validID+" ", a.UnlockedIDs()) {
		t.Fatalf("SaveBinding() = false, want true")
	}
	if got := a.Binding().ExternalID; got != validID {
		t.Fatalf("Binding() = %q, want %q", got, validID)
	}
	if !slices.Equal(remote.bindings[validID], []string{"creeper"}) {
		t.Fatalf("remote received %v", remote.bindings[validID])
	}

	a.RecordUnlock(ctx, "konami", "konami.webp", models.LocaleDE)
	a.Wait()
	if !a.Refresh(ctx) {
		t.Fatalf("Refresh() = false")
	}
	if !slices.Equal(remote.bindings[validID], []string{"creeper", "konami"}) {
		t.Fatalf("refresh sent %v", remote.bindings[validID])
	}
}

func TestSaveBindingRemoteFailure(t *testing.T) {
	a := NewAdapter(NewMemoryStore(), &fakeRemote{bindErr: errors.New("500")})
	if a.SaveBinding(context.Background(), validID, nil) {
		t.Fatalf("SaveBinding() = true on remote failure")
	}
	if a.Refresh(context.Background()) {
		t.Fatalf("Refresh() without a binding must fail")
	}
}

func TestPullRemoteMergesKnownIDs(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Save(State{ExternalID: validID, Unlocked: []string{"creeper"}})
	remote := &fakeRemote{fetchResult: []string{"konami", "not-a-milestone", "creeper"}}
	a := NewAdapter(store, remote)

	if err := a.PullRemote(context.Background()); err != nil {
		t.Fatalf("PullRemote failed: %v", err)
	}
	if got := a.UnlockedIDs(); !slices.Equal(got, []string{"creeper", "konami"}) {
		t.Fatalf("UnlockedIDs() = %v", got)
	}

	unbound := NewAdapter(NewMemoryStore(), remote)
	if err := unbound.PullRemote(context.Background()); !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected ErrNotBound, got %v", err)
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	a := NewAdapter(NewMemoryStore(), nil)
	var got []Snapshot
	cancel := a.Subscribe(func(s Snapshot) { got = append(got, s) })

	a.RecordUnlock(context.Background(), "creeper", "creeper.webp", models.LocaleDE)
	a.RecordUnlock(context.Background(), "creeper", "creeper.webp", models.LocaleDE)
	cancel()
	a.RecordUnlock(context.Background(), "konami", "konami.webp", models.LocaleDE)

	if len(got) != 1 || got[0].Count != 1 || got[0].UnlockedIDs[0] != "creeper" {
		t.Fatalf("unexpected notifications: %+v", got)
	}
}

// countingLedger records how many times RecordUnlock was reached.
type countingLedger struct {
	*Adapter
	mu      sync.Mutex
	records int
	checked chan struct{}
	gate    chan struct{}
}

func (c *countingLedger) IsUnlocked(id string) bool {
	unlocked := c.Adapter.IsUnlocked(id)
	if c.gate != nil {
		c.checked <- struct{}{}
		<-c.gate
	}
	return unlocked
}

func (c *countingLedger) RecordUnlock(ctx context.Context, id, imageKey string, locale models.Locale) {
	c.mu.Lock()
	c.records++
	c.mu.Unlock()
	c.Adapter.RecordUnlock(ctx, id, imageKey, locale)
}

func TestGuardRewardsAtMostOnceSequentially(t *testing.T) {
	ledger := &countingLedger{Adapter: NewAdapter(NewMemoryStore(), nil)}
	g := NewGuard(ledger)

	for i := 0; i < 5; i++ {
		g.AttemptUnlock(context.Background(), "creeper", "creeper.webp", models.LocaleDE)
	}
	if ledger.records != 1 {
		t.Fatalf("RecordUnlock reached %d times, want 1", ledger.records)
	}
	if !ledger.Adapter.IsUnlocked("creeper") {
		t.Fatalf("milestone not unlocked")
	}
}

func TestGuardConcurrentCallsMayBothRecord(t *testing.T) {
	ledger := &countingLedger{
		Adapter: NewAdapter(NewMemoryStore(), nil),
		checked: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	g := NewGuard(ledger)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.AttemptUnlock(context.Background(), "creeper", "creeper.webp", models.LocaleDE)
		}()
	}
	// both checks observe "not unlocked" before either records
	<-ledger.checked
	<-ledger.checked
	close(ledger.gate)
	wg.Wait()

	if ledger.records != 2 {
		t.Fatalf("RecordUnlock reached %d times, want 2", ledger.records)
	}
	if got := ledger.Adapter.UnlockedIDs(); !slices.Equal(got, []string{"creeper"}) {
		t.Fatalf("duplicate record must collapse in the set, got %v", got)
	}
}

func TestGuardIgnoresEmptyID(t *testing.T) {
	ledger := &countingLedger{Adapter: NewAdapter(NewMemoryStore(), nil)}
	NewGuard(ledger).AttemptUnlock(context.Background(), "", "", models.LocaleDE)
	var nilGuard *Guard
	nilGuard.AttemptUnlock(context.Background(), "creeper", "", models.LocaleDE)
	if ledger.records != 0 {
		t.Fatalf("empty id must be a no-op")
	}
}
