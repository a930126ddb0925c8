// Package client wires the unlock engine for one browser session: local cache,
// persistence adapter, unlock guard, remote sync, trigger dependencies and the panel.
package client

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"community-milestones/models"
	"community-milestones/panel"
	"community-milestones/triggers"
	"community-milestones/unlock"
	"community-milestones/workers"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

const defaultCachePath = ".milestones/unlocks.json"

// Config is the session configuration.
type Config struct {
	// APIURL is the remote milestone endpoint; empty means local-only.
	APIURL          string
	ServiceToken    string
	CachePath       string
	RefreshInterval time.Duration
	// Locale is the raw ambient site locale.
	Locale string
}

// ConfigFromEnv loads .env (if any) and reads the MILESTONE_* settings.
func ConfigFromEnv() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on environment")
	}

	cfg := Config{
		APIURL:       os.Getenv("MILESTONE_API_URL"),
		ServiceToken: os.Getenv("SERVICE_TOKEN"),
		CachePath:    os.Getenv("MILESTONE_CACHE_PATH"),
		Locale:       os.Getenv("MILESTONE_LOCALE"),
	}
	if cfg.CachePath == "" {
		cfg.CachePath = defaultCachePath
	}
	if raw := strings.TrimSpace(os.Getenv("MILESTONE_REFRESH_INTERVAL")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Printf("⚠️ Ignoring MILESTONE_REFRESH_INTERVAL=%q: %v", raw, err)
		} else {
			cfg.RefreshInterval = d
		}
	}
	return cfg
}

// Hub owns every long-lived piece of one session.
type Hub struct {
	Adapter  *unlock.Adapter
	Guard    *unlock.Guard
	Remote   *workers.MilestoneSyncClient // nil when local-only
	Inputs   *triggers.InputBus
	Document *panel.ClickBus

	cfg     Config
	clock   clockwork.Clock
	effects triggers.EffectPlayer
	refresh *workers.RefreshJob
	pending sync.WaitGroup
}

// Options carries the collaborators the host page supplies.
type Options struct {
	Clock   clockwork.Clock
	Effects triggers.EffectPlayer
	// Store overrides the file cache (tests use unlock.NewMemoryStore).
	Store unlock.LocalStore
}

// New assembles a session and starts background refresh when a remote is configured.
func New(ctx context.Context, cfg Config, opts Options) (*Hub, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	store := opts.Store
	if store == nil {
		path := cfg.CachePath
		if path == "" {
			path = defaultCachePath
		}
		store = unlock.NewFileStore(path)
	}

	h := &Hub{
		Inputs:   triggers.NewInputBus(),
		Document: panel.NewClickBus(),
		cfg:      cfg,
		clock:    opts.Clock,
		effects:  opts.Effects,
	}

	var remote unlock.Remote
	if cfg.APIURL != "" {
		rc, err := workers.NewMilestoneSyncClient(cfg.APIURL, cfg.ServiceToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync client: %w", err)
		}
		h.Remote = rc
		remote = rc
	} else {
		log.Println("[SYNC] ⚠️ MILESTONE_API_URL not set, unlocks stay local")
	}

	h.Adapter = unlock.NewAdapter(store, remote)
	h.Guard = unlock.NewGuard(h.Adapter)

	if remote != nil {
		job, err := workers.StartRefreshJob(ctx, h.Adapter, cfg.RefreshInterval, nil)
		if err != nil {
			return nil, err
		}
		h.refresh = job
	}
	return h, nil
}

// Deps returns the collaborators every trigger coordinator needs.
func (h *Hub) Deps() triggers.Deps {
	return triggers.Deps{
		Clock:    h.clock,
		Effects:  h.effects,
		Unlocker: h.Guard,
		Locale:   h.cfg.Locale,
		Pending:  &h.pending,
	}
}

// NewIdleTrigger builds the creeper trigger fed by the session's input bus.
func (h *Hub) NewIdleTrigger(visible triggers.Visibility, env triggers.Environment) *triggers.IdleTrigger {
	return triggers.NewIdleTrigger(triggers.DefaultIdleConfig(), h.Deps(), h.Inputs, visible, env)
}

// NewExplosionTrigger builds the click accumulator; view gates its ambient glitch
// (pass the element's ViewportDetector, or nil for always on screen).
func (h *Hub) NewExplosionTrigger(view triggers.Visibility) *triggers.ExplosionTrigger {
	return triggers.NewExplosionTrigger(triggers.DefaultExplosionConfig(), h.Deps(), view)
}

// NewBirthdayHover builds one hover instance; all instances share the birthday cooldown.
func (h *Hub) NewBirthdayHover(qualifying bool) *triggers.HoverTrigger {
	return triggers.NewHoverTrigger(triggers.DefaultBirthdayConfig(), h.Deps(), qualifying)
}

// NewPanel builds the achievement panel in the session locale. translator may be nil.
func (h *Hub) NewPanel(translator panel.Translator) *panel.Panel {
	msgs := panel.NewMessages(unlock.NormalizeLocale(h.cfg.Locale), translator)
	return panel.New(panel.DefaultConfig(), h.Adapter, h.clock, h.Document, msgs)
}

// Locale is the normalized session locale.
func (h *Hub) Locale() models.Locale {
	return unlock.NormalizeLocale(h.cfg.Locale)
}

// Close stops background refresh and waits for running unlock attempts and their
// remote writes. Triggers must be unmounted first.
func (h *Hub) Close() error {
	var err error
	if h.refresh != nil {
		err = h.refresh.Stop()
	}
	h.pending.Wait()
	h.Adapter.Wait()
	return err
}
