// workers/refresh_job.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"community-milestones/unlock"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// DefaultRefreshInterval is how often a bound session pulls its remote unlock set.
const DefaultRefreshInterval = 10 * time.Minute

// Puller merges the remote unlock set into the local one.
type Puller interface {
	PullRemote(ctx context.Context) error
}

// RefreshJob periodically merges remote unlocks into the local cache.
type RefreshJob struct {
	sched  gocron.Scheduler
	cancel context.CancelFunc
}

// StartRefreshJob runs puller once right away and then every interval
// (DefaultRefreshInterval when <= 0).
// clock may be nil for the real clock.
func StartRefreshJob(ctx context.Context, puller Puller, interval time.Duration, clock clockwork.Clock) (*RefreshJob, error) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	opts := []gocron.SchedulerOption{}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh scheduler: %w", err)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			err := puller.PullRemote(jobCtx)
			switch {
			case err == nil:
			case errors.Is(err, unlock.ErrNotBound):
				// nothing to pull until the panel saves an identity
			case errors.Is(err, context.Canceled):
			default:
				log.Printf("[SYNC] ⚠️ Background refresh failed (ignored): %v", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("milestone-refresh"),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule refresh job: %w", err)
	}

	sched.Start()
	log.Printf("[SYNC] 🔁 Milestone refresh every %s", interval)
	return &RefreshJob{sched: sched, cancel: cancel}, nil
}

// Stop cancels a running pull and shuts the scheduler down.
func (j *RefreshJob) Stop() error {
	if j == nil {
		return nil
	}
	j.cancel()
	return j.sched.Shutdown()
}
