package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartPeriodicSync runs Sync every interval until the returned scheduler is
// shut down. Overlapping runs are skipped.
func (e *Engine) StartPeriodicSync(src Source, interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := e.Sync(ctx, src); err != nil {
				e.Logger.Error("RECONCILE", fmt.Sprintf("periodic sync failed: %v", err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("bank-sync"),
	)
	if err != nil {
		s.Shutdown()
		return nil, fmt.Errorf("failed to schedule bank sync: %w", err)
	}

	s.Start()
	e.Logger.Info("RECONCILE", fmt.Sprintf("periodic bank sync every %s", interval))
	return s, nil
}
