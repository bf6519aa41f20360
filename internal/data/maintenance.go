package data

import (
	"time"

	pkglog "GuardLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartCounterSweepCron starts the periodic sweep that evicts expired rate
// windows from the in-process counter store. Redis-backed windows expire
// server-side and need no sweeping.
func StartCounterSweepCron(store *MemoryCounterStore, logger log.Logger) *cron.Cron {
	helper := pkglog.NewLogHelper(logger)

	c := cron.New(cron.WithSeconds())

	// Cron expression: 0 */5 * * * * (sec min hour day month weekday)
	_, err := c.AddFunc("0 */5 * * * *", func() {
		purged := store.PurgeExpired(time.Now())
		helper.Scheduler("counter sweep completed",
			"purged", purged,
			"tracked", store.Len())
	})
	if err != nil {
		helper.Errorw("failed to register counter sweep cron job", "error", err)
		return nil
	}

	c.Start()
	helper.Startup("counter sweep cron job started: runs every 5 minutes")

	return c
}
