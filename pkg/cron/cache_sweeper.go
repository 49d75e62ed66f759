package cron

import (
	"log"

	"github.com/robfig/cron/v3"
)

// Sweeper is implemented by cache backends that hold expired entries until
// they are swept.
type Sweeper interface {
	Sweep() int
}

// DefaultSweepSchedule runs every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// InitCacheSweeperCron schedules periodic removal of expired cache entries
// and starts the scheduler. Callers stop it on shutdown.
func InitCacheSweeperCron(store Sweeper, schedule string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		sweepCache(store)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}

func sweepCache(store Sweeper) {
	if removed := store.Sweep(); removed > 0 {
		log.Printf("Cache sweeper removed %d expired entries", removed)
	}
}
