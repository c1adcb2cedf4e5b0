package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CheckFunc runs one check cycle.
type CheckFunc func(ctx context.Context)

// CheckScheduler runs the check cycle at a fixed interval. A tick that fires
// while the previous cycle is still running is skipped, so cycles never
// overlap.
type CheckScheduler struct {
	cronEngine *cron.Cron
	check      CheckFunc
	interval   time.Duration
	logger     *logrus.Entry
}

func NewCheckScheduler(check CheckFunc, interval time.Duration, logger *logrus.Entry) *CheckScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &CheckScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		check:    check,
		interval: interval,
		logger:   logger,
	}
}

// Start schedules the check. Every cycle runs with ctx, so cancelling it
// interrupts a cycle in flight and lets Stop return without waiting for
// pending network calls.
func (s *CheckScheduler) Start(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("Starting check scheduler")

	s.cronEngine.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.check(ctx)
	}))

	s.cronEngine.Start()
}

// Stop prevents further ticks and waits for a running cycle to return.
func (s *CheckScheduler) Stop() {
	s.logger.Info("Stopping check scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Check scheduler stopped")
}
