package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/smardexporter/internal/snapshot"
)

// Runner runs a single poll cycle.
type Runner interface {
	RunCycle(ctx context.Context) (*snapshot.Snapshot, error)
}

// Scheduler runs cycles on a fixed interval, starting immediately. A cycle
// that is still running when the next one is due causes that one to be
// skipped, so cycles never overlap.
type Scheduler struct {
	ctx      context.Context
	runner   Runner
	interval time.Duration
	timeout  time.Duration
	logger   *logrus.Logger
	cron     *cron.Cron
	job      cron.Job
	wg       sync.WaitGroup
}

func NewScheduler(ctx context.Context, runner Runner, interval time.Duration, logger *logrus.Logger) *Scheduler {
	s := &Scheduler{
		ctx:      ctx,
		runner:   runner,
		interval: interval,
		timeout:  interval,
		logger:   logger,
		cron:     cron.New(),
	}
	s.job = cron.NewChain(
		cron.Recover(cron.PrintfLogger(logger)),
		cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
	).Then(cron.FuncJob(s.collectData))
	return s
}

// Start the scheduler
func (s *Scheduler) Start() error {
	s.cron.Schedule(cron.Every(s.interval), s.job)
	s.cron.Start()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
	return nil
}

// SetCycleTimeout bounds a single cycle. It defaults to the poll interval
// and must be set before Start.
func (s *Scheduler) SetCycleTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// collectData runs one cycle bounded by the cycle timeout.
func (s *Scheduler) collectData() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	// errors are logged by the runner; the next tick retries
	_, _ = s.runner.RunCycle(ctx)
}

// Stop the scheduler and wait for a running cycle to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}
