package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs registered jobs on cron specs in the course time zone. A job
// whose previous run is still going is skipped.
type Scheduler struct {
	cron *cron.Cron
	jobs *Registry
	log  *logrus.Entry
}

func New(jobs *Registry, loc *time.Location) *Scheduler {
	log := logrus.WithField("component", "scheduler")
	logger := cron.PrintfLogger(log)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs: jobs,
		log:  log,
	}
}

func (s *Scheduler) Schedule(name, spec string) error {
	if !s.jobs.Has(name) {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	_, err := s.cron.AddFunc(spec, func() {
		// Failures are logged by the registry; the next tick retries.
		_, _ = s.jobs.Run(context.Background(), name)
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.log.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("job scheduled")
	return nil
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("stopped before running jobs finished")
	}
}
