package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/sirupsen/logrus"
)

var ErrUnknownJob = errors.New("unknown job")

const (
	JobDumping    = "dumping"
	JobNoShow     = "noshow"
	JobReminders  = "reminders"
	JobDispatch   = "dispatch"
	JobSettlement = "settlement"
)

// JobFunc runs one batch job and returns its summary.
type JobFunc func(ctx context.Context) (any, error)

// Registry maps job names to their runners. The scheduler, the cron HTTP
// endpoints and the -job flag all run jobs through it.
type Registry struct {
	jobs  map[string]JobFunc
	names []string
	log   *logrus.Entry
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]JobFunc),
		log:  logrus.WithField("component", "jobs"),
	}
}

// Jobs registers the engine's batch jobs.
func Jobs(
	dumping service.DumpingService,
	noShows service.NoShowService,
	notifications service.NotificationService,
	settlements service.SettlementService,
) *Registry {
	r := NewRegistry()
	r.Register(JobDumping, func(ctx context.Context) (any, error) {
		return dumping.Run(ctx)
	})
	r.Register(JobNoShow, func(ctx context.Context) (any, error) {
		return noShows.Sweep(ctx)
	})
	r.Register(JobReminders, func(ctx context.Context) (any, error) {
		return notifications.RunReminders(ctx)
	})
	r.Register(JobDispatch, func(ctx context.Context) (any, error) {
		return notifications.DispatchDue(ctx)
	})
	r.Register(JobSettlement, func(ctx context.Context) (any, error) {
		return settlements.RunScheduled(ctx)
	})
	return r
}

func (r *Registry) Register(name string, fn JobFunc) {
	if _, ok := r.jobs[name]; !ok {
		r.names = append(r.names, name)
	}
	r.jobs[name] = fn
}

func (r *Registry) Has(name string) bool {
	_, ok := r.jobs[name]
	return ok
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Run(ctx context.Context, name string) (any, error) {
	fn, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	log := r.log.WithField("job", name)
	start := time.Now()
	log.Info("job started")
	summary, err := fn(ctx)
	log = log.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.WithError(err).Error("job failed")
		return nil, err
	}
	log.Info("job finished")
	return summary, nil
}
