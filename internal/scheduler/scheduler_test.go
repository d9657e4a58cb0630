package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Run(t *testing.T) {
	r := NewRegistry()
	r.Register(JobNoShow, func(ctx context.Context) (any, error) {
		return map[string]int{"checked": 2}, nil
	})
	r.Register(JobDumping, func(ctx context.Context) (any, error) {
		return nil, errors.New("db down")
	})

	got, err := r.Run(context.Background(), JobNoShow)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"checked": 2}, got)

	_, err = r.Run(context.Background(), JobDumping)
	assert.EqualError(t, err, "db down")

	_, err = r.Run(context.Background(), "vacuum")
	assert.ErrorIs(t, err, ErrUnknownJob)

	assert.Equal(t, []string{JobNoShow, JobDumping}, r.Names())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(JobDispatch, func(ctx context.Context) (any, error) { return 1, nil })
	r.Register(JobDispatch, func(ctx context.Context) (any, error) { return 2, nil })

	got, err := r.Run(context.Background(), JobDispatch)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Len(t, r.Names(), 1)
}

func TestScheduler_Schedule(t *testing.T) {
	r := NewRegistry()
	r.Register(JobReminders, func(ctx context.Context) (any, error) { return nil, nil })
	s := New(r, time.UTC)

	require.NoError(t, s.Schedule(JobReminders, "5 * * * *"))
	assert.Equal(t, 1, s.Entries())

	assert.ErrorIs(t, s.Schedule("vacuum", "* * * * *"), ErrUnknownJob)
	assert.Error(t, s.Schedule(JobReminders, "every minute"))
	assert.Equal(t, 1, s.Entries())
}

func TestScheduler_RunsJobs(t *testing.T) {
	var runs atomic.Int32
	r := NewRegistry()
	r.Register(JobDispatch, func(ctx context.Context) (any, error) {
		runs.Add(1)
		return nil, nil
	})
	s := New(r, time.UTC)
	require.NoError(t, s.Schedule(JobDispatch, "@every 1s"))

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
