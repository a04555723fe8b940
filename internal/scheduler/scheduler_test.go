package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func waitRun(t *testing.T, ran <-chan struct{}) {
	t.Helper()
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func countingJob(name string, ran chan<- struct{}, err error) Job {
	return Job{
		Name:     name,
		Interval: time.Minute,
		Run: func(context.Context) error {
			ran <- struct{}{}
			return err
		},
	}
}

func TestSchedulerRunsOnTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := clockwork.NewFakeClock()
	s := New(clock, zap.NewNop())
	ran := make(chan struct{}, 4)
	s.Register(countingJob("tick", ran, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Start(ctx)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	waitRun(t, ran)
	s.Stop()

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "tick", status[0].Name)
	assert.Equal(t, JobIdle, status[0].State)
	assert.Equal(t, 1, status[0].Runs)
	assert.Equal(t, clock.Now(), status[0].LastRun)
	assert.Empty(t, status[0].LastError)
}

func TestSchedulerRunNow(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(clockwork.NewFakeClock(), zap.NewNop())
	ran := make(chan struct{}, 4)
	s.Register(countingJob("manual", ran, nil))

	s.Start(context.Background())
	require.NoError(t, s.RunNow("manual"))
	waitRun(t, ran)

	assert.ErrorIs(t, s.RunNow("missing"), ErrUnknownJob)
	s.Stop()
}

func TestSchedulerRunAtStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := clockwork.NewFakeClock()
	s := New(clock, zap.NewNop())
	ran := make(chan struct{}, 4)
	job := countingJob("eager", ran, nil)
	job.RunAtStart = true
	s.Register(job)

	s.Start(context.Background())
	waitRun(t, ran)
	s.Stop()

	assert.Equal(t, 1, s.Status()[0].Runs)
}

func TestSchedulerRecordsJobError(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(clockwork.NewFakeClock(), zap.NewNop())
	ran := make(chan struct{}, 4)
	s.Register(countingJob("broken", ran, errors.New("boom")))

	s.Start(context.Background())
	require.NoError(t, s.RunNow("broken"))
	waitRun(t, ran)
	s.Stop()

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, JobError, status[0].State)
	assert.Equal(t, "boom", status[0].LastError)
}

func TestSchedulerStopWaitsForRunningJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(clockwork.NewFakeClock(), zap.NewNop())
	started := make(chan struct{})
	release := make(chan struct{})
	s.Register(Job{Name: "slow", Interval: time.Hour, Run: func(ctx context.Context) error {
		close(started)
		<-release
		return ctx.Err()
	}})

	s.Start(context.Background())
	require.NoError(t, s.RunNow("slow"))
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped

	status := s.Status()
	assert.Equal(t, JobIdle, status[0].State, "run context must survive Stop")
}

func TestSchedulerRestart(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(clockwork.NewFakeClock(), zap.NewNop())
	ran := make(chan struct{}, 4)
	s.Register(countingJob("job", ran, nil))

	s.Start(context.Background())
	s.Start(context.Background())
	assert.True(t, s.Running())
	s.Stop()
	s.Stop()
	assert.False(t, s.Running())

	s.Start(context.Background())
	require.NoError(t, s.RunNow("job"))
	waitRun(t, ran)
	s.Stop()
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(clockwork.NewFakeClock(), zap.NewNop())
	s.Register(countingJob("job", make(chan struct{}, 1), nil))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Stop()
}
