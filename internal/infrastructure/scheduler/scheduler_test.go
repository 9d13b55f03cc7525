package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name  string
	runs  atomic.Int32
	run   func(ctx context.Context) error
	block chan struct{}
}

func (j *fakeJob) Name() string        { return j.name }
func (j *fakeJob) Description() string { return "test job " + j.name }

func (j *fakeJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if j.run != nil {
		return j.run(ctx)
	}
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	finished map[string]int
	failed   map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{finished: map[string]int{}, failed: map[string]int{}}
}

func (o *recordingObserver) JobFinished(job string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[job]++
	if err != nil {
		o.failed[job]++
	}
}

func (o *recordingObserver) counts(job string) (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finished[job], o.failed[job]
}

func fastScheduler(observer Observer) *Scheduler {
	cfg := DefaultConfig()
	cfg.TickInterval = 5 * time.Millisecond
	cfg.Observer = observer
	return New(cfg)
}

func every(t *testing.T, d time.Duration) Schedule {
	t.Helper()
	s, err := NewIntervalSchedule(d)
	require.NoError(t, err)
	return s
}

func TestScheduler_Register(t *testing.T) {
	s := fastScheduler(nil)
	job := &fakeJob{name: "a"}

	require.NoError(t, s.Register(job, every(t, time.Minute)))
	assert.ErrorIs(t, s.Register(job, every(t, time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, every(t, time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&fakeJob{name: "b"}, nil), ErrNilSchedule)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, "@every 1m0s", infos[0].Schedule)
	assert.True(t, infos[0].Enabled)
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	obs := newRecordingObserver()
	s := fastScheduler(obs)
	job := &fakeJob{name: "tick"}
	require.NoError(t, s.Register(job, every(t, 10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	finished, failed := obs.counts("tick")
	assert.GreaterOrEqual(t, finished, 2)
	assert.Zero(t, failed)
}

func TestScheduler_DoesNotOverlapRuns(t *testing.T) {
	s := fastScheduler(nil)
	job := &fakeJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, every(t, 5*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestScheduler_DisabledJobDoesNotRun(t *testing.T) {
	s := fastScheduler(nil)
	job := &fakeJob{name: "off"}
	require.NoError(t, s.Register(job, every(t, 5*time.Millisecond)))
	require.NoError(t, s.SetEnabled("off", false))
	assert.ErrorIs(t, s.SetEnabled("missing", true), ErrJobNotFound)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Zero(t, job.runs.Load())
}

func TestScheduler_RunNow(t *testing.T) {
	obs := newRecordingObserver()
	s := fastScheduler(obs)
	boom := errors.New("boom")
	job := &fakeJob{name: "manual", run: func(context.Context) error { return boom }}
	require.NoError(t, s.Register(job, every(t, time.Hour)))

	result, err := s.RunNow(context.Background(), "manual")
	assert.ErrorIs(t, err, boom)
	assert.True(t, result.Manual)
	assert.False(t, result.Success())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	info := s.ListJobs()[0]
	assert.Equal(t, int64(1), info.RunCount)
	assert.Equal(t, int64(1), info.FailCount)
	require.NotNil(t, info.LastResult)
	assert.ErrorIs(t, info.LastResult.Error, boom)

	_, failed := obs.counts("manual")
	assert.Equal(t, 1, failed)
	assert.Len(t, s.History(10), 1)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := fastScheduler(nil)
	job := &fakeJob{name: "panics", run: func(context.Context) error { panic("bad") }}
	require.NoError(t, s.Register(job, every(t, time.Hour)))

	_, err := s.RunNow(context.Background(), "panics")
	assert.ErrorIs(t, err, ErrJobPanicked)
}

func TestNewIntervalSchedule(t *testing.T) {
	_, err := NewIntervalSchedule(0)
	assert.Error(t, err)

	s, err := NewIntervalSchedule(time.Minute)
	require.NoError(t, err)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(time.Minute), s.Next(base))
}
