package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

type countingCleaner struct{ calls atomic.Int32 }

func (c *countingCleaner) CleanupExpired(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, nil
}

type failingSweeper struct{ calls atomic.Int32 }

func (f *failingSweeper) SweepStale(context.Context) (int64, error) {
	f.calls.Add(1)
	return 0, errors.New("db down")
}

func TestNew_RegistersConfiguredJobs(t *testing.T) {
	s, err := New(&config.SchedulerConfig{
		UploadCleanupCron: "0 */30 * * * *",
		SyncSweepCron:     "",
	}, &countingCleaner{}, &failingSweeper{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(&config.SchedulerConfig{SyncSweepCron: "every five minutes"}, &countingCleaner{}, &failingSweeper{}, zap.NewNop())
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	cleaner, sweeper := &countingCleaner{}, &failingSweeper{}
	s, err := New(&config.SchedulerConfig{
		UploadCleanupCron: "* * * * * *",
		SyncSweepCron:     "* * * * * *",
	}, cleaner, sweeper, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool {
		return cleaner.calls.Load() > 0 && sweeper.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond, "失败的任务不影响后续调度")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
