package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPool_RunsAllJobs(t *testing.T) {
	p := NewPool(2, time.Second, zap.NewNop())
	var n int32
	for i := 0; i < 10; i++ {
		assert.NoError(t, p.Submit("inc", func(context.Context) { atomic.AddInt32(&n, 1) }))
	}
	p.Wait()
	assert.Equal(t, int32(10), atomic.LoadInt32(&n))
}

func TestPool_BoundedConcurrency(t *testing.T) {
	p := NewPool(2, 0, zap.NewNop())
	var running, peak int32
	for i := 0; i < 8; i++ {
		_ = p.Submit("busy", func(context.Context) {
			cur := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		})
	}
	p.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPool_JobTimeout(t *testing.T) {
	p := NewPool(1, 20*time.Millisecond, zap.NewNop())
	var expired int32
	_ = p.Submit("slow", func(ctx context.Context) {
		<-ctx.Done()
		atomic.StoreInt32(&expired, 1)
	})
	p.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&expired))
}

func TestPool_PanicRecovered(t *testing.T) {
	p := NewPool(1, 0, zap.NewNop())
	_ = p.Submit("panic", func(context.Context) { panic("boom") })
	p.Wait()

	var ran bool
	_ = p.Submit("after", func(context.Context) { ran = true })
	p.Wait()
	assert.True(t, ran)
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := NewPool(1, 0, zap.NewNop())
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, p.Submit("late", func(context.Context) {}), ErrPoolClosed)
}
