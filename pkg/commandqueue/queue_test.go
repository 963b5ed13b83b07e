package commandqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCommandQueue_BasicEnqueue(t *testing.T) {
	cq := New(zerolog.Nop())
	defer cq.Close()

	executed := false
	task := func(ctx context.Context) (interface{}, error) {
		executed = true
		return "result", nil
	}

	result, err := cq.Enqueue("test", task, nil)

	assert.NoError(t, err)
	assert.Equal(t, "result", result)
	assert.True(t, executed)
}

func TestCommandQueue_TaskError(t *testing.T) {
	cq := New(zerolog.Nop())
	defer cq.Close()

	expectedErr := errors.New("task failed")
	task := func(ctx context.Context) (interface{}, error) {
		return nil, expectedErr
	}

	result, err := cq.Enqueue("test", task, nil)

	assert.Error(t, err)
	assert.Equal(t, expectedErr, err)
	assert.Nil(t, result)
}

func TestCommandQueue_SerialExecutionNeverOverlaps(t *testing.T) {
	cq := New(zerolog.Nop())
	defer cq.Close()

	var running int32
	var maxRunning int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := func(ctx context.Context) (interface{}, error) {
				now := atomic.AddInt32(&running, 1)
				if now > atomic.LoadInt32(&maxRunning) {
					atomic.StoreInt32(&maxRunning, now)
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			}
			_, _ = cq.Enqueue("session-a", task, nil)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning), "tasks on one lane must not overlap")
}

func TestCommandQueue_ConcurrentLanes(t *testing.T) {
	cq := New(zerolog.Nop())
	defer cq.Close()

	start := time.Now()
	var wg sync.WaitGroup

	for _, lane := range []string{"lane1", "lane2", "lane3"} {
		lane := lane
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := func(ctx context.Context) (interface{}, error) {
				time.Sleep(50 * time.Millisecond)
				return nil, nil
			}
			_, _ = cq.Enqueue(lane, task, nil)
		}()
	}

	wg.Wait()
	assert.Less(t, time.Since(start), 150*time.Millisecond, "separate lanes should run in parallel")
}

func TestCommandQueue_SetConcurrency(t *testing.T) {
	cq := New(zerolog.Nop())
	defer cq.Close()

	cq.SetConcurrency("pool", 3)

	var running int32
	var maxRunning int32
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := func(ctx context.Context) (interface{}, error) {
				now := atomic.AddInt32(&running, 1)
				for {
					max := atomic.LoadInt32(&maxRunning)
					if now <= max || atomic.CompareAndSwapInt32(&maxRunning, max, now) {
						break
					}
				}
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			}
			_, _ = cq.Enqueue("pool", task, nil)
		}()
	}

	wg.Wait()
	assert.Greater(t, atomic.LoadInt32(&maxRunning), int32(1))
}

func TestCommandQueue_Stats(t *testing.T) {
	cq := New(zerolog.Nop())
	defer cq.Close()

	_, err := cq.Enqueue("stats-lane", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, nil)
	assert.NoError(t, err)

	stats := cq.Stats()
	assert.Contains(t, stats, "stats-lane")
	assert.Equal(t, 1, stats["stats-lane"]["concurrency"])
	assert.Equal(t, 0, stats["stats-lane"]["running"])
}

func TestCommandQueue_WaitForActive(t *testing.T) {
	cq := New(zerolog.Nop())
	defer cq.Close()

	go func() {
		_, _ = cq.Enqueue("wait", func(ctx context.Context) (interface{}, error) {
			time.Sleep(30 * time.Millisecond)
			return nil, nil
		}, nil)
	}()

	time.Sleep(10 * time.Millisecond)
	assert.True(t, cq.WaitForActive(time.Second))
	assert.Equal(t, 0, cq.RunningCount("wait"))
}
