package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepCheck returns a check that holds each item for d and tracks how many
// items run at once
func sleepCheck(d time.Duration, current, peak *atomic.Int32) CheckFunc {
	return func(ctx context.Context, item string) *model.Report {
		n := current.Add(1)
		defer current.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return &model.Report{Status: model.StatusError, Error: ctx.Err().Error()}
		}
		return &model.Report{Status: model.StatusCompleted, Subject: item}
	}
}

func submitChecks(p *Pool, n int, check CheckFunc) {
	for i := 0; i < n; i++ {
		p.Submit(&CheckJob{Index: i, Item: "claim", Check: check})
	}
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	assert.Equal(t, 5, NewPool(context.Background(), 5).workers)
	assert.Equal(t, 1, NewPool(context.Background(), 0).workers)
	assert.Equal(t, 1, NewPool(context.Background(), -3).workers)
}

func TestPool_RunsEveryJob(t *testing.T) {
	var current, peak atomic.Int32
	pool := NewPool(context.Background(), 3)
	pool.Start()
	submitChecks(pool, 12, sleepCheck(time.Millisecond, &current, &peak))

	results := pool.Wait()
	require.Len(t, results, 12)
	for _, r := range results {
		assert.NoError(t, r.GetError())
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	pool := NewPool(context.Background(), 4)
	pool.Start()
	submitChecks(pool, 40, sleepCheck(5*time.Millisecond, &current, &peak))
	pool.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestPool_ErrorReportsSurface(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Submit(&CheckJob{Index: 0, Item: "ok", Check: mockCheck})
	pool.Submit(&CheckJob{Index: 1, Item: "fail", Check: mockCheck})

	failed := 0
	for _, r := range pool.Wait() {
		if r.GetError() != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestPool_SubmitAfterShutdownReturns(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.Submit(&CheckJob{Item: "late", Check: mockCheck})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after Shutdown")
	}
}

func TestPool_ShutdownInterruptsRunningJob(t *testing.T) {
	started := make(chan struct{})
	pool := NewPool(context.Background(), 1)
	pool.Start()
	pool.Submit(&CheckJob{Item: "slow", Check: func(ctx context.Context, item string) *model.Report {
		close(started)
		<-ctx.Done()
		return &model.Report{Status: model.StatusError, Error: "cancelled"}
	}})
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return")
	}
}

func TestPool_ManyJobsDoNotBlockSubmit(t *testing.T) {
	var current, peak atomic.Int32
	pool := NewPool(context.Background(), 2)
	pool.Start()

	done := make(chan []Result)
	go func() {
		submitChecks(pool, 500, sleepCheck(0, &current, &peak))
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		assert.Len(t, results, 500)
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked past the queue buffer")
	}
}

func TestPool_ParentCancelUnblocksWait(t *testing.T) {
	var current, peak atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	cancel()
	submitChecks(pool, 1, sleepCheck(time.Second, &current, &peak))

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after parent cancellation")
	}
}

func TestResultCollector_ReturnsCopy(t *testing.T) {
	c := NewResultCollector()
	c.Add(&CheckResult{Index: 0})
	c.Add(&CheckResult{Index: 1})

	res := c.Results()
	require.Len(t, res, 2)
	res[0] = nil
	assert.NotNil(t, c.Results()[0])
}
