package collector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewPollerRejectsBadInput(t *testing.T) {
	_, err := NewPoller("refresh", 0, func(context.Context) {}, nil)
	assert.Error(t, err)

	_, err = NewPoller("refresh", time.Second, nil, nil)
	assert.Error(t, err)
}

func TestPollerRunsTaskOnEveryTick(t *testing.T) {
	var runs atomic.Int32
	p, err := NewPoller("refresh", 10*time.Millisecond, func(context.Context) {
		runs.Add(1)
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	p.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestPollerSlowTaskDoesNotBlockTicks(t *testing.T) {
	var started atomic.Int32
	p, err := NewPoller("refresh", 10*time.Millisecond, func(ctx context.Context) {
		started.Add(1)
		<-ctx.Done()
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	p.Start()
	assert.Eventually(t, func() bool { return started.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	// Stop cancels the hung tasks and waits for them
	p.Stop()
}

func TestPollerTriggerAfterStopIsNoop(t *testing.T) {
	var runs atomic.Int32
	p, err := NewPoller("refresh", time.Hour, func(context.Context) {
		runs.Add(1)
	}, nil)
	require.NoError(t, err)

	p.Start()
	p.Trigger()
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop()
	p.Trigger()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}
