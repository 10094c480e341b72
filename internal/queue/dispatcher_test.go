package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type dropCounter struct{ n atomic.Int32 }

func (c *dropCounter) RecordDispatchDropped() { c.n.Add(1) }

func TestDispatcherRunsAndDrains(t *testing.T) {
	d := NewDispatcher(2, 16, nil, nil)
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Submit(func(context.Context) {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		}))
	}
	require.NoError(t, d.Close(context.Background()))
	assert.EqualValues(t, 10, ran.Load())
	assert.ErrorIs(t, d.Submit(func(context.Context) {}), ErrClosed)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	drops := &dropCounter{}
	d := NewDispatcher(1, 1, drops, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, d.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, d.Submit(func(context.Context) {})) // fills the buffer
	assert.ErrorIs(t, d.Submit(func(context.Context) {}), ErrQueueFull)
	assert.EqualValues(t, 1, drops.n.Load())

	close(release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcherSurvivesPanics(t *testing.T) {
	d := NewDispatcher(1, 4, nil, nil)
	var ran atomic.Bool
	require.NoError(t, d.Submit(func(context.Context) { panic("boom") }))
	require.NoError(t, d.Submit(func(context.Context) { ran.Store(true) }))
	require.NoError(t, d.Close(context.Background()))
	assert.True(t, ran.Load())
}

func TestDispatcherCloseTimeoutCancelsTasks(t *testing.T) {
	d := NewDispatcher(1, 1, nil, nil)
	started := make(chan struct{})
	require.NoError(t, d.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
