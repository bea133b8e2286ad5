package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLoop(t *testing.T) (*Loop, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l, ctx
}

func TestLoop_RunsInPostOrder(t *testing.T) {
	l, ctx := runLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	require.NoError(t, l.Do(ctx, func() {}))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_PostFromHandlerDoesNotBlock(t *testing.T) {
	l, ctx := runLoop(t)

	ran := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(ran) })
	})

	select {
	case <-ran:
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("nested post never ran")
	}
}

func TestLoop_ConcurrentPostersAreSerialized(t *testing.T) {
	l, ctx := runLoop(t)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()
	require.NoError(t, l.Do(ctx, func() {}))
	assert.Equal(t, 800, counter)
}

func TestLoop_DoHonorsContext(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, l.Do(ctx, func() {}), context.DeadlineExceeded)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)

	l.Post(func() { t.Error("posted after close") })
}
