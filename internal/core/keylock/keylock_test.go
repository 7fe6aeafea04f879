package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SerializesSameKey(t *testing.T) {
	l := New(time.Second)
	ctx := context.Background()

	var counter int
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "item:wh")
			if err != nil {
				t.Error(err)
				return
			}
			defer release()
			// Unsynchronized increment; the lock is the only protection.
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, l.Len(), "entries must be reclaimed after release")
}

func TestAcquire_IndependentKeysDoNotBlock(t *testing.T) {
	l := New(time.Second)
	ctx := context.Background()

	releaseA, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := l.Acquire(ctx, "b")
		require.NoError(t, err)
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("acquisition of an unrelated key blocked behind a held lock")
	}
}

func TestAcquire_TimeoutOnContention(t *testing.T) {
	l := New(50 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "hot")
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(ctx, "hot")
	assert.ErrorIs(t, err, ErrAcquireTimeout)
	// The failed waiter must not leak an entry reference.
	assert.Equal(t, 1, l.Len())
}

func TestAcquire_ContextCancellation(t *testing.T) {
	l := New(time.Minute)

	release, err := l.Acquire(context.Background(), "hot")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := l.Acquire(ctx, "hot")
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	release()
	assert.Equal(t, 0, l.Len())
}

func TestRelease_Idempotent(t *testing.T) {
	l := New(time.Second)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	release()
	release() // second call is a no-op, must not unlock someone else's hold

	release2, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release2()
}
