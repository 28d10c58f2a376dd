package database

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockReadersRunConcurrently(t *testing.T) {
	l := newWriterPreferredLock()

	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.True(t, l.lockReaderCtx(context.Background()))
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			l.unlockReader()
		}()
	}
	wg.Wait()

	assert.Greater(t, maxActive, int32(1), "expected multiple readers to hold the lock at once")
}

func TestLockWriterExclusiveAgainstReaders(t *testing.T) {
	l := newWriterPreferredLock()

	require.True(t, l.lockReaderCtx(context.Background()))

	writerDone := make(chan struct{})
	go func() {
		require.True(t, l.lockWriterCtx(context.Background()))
		close(writerDone)
		l.unlockWriter()
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-writerDone:
		t.Fatal("writer acquired the lock while a reader was still active")
	default:
	}

	l.unlockReader()

	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock after the reader released it")
	}
}

func TestLockWriterPreferenceBlocksNewReaders(t *testing.T) {
	l := newWriterPreferredLock()

	require.True(t, l.lockReaderCtx(context.Background()))

	writerAcquired := make(chan struct{})
	go func() {
		require.True(t, l.lockWriterCtx(context.Background()))
		close(writerAcquired)
		time.Sleep(30 * time.Millisecond)
		l.unlockWriter()
	}()

	// Give the writer a chance to register as pending before the new
	// reader shows up.
	time.Sleep(10 * time.Millisecond)

	readerAcquired := make(chan struct{})
	go func() {
		require.True(t, l.lockReaderCtx(context.Background()))
		close(readerAcquired)
		l.unlockReader()
	}()

	l.unlockReader() // release the original reader so the writer can proceed

	select {
	case <-readerAcquired:
		t.Fatal("a new reader acquired the lock ahead of the pending writer")
	case <-writerAcquired:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock")
	}

	select {
	case <-readerAcquired:
	case <-time.After(time.Second):
		t.Fatal("reader never acquired the lock after the writer released it")
	}
}

func TestLockReaderCtxCancellation(t *testing.T) {
	l := newWriterPreferredLock()

	require.True(t, l.lockWriterCtx(context.Background()))
	defer l.unlockWriter()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	acquired := l.lockReaderCtx(ctx)
	assert.False(t, acquired, "reader should not acquire the lock while a writer is active")
}

func TestLockWriterCtxCancellationReleasesPendingSlot(t *testing.T) {
	l := newWriterPreferredLock()

	require.True(t, l.lockReaderCtx(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	acquired := l.lockWriterCtx(ctx)
	assert.False(t, acquired, "writer should not acquire the lock while a reader is active")

	l.unlockReader()

	// A cancelled writer must not leave pendingWriters stuck above zero;
	// a fresh reader should be able to proceed immediately afterward.
	readerCtx, readerCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer readerCancel()
	require.True(t, l.lockReaderCtx(readerCtx))
	l.unlockReader()
}

func TestLockWriterCtxCancellationBeforeAcquire(t *testing.T) {
	l := newWriterPreferredLock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.True(t, l.lockReaderCtx(context.Background()))
	defer l.unlockReader()

	acquired := l.lockWriterCtx(ctx)
	assert.False(t, acquired)
}
