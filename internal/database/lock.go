package database

import "context"

// writerPreferredLock is a reader/writer gate where a waiting writer
// blocks new readers from acquiring the lock, preventing writer
// starvation under sustained read load (spec.md §5). sync.RWMutex alone
// does not guarantee this on all platforms, so the preference is tracked
// explicitly with a pending-writer counter.
type writerPreferredLock struct {
	mu             chan struct{} // 1-buffered binary semaphore guarding the fields below
	readers        int
	writerActive   bool
	pendingWriters int
	readerReady    chan struct{} // closed/reopened signal for readers waiting on writers to drain
	writerReady    chan struct{} // closed/reopened signal for the writer waiting on readers/writer to drain
}

func newWriterPreferredLock() *writerPreferredLock {
	l := &writerPreferredLock{
		mu:          make(chan struct{}, 1),
		readerReady: make(chan struct{}),
		writerReady: make(chan struct{}),
	}
	l.mu <- struct{}{}
	close(l.readerReady)
	close(l.writerReady)
	return l
}

func (l *writerPreferredLock) lock() {
	<-l.mu
}

func (l *writerPreferredLock) unlock() {
	l.mu <- struct{}{}
}

// lockReaderCtx blocks until a read slot is available: no active writer
// and no pending writer. Returns false if ctx is cancelled first.
func (l *writerPreferredLock) lockReaderCtx(ctx context.Context) bool {
	for {
		l.lock()
		if !l.writerActive && l.pendingWriters == 0 {
			l.readers++
			l.unlock()
			return true
		}
		wait := l.readerReady
		l.unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return false
		}
	}
}

func (l *writerPreferredLock) unlockReader() {
	l.lock()
	l.readers--
	if l.readers == 0 {
		old := l.writerReady
		l.writerReady = make(chan struct{})
		close(old)
	}
	l.unlock()
}

// lockWriterCtx registers as a pending writer immediately (so subsequent
// readers block), then waits for the lock to become fully idle.
func (l *writerPreferredLock) lockWriterCtx(ctx context.Context) bool {
	l.lock()
	l.pendingWriters++
	if l.readers == 0 && !l.writerActive {
		l.writerActive = true
		l.pendingWriters--
		l.unlock()
		return true
	}
	l.unlock()

	for {
		l.lock()
		wait := l.writerReady
		if l.readers == 0 && !l.writerActive {
			l.writerActive = true
			l.pendingWriters--
			l.unlock()
			return true
		}
		l.unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			l.lock()
			l.pendingWriters--
			if l.pendingWriters == 0 {
				old := l.readerReady
				l.readerReady = make(chan struct{})
				close(old)
			}
			l.unlock()
			return false
		}
	}
}

func (l *writerPreferredLock) unlockWriter() {
	l.lock()
	l.writerActive = false
	oldWriterReady := l.writerReady
	l.writerReady = make(chan struct{})
	close(oldWriterReady)
	if l.pendingWriters == 0 {
		oldReaderReady := l.readerReady
		l.readerReady = make(chan struct{})
		close(oldReaderReady)
	}
	l.unlock()
}

// lockWriter blocks uncancellably, used by Flush which already runs
// under its own context check before entering.
func (l *writerPreferredLock) lockWriter() {
	l.lockWriterCtx(context.Background())
}
