package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDriver(t *testing.T, mode Mode, path string) *Driver {
	t.Helper()
	d, err := Open(context.Background(), t.Name(), mode, path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Dispose(context.Background()) })
	return d
}

func TestOpenInMemoryLifecycle(t *testing.T) {
	d := openTestDriver(t, ModeInMemory, "")
	ctx := context.Background()

	err := d.ExecuteRead(ctx, func(tx *sql.Tx) error {
		var n int
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	})
	require.NoError(t, err)

	require.NoError(t, d.Close(ctx))
	assert.True(t, Is(d.ExecuteRead(ctx, func(tx *sql.Tx) error { return nil }), KindNotOpen))
}

func TestOpenOnDiskRejectsConcurrentReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	ctx := context.Background()

	first, err := Open(ctx, "first", ModeOnDisk, path)
	require.NoError(t, err)
	defer first.Dispose(ctx)

	_, err = Open(ctx, "second", ModeOnDisk, path)
	require.Error(t, err)
	assert.True(t, Is(err, KindAlreadyOpen))

	require.NoError(t, first.Close(ctx))

	reopened, err := Open(ctx, "third", ModeOnDisk, path)
	require.NoError(t, err)
	defer reopened.Dispose(ctx)
}

func TestDisposeIsIdempotentAndReleasesRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	ctx := context.Background()

	d, err := Open(ctx, "disposable", ModeOnDisk, path)
	require.NoError(t, err)

	d.Dispose(ctx)
	d.Dispose(ctx) // must not panic or double-release

	reopened, err := Open(ctx, "disposable-2", ModeOnDisk, path)
	require.NoError(t, err)
	reopened.Dispose(ctx)
}

func TestExecuteWriteExclusiveAgainstReaders(t *testing.T) {
	d := openTestDriver(t, ModeInMemory, "")
	ctx := context.Background()

	writerEntered := make(chan struct{})
	writerMayFinish := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		err := d.ExecuteWrite(ctx, func(tx *sql.Tx) error {
			close(writerEntered)
			<-writerMayFinish
			_, err := tx.ExecContext(ctx, "INSERT INTO documents(id, name, content_sha256, document_length, term_count, indexed_utc, last_modified_utc, created_utc) VALUES ('d1','doc1','sha',0,0,'t','t','t')")
			return err
		})
		require.NoError(t, err)
		close(writerDone)
	}()

	<-writerEntered

	readerDone := make(chan struct{})
	go func() {
		err := d.ExecuteRead(ctx, func(tx *sql.Tx) error {
			var n int
			return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
		})
		require.NoError(t, err)
		close(readerDone)
	}()

	select {
	case <-readerDone:
		t.Fatal("reader completed while a write transaction was still open")
	case <-time.After(30 * time.Millisecond):
	}

	close(writerMayFinish)

	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never finished")
	}
	select {
	case <-readerDone:
	case <-time.After(time.Second):
		t.Fatal("reader never finished after writer released the lock")
	}
}

func TestExecuteWriteCancellationRollsBack(t *testing.T) {
	d := openTestDriver(t, ModeInMemory, "")

	ctx, cancel := context.WithCancel(context.Background())
	err := d.ExecuteWrite(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "INSERT INTO documents(id, name, content_sha256, document_length, term_count, indexed_utc, last_modified_utc, created_utc) VALUES ('d1','doc1','sha',0,0,'t','t','t')")
		if err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.True(t, Is(err, KindCancelled))

	var n int
	readErr := d.ExecuteRead(context.Background(), func(tx *sql.Tx) error {
		return tx.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM documents").Scan(&n)
	})
	require.NoError(t, readErr)
	assert.Equal(t, 0, n, "cancelled write must leave no trace after rollback")
}

func TestExecuteReadRejectsAlreadyCancelledContext(t *testing.T) {
	d := openTestDriver(t, ModeInMemory, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.ExecuteRead(ctx, func(tx *sql.Tx) error { return nil })
	assert.True(t, Is(err, KindCancelled))
}

func TestConcurrentWritersAreSerialized(t *testing.T) {
	d := openTestDriver(t, ModeInMemory, "")
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := d.ExecuteWrite(ctx, func(tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx,
					"INSERT INTO documents(id, name, content_sha256, document_length, term_count, indexed_utc, last_modified_utc, created_utc) VALUES (?,?,?,0,0,'t','t','t')",
					idSeq(i), docName(i), "sha")
				return err
			})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var count int
	err := d.ExecuteRead(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func idSeq(i int) string {
	return docName(i) + "-id"
}

func docName(i int) string {
	return "doc-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}
