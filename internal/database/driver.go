package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/verbex/verbex/internal/idgen"
	"github.com/verbex/verbex/internal/logging"
	"github.com/verbex/verbex/internal/xtime"

	"github.com/mattn/go-sqlite3"
)

var log = logging.GetLogger("database")

// Mode selects the two storage modes spec.md §6 enumerates.
type Mode string

const (
	ModeInMemory Mode = "in_memory"
	ModeOnDisk   Mode = "on_disk"
)

// state implements the lifecycle state machine of spec.md §4.7.
type state int

const (
	stateClosed state = iota
	stateOpening
	stateOpen
	stateClosing
)

// busyTimeout is the fixed busy_timeout pragma spec.md §5 mandates.
const busyTimeout = 5 * time.Second

// Driver owns one embedded SQL connection for a single index and mediates
// every statement through a reader/writer lock, per spec.md §4.1 and §5.
//
// Unlike a plain sync.RWMutex, writers here do not starve: a waiting
// writer blocks new readers from acquiring the lock until it has run,
// matching the "reader preference disabled" requirement.
type Driver struct {
	name string
	mode Mode
	path string

	db *sql.DB

	st   state
	stMu sync.Mutex
	gate *writerPreferredLock

	registryKey string // absolute on-disk path held in openOnDiskPaths, "" if not registered
}

// openOnDiskPaths tracks every on-disk path with a live *Driver, so that a
// second Open() against the same file is rejected with AlreadyOpen instead
// of racing a second *sql.DB against the first (spec.md §4.1, §4.7). A
// freshly constructed *Driver's state field is always its zero value
// (stateClosed), so that check cannot itself detect re-opening — distinct
// *Driver values have distinct state; only a path-keyed registry can.
// In-memory indices are not registered: their database is keyed by the
// index name in SQLite's shared cache, so two live Open(ModeInMemory) calls
// under the same name share one database and the second is not rejected.
var (
	openRegistryMu  sync.Mutex
	openOnDiskPaths = map[string]bool{}
)

func registerOnDiskPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", IoError(path, err)
	}
	openRegistryMu.Lock()
	defer openRegistryMu.Unlock()
	if openOnDiskPaths[abs] {
		return "", AlreadyOpen()
	}
	openOnDiskPaths[abs] = true
	return abs, nil
}

func releaseOnDiskPath(key string) {
	if key == "" {
		return
	}
	openRegistryMu.Lock()
	delete(openOnDiskPaths, key)
	openRegistryMu.Unlock()
}

// Open initializes the connection for mode/path. If mode is ModeInMemory,
// path is ignored and an ephemeral database is opened; if ModeOnDisk, the
// file at path is opened (and created, along with its directory, if
// absent). On first open the schema is created and the index_metadata
// singleton row is seeded. Opening the same on-disk path twice while the
// first *Driver is still live fails with AlreadyOpen.
func Open(ctx context.Context, name string, mode Mode, path string) (*Driver, error) {
	if name == "" {
		return nil, InvalidArgument("name", "must not be empty")
	}

	d := &Driver{name: name, mode: mode, path: path, gate: newWriterPreferredLock()}
	d.st = stateOpening

	if mode == ModeOnDisk {
		key, err := registerOnDiskPath(path)
		if err != nil {
			return nil, err
		}
		d.registryKey = key
	}
	release := func() { releaseOnDiskPath(d.registryKey) }

	dsn, err := d.dsn()
	if err != nil {
		release()
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		release()
		return nil, IoError(path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		release()
		return nil, IoError(path, err)
	}

	d.db = sqlDB

	if err := d.applyPragmas(ctx); err != nil {
		sqlDB.Close()
		release()
		return nil, err
	}

	if err := d.initSchema(ctx, name); err != nil {
		sqlDB.Close()
		release()
		return nil, err
	}

	d.stMu.Lock()
	d.st = stateOpen
	d.stMu.Unlock()

	log.Info("index opened", "name", name, "mode", mode, "path", path)
	return d, nil
}

func (d *Driver) dsn() (string, error) {
	switch d.mode {
	case ModeInMemory:
		// A named in-memory database with a shared cache keeps the same
		// backing store across the single connection pool entry.
		return fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=%d", d.name, busyTimeout.Milliseconds()), nil
	case ModeOnDisk:
		if d.path == "" {
			return "", InvalidArgument("path", "required for on_disk storage mode")
		}
		dir := filepath.Dir(d.path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", IoError(dir, err)
		}
		return fmt.Sprintf("file:%s?_busy_timeout=%d", d.path, busyTimeout.Milliseconds()), nil
	default:
		return "", InvalidArgument("mode", "must be in_memory or on_disk")
	}
}

// applyPragmas sets the fixed pragmas spec.md §4.1 requires: WAL for
// on-disk, synchronous NORMAL, foreign keys ON, busy timeout 5s.
func (d *Driver) applyPragmas(ctx context.Context) error {
	stmts := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA synchronous = NORMAL;",
	}
	if d.mode == ModeOnDisk {
		stmts = append([]string{"PRAGMA journal_mode = WAL;"}, stmts...)
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return IoError(d.path, err)
		}
	}
	return nil
}

func (d *Driver) initSchema(ctx context.Context, name string) error {
	var probe string
	err := d.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='index_metadata' LIMIT 1`).Scan(&probe)
	switch {
	case err == sql.ErrNoRows:
		// fresh database: create schema and seed metadata below.
	case err != nil:
		return IoError(d.path, err)
	default:
		return d.probeSchema(ctx)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return IoError(d.path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, CoreSchema); err != nil {
		return Corruption(fmt.Sprintf("failed to create schema: %v", err))
	}

	now := xtime.Now()
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, applied_utc) VALUES (?, ?)`, SchemaVersion, now); err != nil {
		return Corruption(fmt.Sprintf("failed to record schema version: %v", err))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_metadata (id, name, created_utc, last_modified_utc) VALUES (?, ?, ?, ?)
	`, idgen.New(), name, now, now); err != nil {
		return Corruption(fmt.Sprintf("failed to seed index metadata: %v", err))
	}

	if err := tx.Commit(); err != nil {
		return IoError(d.path, err)
	}
	return nil
}

// probeSchema verifies a previously-initialized database has the shape
// this driver expects, raising Corruption if not.
func (d *Driver) probeSchema(ctx context.Context) error {
	required := []string{"documents", "terms", "document_terms", "labels", "tags", "index_metadata"}
	for _, table := range required {
		var got string
		err := d.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&got)
		if err == sql.ErrNoRows {
			return Corruption(fmt.Sprintf("missing table %q", table))
		}
		if err != nil {
			return IoError(d.path, err)
		}
	}
	var version int
	if err := d.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return Corruption(fmt.Sprintf("cannot read schema version: %v", err))
	}
	if version != SchemaVersion {
		return Corruption(fmt.Sprintf("schema version %d, expected %d", version, SchemaVersion))
	}
	return nil
}

// Close performs a truncating WAL checkpoint (on-disk only) before
// releasing the connection. Idempotent.
func (d *Driver) Close(ctx context.Context) error {
	d.stMu.Lock()
	if d.st == stateClosed {
		d.stMu.Unlock()
		return nil
	}
	d.st = stateClosing
	d.stMu.Unlock()

	var checkpointErr error
	if d.mode == ModeOnDisk {
		checkpointErr = d.checkpointLocked(ctx)
	}

	if d.db != nil {
		if err := d.db.Close(); err != nil && checkpointErr == nil {
			checkpointErr = IoError(d.path, err)
		}
	}
	releaseOnDiskPath(d.registryKey)

	d.stMu.Lock()
	d.st = stateClosed
	d.stMu.Unlock()

	log.Info("index closed", "name", d.name)
	return checkpointErr
}

// Dispose releases resources from any state, swallowing checkpoint errors
// so resource release always completes (spec.md §7).
func (d *Driver) Dispose(ctx context.Context) {
	d.stMu.Lock()
	wasOpen := d.st == stateOpen
	d.st = stateClosing
	d.stMu.Unlock()

	if wasOpen && d.mode == ModeOnDisk {
		_ = d.checkpointLocked(ctx)
	}
	if d.db != nil {
		_ = d.db.Close()
	}
	releaseOnDiskPath(d.registryKey)

	d.stMu.Lock()
	d.st = stateClosed
	d.stMu.Unlock()
}

func (d *Driver) checkpointLocked(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
	if err != nil {
		return IoError(d.path, err)
	}
	return nil
}

// Checkpoint runs a truncating WAL checkpoint under the write lock.
func (d *Driver) Checkpoint(ctx context.Context) error {
	return d.ExecuteWrite(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
		return err
	})
}

// Flush snapshots the database to targetPath via the sqlite3 page-level
// backup API. For an in-memory index, targetPath is required: a second
// connection is opened there and the whole database is copied across. For
// an on-disk index, this degrades to a truncating WAL checkpoint and
// targetPath is ignored.
func (d *Driver) Flush(ctx context.Context, targetPath string) error {
	if d.mode == ModeOnDisk {
		return d.Checkpoint(ctx)
	}
	if targetPath == "" {
		return InvalidArgument("target_path", "required when flushing an in-memory index")
	}

	if err := d.checkCancel(ctx); err != nil {
		return err
	}

	d.gate.lockWriter()
	defer d.gate.unlockWriter()

	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return IoError(dir, err)
	}

	destDSN := fmt.Sprintf("file:%s?_busy_timeout=%d", targetPath, busyTimeout.Milliseconds())
	destDB, err := sql.Open("sqlite3", destDSN)
	if err != nil {
		return IoError(targetPath, err)
	}
	defer destDB.Close()
	if err := destDB.PingContext(ctx); err != nil {
		return IoError(targetPath, err)
	}

	srcConn, err := d.db.Conn(ctx)
	if err != nil {
		return IoError(d.path, err)
	}
	defer srcConn.Close()

	destConn, err := destDB.Conn(ctx)
	if err != nil {
		return IoError(targetPath, err)
	}
	defer destConn.Close()

	err = destConn.Raw(func(destDriverConn any) error {
		destSQLite, ok := destDriverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return Corruption("destination connection is not a sqlite3 connection")
		}
		return srcConn.Raw(func(srcDriverConn any) error {
			srcSQLite, ok := srcDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return Corruption("source connection is not a sqlite3 connection")
			}
			backup, err := destSQLite.Backup("main", srcSQLite, "main")
			if err != nil {
				return IoError(targetPath, err)
			}
			defer backup.Close()

			for {
				if err := d.checkCancel(ctx); err != nil {
					return err
				}
				done, err := backup.Step(-1)
				if err != nil {
					return IoError(targetPath, err)
				}
				if done {
					return nil
				}
			}
		})
	})
	if err != nil {
		return err
	}

	log.Info("index flushed", "name", d.name, "target", targetPath)
	return nil
}

// ExecuteRead runs op under the shared lock. Readers may proceed in
// parallel; a waiting writer blocks new readers.
func (d *Driver) ExecuteRead(ctx context.Context, op func(*sql.Tx) error) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	if err := d.checkCancel(ctx); err != nil {
		return err
	}

	if !d.gate.lockReaderCtx(ctx) {
		return Cancelled()
	}
	defer d.gate.unlockReader()

	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return d.classifyTxError(err)
	}
	defer tx.Rollback()

	if err := op(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return d.classifyTxError(err)
	}
	return nil
}

// ExecuteWrite runs op under the exclusive lock. Writers are exclusive
// against both readers and writers. Bumping index_metadata's
// last_modified_utc is left to op: the indexing service's write operations
// end with Metadata.Touch, and this method does not check that they do.
func (d *Driver) ExecuteWrite(ctx context.Context, op func(*sql.Tx) error) error {
	if err := d.requireOpen(); err != nil {
		return err
	}
	if err := d.checkCancel(ctx); err != nil {
		return err
	}

	if !d.gate.lockWriterCtx(ctx) {
		return Cancelled()
	}
	defer d.gate.unlockWriter()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return d.classifyTxError(err)
	}
	defer tx.Rollback()

	if err := op(tx); err != nil {
		if ctx.Err() != nil {
			return Cancelled()
		}
		return err
	}

	if ctx.Err() != nil {
		return Cancelled()
	}

	if err := tx.Commit(); err != nil {
		return d.classifyTxError(err)
	}
	return nil
}

func (d *Driver) classifyTxError(err error) error {
	if err == nil {
		return nil
	}
	if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrBusy {
		return Busy(err.Error())
	}
	return IoError(d.path, err)
}

func (d *Driver) requireOpen() error {
	d.stMu.Lock()
	defer d.stMu.Unlock()
	if d.st != stateOpen {
		return NotOpen()
	}
	return nil
}

func (d *Driver) checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return Cancelled()
	default:
		return nil
	}
}

// Name returns the index name.
func (d *Driver) Name() string { return d.name }

// Path returns the on-disk path, empty for in-memory indices.
func (d *Driver) Path() string { return d.path }

// Mode returns the storage mode.
func (d *Driver) Mode() Mode { return d.mode }
