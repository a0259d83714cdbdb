// Package docengine is the embeddable façade: a single Dispatcher that
// coordinates session bookkeeping, in-memory storage, the write-ahead
// log, and the on-disk store, per spec.md §4.8 and SPEC_FULL §11.
package docengine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/diskmgr"
	"github.com/bobboyms/docengine/internal/dlog"
	"github.com/bobboyms/docengine/internal/memstorage"
	"github.com/bobboyms/docengine/internal/walmgr"
)

// SessionID correlates a caller's request across the dispatcher's
// asynchronous internal boundaries (WAL append, disk flush), per
// spec.md §3's "opaque id chosen by the caller". Generated internally
// by NewSession for callers that don't already have one of their own.
type SessionID = uuid.UUID

// inFlight is the session-table entry spec.md §4.8/§5 describes:
// "the dispatcher maps each in-flight session to the sender address
// and to the statement currently being processed". In this single-process
// embedding there is no sender address to route a reply to — the
// caller's own goroutine blocks for the result — so inFlight exists to
// enforce "at most one entry per session" and to give ReapStaleSessions
// something to find.
type inFlight struct {
	startedAt time.Time
	statement string
}

// Dispatcher is the embeddable engine handle. One Dispatcher owns one
// engine instance's entire state: every database/collection (via
// memstorage.Service), the WAL, and the disk store.
type Dispatcher struct {
	opts EngineOptions

	mem  *memstorage.Service
	wal  *walmgr.Manager
	disk *diskmgr.Manager

	sessions sync.Map // SessionID -> *inFlight

	poisoned atomic.Bool

	logger zerolog.Logger
}

// Open creates (or reopens) an engine instance rooted at opts.DataDir,
// wiring the disk manager's OpenIndexDB as memstorage's DiskOpener so
// Disk-kind indexes share the same bbolt handles the disk manager
// already owns per collection.
func Open(opts EngineOptions) (*Dispatcher, error) {
	logger := dlog.New(opts.logConfig())

	disk, err := diskmgr.NewManager(opts.diskDir(), opts.MaxSegmentSize)
	if err != nil {
		return nil, dberrors.Wrap(err, "open disk manager")
	}

	wal, err := walmgr.Open(opts.walOptions(), disk.LastFlushed())
	if err != nil {
		return nil, dberrors.Wrap(err, "open wal manager")
	}

	mem := memstorage.NewService(dlog.Actor(logger, "memstorage"), disk.OpenIndexDB)

	d := &Dispatcher{
		opts:   opts,
		mem:    mem,
		wal:    wal,
		disk:   disk,
		logger: dlog.Actor(logger, "dispatcher"),
	}
	return d, nil
}

// NewSession mints a fresh session id for a caller that doesn't
// already correlate its own calls with one, using the teacher's
// uuid-v7 idiom so ids sort roughly by creation time.
func (d *Dispatcher) NewSession() (SessionID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return SessionID{}, dberrors.Wrap(err, "generate session id")
	}
	return id, nil
}

// begin registers session as in-flight, rejecting a session already
// mid-call — the Go realization of spec.md §5's "a second call with
// the same session id must not be issued until the first has
// acknowledged", enforced here rather than merely assumed, since an
// embedder's caller can violate it from two goroutines.
func (d *Dispatcher) begin(session SessionID, statement string) (func(), error) {
	if d.poisoned.Load() {
		return nil, dberrors.Newf("docengine: dispatcher is poisoned after a prior fatal WAL/disk failure; call Load to recover")
	}
	entry := &inFlight{startedAt: time.Now(), statement: statement}
	if _, loaded := d.sessions.LoadOrStore(session, entry); loaded {
		return nil, dberrors.Newf("docengine: session %s already has an in-flight call", session)
	}
	dispatchInflightSessions.Inc()
	return func() {
		d.sessions.Delete(session)
		dispatchInflightSessions.Dec()
	}, nil
}

// ReapStaleSessions removes any session entry older than maxAge.
// spec.md §5 explicitly leaves cancellation/timeouts out of the core
// layer ("a caller that abandons a session leaks an entry... Implementations
// should add a reaper keyed by session creation time") — this is that
// reaper, but no goroutine calls it unsolicited; an embedder wires it
// to its own ticker.
func (d *Dispatcher) ReapStaleSessions(maxAge time.Duration) int {
	reaped := 0
	now := time.Now()
	d.sessions.Range(func(key, value interface{}) bool {
		entry := value.(*inFlight)
		if now.Sub(entry.startedAt) > maxAge {
			d.sessions.Delete(key)
			dispatchInflightSessions.Dec()
			reaped++
		}
		return true
	})
	return reaped
}

// Close flushes and closes the WAL and disk manager. The dispatcher
// must not be used afterward.
func (d *Dispatcher) Close() error {
	var firstErr error
	if err := d.wal.Close(); err != nil {
		firstErr = err
	}
	if err := d.disk.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func entryTypeLabel(t walmgr.EntryType) string {
	switch t {
	case walmgr.EntryCreateDatabase:
		return "create_database"
	case walmgr.EntryDropDatabase:
		return "drop_database"
	case walmgr.EntryCreateCollection:
		return "create_collection"
	case walmgr.EntryDropCollection:
		return "drop_collection"
	case walmgr.EntryInsertOne:
		return "insert_one"
	case walmgr.EntryInsertMany:
		return "insert_many"
	case walmgr.EntryDeleteOne:
		return "delete_one"
	case walmgr.EntryDeleteMany:
		return "delete_many"
	case walmgr.EntryUpdateOne:
		return "update_one"
	case walmgr.EntryUpdateMany:
		return "update_many"
	case walmgr.EntryCreateIndex:
		return "create_index"
	case walmgr.EntryDropIndex:
		return "drop_index"
	default:
		return "unknown"
	}
}
