package docengine

import (
	"time"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/memstorage"
	"github.com/bobboyms/docengine/internal/walmgr"
)

// commit is the single path every mutating entry point funnels
// through: execute the statement against memory storage, append the
// WAL record, apply the effect to disk, then flush the checkpoint up
// to the new WAL id — spec.md §4.8's four numbered steps, minus the
// sender/reply bookkeeping a single-process embedding doesn't need.
// A WAL append or disk-apply/flush failure poisons the dispatcher
// (spec.md §7: "fatal: WAL append failure and disk flush failure
// crash the engine"); an embeddable library cannot call os.Exit, so
// poisoning plus refusing further calls until Load is the realization
// SPEC_FULL §16 calls for.
// buildBody runs after execution succeeds, so it can see the actually
// assigned document ids (InsertOne/InsertMany generate a fresh "/_id"
// when the caller's document omitted one) rather than whatever the
// caller originally supplied.
func (d *Dispatcher) commit(entryType walmgr.EntryType, stmt *memstorage.Statement, wantCursor bool, buildBody func(*memstorage.Result) (interface{}, error)) (*memstorage.Result, error) {
	var res *memstorage.Result
	var err error
	if wantCursor {
		res, err = d.mem.ExecutePlanCursor(stmt)
	} else {
		res, err = d.mem.ExecutePlan(stmt)
	}
	if err != nil {
		return nil, err
	}

	body, err := buildBody(res)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	walID, err := d.wal.Append(entryType, stmt.Database, stmt.Collection, body)
	walAppendSeconds.WithLabelValues(entryTypeLabel(entryType)).Observe(time.Since(start).Seconds())
	if err != nil {
		d.poisoned.Store(true)
		d.logger.Error().Err(err).Str("entry_type", entryTypeLabel(entryType)).Msg("wal append failed; dispatcher poisoned")
		return nil, dberrors.Wrap(err, "wal append failed")
	}
	walAppendTotal.WithLabelValues(entryTypeLabel(entryType)).Inc()

	if err := d.applyToDisk(entryType, stmt.Database, stmt.Collection, res, walID); err != nil {
		d.poisoned.Store(true)
		d.logger.Error().Err(err).Msg("disk apply failed; dispatcher poisoned")
		return nil, dberrors.Wrap(err, "disk apply failed")
	}

	if err := d.disk.FlushUpTo(walID); err != nil {
		d.poisoned.Store(true)
		d.logger.Error().Err(err).Msg("disk flush failed; dispatcher poisoned")
		return nil, dberrors.Wrap(err, "disk flush failed")
	}
	checkpointFlushTotal.Inc()

	return res, nil
}

// applyToDisk mirrors a just-committed statement's effect onto the
// disk manager's segment store: inserts/updates persist the surviving
// document bodies, deletes append a tombstone, and DDL/index kinds are
// no-ops (DDL carries no document state; Disk-kind indexes already
// persist directly through their own bbolt handle, opened once per
// collection and shared with the index engine, per indexengine.Engine's
// diskDB wiring).
func (d *Dispatcher) applyToDisk(entryType walmgr.EntryType, database, collection string, res *memstorage.Result, lsn uint64) error {
	switch entryType {
	case walmgr.EntryInsertOne, walmgr.EntryInsertMany, walmgr.EntryUpdateOne, walmgr.EntryUpdateMany:
		for _, doc := range res.Docs {
			id, err := docIDForDisk(doc)
			if err != nil {
				return err
			}
			if err := d.disk.AppendDocument(database, collection, id, doc, lsn); err != nil {
				return err
			}
		}
	case walmgr.EntryDeleteOne, walmgr.EntryDeleteMany:
		for _, doc := range res.Docs {
			id, err := docIDForDisk(doc)
			if err != nil {
				return err
			}
			if err := d.disk.DeleteDocument(database, collection, id, lsn); err != nil {
				return err
			}
		}
	}
	return nil
}
