package docengine

import (
	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/memstorage"
	"github.com/bobboyms/docengine/internal/planner"
	"github.com/bobboyms/docengine/internal/walmgr"
)

// Load performs crash recovery, spec.md §8 scenario 5: reload every
// collection's last-flushed documents from disk, then replay WAL
// records after that checkpoint to bring memory back to the state it
// held right before the crash. Clears the poisoned flag on success, so
// a dispatcher that poisoned itself mid-session can be recovered by
// discarding it and opening (and loading) a fresh one.
func (d *Dispatcher) Load() error {
	pairs, err := d.disk.ListCollections()
	if err != nil {
		return dberrors.Wrap(err, "list collections for recovery")
	}

	for _, pair := range pairs {
		database, collection := pair[0], pair[1]
		if err := d.mem.CreateDatabase(database); err != nil {
			if _, exists := err.(*dberrors.DatabaseAlreadyExistsError); !exists {
				return dberrors.Wrap(err, "recreate database during recovery")
			}
		}
		if err := d.mem.CreateCollection(database, collection); err != nil {
			if _, exists := err.(*dberrors.CollectionAlreadyExistsError); !exists {
				return dberrors.Wrap(err, "recreate collection during recovery")
			}
		}

		docs, err := d.disk.LoadCollection(database, collection)
		if err != nil {
			return dberrors.Wrap(err, "load collection documents during recovery")
		}
		if len(docs) > 0 {
			stmt := &memstorage.Statement{
				Kind: planner.Insert, Database: database, Collection: collection,
				Plan:   &planner.LogicalPlan{Kind: planner.Insert, Docs: docs},
				Params: map[string]interface{}{}, Limit: -1,
			}
			if _, err := d.mem.ExecutePlan(stmt); err != nil {
				return dberrors.Wrap(err, "seed collection from disk during recovery")
			}
		}
	}

	afterID := d.disk.LastFlushed()
	highest, err := d.wal.Replay(afterID, func(rec walmgr.Record) error {
		return d.replayRecord(rec)
	})
	if err != nil {
		return dberrors.Wrap(err, "replay wal during recovery")
	}
	if highest > afterID {
		if err := d.disk.FlushUpTo(highest); err != nil {
			return dberrors.Wrap(err, "flush checkpoint after replay")
		}
	}

	d.poisoned.Store(false)
	return nil
}

// replayRecord re-executes one already-WAL-durable record against
// memory and mirrors its effect to disk, without re-appending to the
// WAL (it is already there) — the "replay" half of the commit
// pipeline commit.go otherwise performs in full.
func (d *Dispatcher) replayRecord(rec walmgr.Record) error {
	switch rec.Type {
	case walmgr.EntryCreateDatabase:
		if err := d.mem.CreateDatabase(rec.Database); err != nil {
			if _, exists := err.(*dberrors.DatabaseAlreadyExistsError); !exists {
				return err
			}
		}
		return nil

	case walmgr.EntryDropDatabase:
		return ignoreNotExists(d.mem.DropDatabase(rec.Database))

	case walmgr.EntryCreateCollection:
		if err := d.mem.CreateCollection(rec.Database, rec.Collection); err != nil {
			if _, exists := err.(*dberrors.CollectionAlreadyExistsError); !exists {
				return err
			}
		}
		return nil

	case walmgr.EntryDropCollection:
		return ignoreNotExists(d.mem.DropCollection(rec.Database, rec.Collection))

	case walmgr.EntryInsertOne:
		var body insertOneBody
		if err := walmgr.DecodeBody(rec.Body, &body); err != nil {
			return dberrors.Wrap(err, "decode insert_one replay body")
		}
		doc, err := document.FromJSON(body.Doc.JSON)
		if err != nil {
			return dberrors.Wrap(err, "decode replayed document")
		}
		return d.replayExecuteAndMirror(rec, &planner.LogicalPlan{Kind: planner.Insert, Docs: []*document.Document{doc}})

	case walmgr.EntryInsertMany:
		var body insertManyBody
		if err := walmgr.DecodeBody(rec.Body, &body); err != nil {
			return dberrors.Wrap(err, "decode insert_many replay body")
		}
		docs := make([]*document.Document, 0, len(body.Docs))
		for _, entry := range body.Docs {
			doc, err := document.FromJSON(entry.JSON)
			if err != nil {
				return dberrors.Wrap(err, "decode replayed document")
			}
			docs = append(docs, doc)
		}
		return d.replayExecuteAndMirror(rec, &planner.LogicalPlan{Kind: planner.Insert, Docs: docs})

	case walmgr.EntryDeleteOne, walmgr.EntryDeleteMany:
		var body deleteBody
		if err := walmgr.DecodeBody(rec.Body, &body); err != nil {
			return dberrors.Wrap(err, "decode delete replay body")
		}
		expr, params, err := buildExpr(body.Filter)
		if err != nil {
			return err
		}
		plan := &planner.LogicalPlan{
			Kind: planner.Delete,
			Child: &planner.LogicalPlan{
				Kind: planner.Match, Predicate: expr,
				Child: &planner.LogicalPlan{Kind: planner.Scan},
			},
		}
		return d.replayExecuteAndMirrorWithParams(rec, plan, params, body.Limit)

	case walmgr.EntryUpdateOne, walmgr.EntryUpdateMany:
		var body updateBody
		if err := walmgr.DecodeBody(rec.Body, &body); err != nil {
			return dberrors.Wrap(err, "decode update replay body")
		}
		updateDoc, err := document.FromJSON(body.UpdateJSON)
		if err != nil {
			return dberrors.Wrap(err, "decode replayed update document")
		}
		expr, params, err := buildExpr(body.Filter)
		if err != nil {
			return err
		}
		plan := &planner.LogicalPlan{
			Kind: planner.Update,
			Child: &planner.LogicalPlan{
				Kind: planner.Match, Predicate: expr,
				Child: &planner.LogicalPlan{Kind: planner.Scan},
			},
			UpdateDoc: updateDoc,
			Upsert:    body.Upsert,
		}
		return d.replayExecuteAndMirrorWithParams(rec, plan, params, body.Limit)

	case walmgr.EntryCreateIndex:
		var body createIndexBody
		if err := walmgr.DecodeBody(rec.Body, &body); err != nil {
			return dberrors.Wrap(err, "decode create_index replay body")
		}
		plan := &planner.LogicalPlan{
			Kind: planner.CreateIndex, IndexName: body.Name, IndexKeys: body.Keys,
			IndexCompare: body.Compare, IndexKind: body.Kind, IndexUnique: body.Unique,
		}
		return d.replayExecuteAndMirror(rec, plan)

	case walmgr.EntryDropIndex:
		var body dropIndexBody
		if err := walmgr.DecodeBody(rec.Body, &body); err != nil {
			return dberrors.Wrap(err, "decode drop_index replay body")
		}
		ctx, err := d.mem.Collection(rec.Database, rec.Collection)
		if err != nil {
			return err
		}
		ix, ok := ctx.Index().FindByName(body.Name)
		if !ok {
			return nil // already dropped before the crash made it to disk
		}
		return d.replayExecuteAndMirror(rec, &planner.LogicalPlan{Kind: planner.DropIndex, IndexID: ix.ID})

	default:
		return dberrors.Newf("docengine: unknown wal entry type %d during replay", rec.Type)
	}
}

func (d *Dispatcher) replayExecuteAndMirror(rec walmgr.Record, plan *planner.LogicalPlan) error {
	return d.replayExecuteAndMirrorWithParams(rec, plan, map[string]interface{}{}, -1)
}

func (d *Dispatcher) replayExecuteAndMirrorWithParams(rec walmgr.Record, plan *planner.LogicalPlan, params map[string]interface{}, limit int64) error {
	stmt := &memstorage.Statement{Kind: plan.Kind, Database: rec.Database, Collection: rec.Collection, Plan: plan, Params: params, Limit: limit}
	res, err := d.mem.ExecutePlan(stmt)
	if err != nil {
		return err
	}
	return d.applyToDisk(rec.Type, rec.Database, rec.Collection, res, rec.ID)
}

func ignoreNotExists(err error) error {
	switch err.(type) {
	case nil, *dberrors.DatabaseNotExistsError, *dberrors.CollectionNotExistsError:
		return nil
	default:
		return err
	}
}
