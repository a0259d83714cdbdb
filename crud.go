package docengine

import (
	"strconv"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/memstorage"
	"github.com/bobboyms/docengine/internal/planner"
	"github.com/bobboyms/docengine/internal/walmgr"
)

// docIDForDisk extracts a document's "/_id" as the string key the disk
// manager's segment store indexes records by, matching the id
// extraction already duplicated (consistently) across
// internal/collection, internal/memstorage, and internal/indexengine.
func docIDForDisk(doc *document.Document) (string, error) {
	switch {
	case doc.IsString("/_id"):
		return doc.GetString("/_id")
	case doc.IsInt64("/_id"):
		v, err := doc.GetInt64("/_id")
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case doc.IsUint64("/_id"):
		v, err := doc.GetUint64("/_id")
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(v, 10), nil
	default:
		return "", dberrors.Newf("docengine: document has no representable /_id after insert")
	}
}

// CreateDatabase registers an empty database and makes it durable.
func (d *Dispatcher) CreateDatabase(session SessionID, name string) error {
	done, err := d.begin(session, "create_database")
	if err != nil {
		return err
	}
	defer done()

	stmt := &memstorage.Statement{Kind: planner.CreateDatabase, Database: name, Params: map[string]interface{}{}, Limit: -1}
	_, err = d.commit(walmgr.EntryCreateDatabase, stmt, false, func(*memstorage.Result) (interface{}, error) {
		return struct{}{}, nil
	})
	return err
}

// DropDatabase removes a database and every collection it owns.
func (d *Dispatcher) DropDatabase(session SessionID, name string) error {
	done, err := d.begin(session, "drop_database")
	if err != nil {
		return err
	}
	defer done()

	stmt := &memstorage.Statement{Kind: planner.DropDatabase, Database: name, Params: map[string]interface{}{}, Limit: -1}
	_, err = d.commit(walmgr.EntryDropDatabase, stmt, false, func(*memstorage.Result) (interface{}, error) {
		return struct{}{}, nil
	})
	return err
}

// CreateCollection registers an empty collection within database.
func (d *Dispatcher) CreateCollection(session SessionID, database, collection string) error {
	done, err := d.begin(session, "create_collection")
	if err != nil {
		return err
	}
	defer done()

	stmt := &memstorage.Statement{Kind: planner.CreateCollection, Database: database, Collection: collection, Params: map[string]interface{}{}, Limit: -1}
	_, err = d.commit(walmgr.EntryCreateCollection, stmt, false, func(*memstorage.Result) (interface{}, error) {
		return struct{}{}, nil
	})
	return err
}

// DropCollection removes collection from database.
func (d *Dispatcher) DropCollection(session SessionID, database, collection string) error {
	done, err := d.begin(session, "drop_collection")
	if err != nil {
		return err
	}
	defer done()

	stmt := &memstorage.Statement{Kind: planner.DropCollection, Database: database, Collection: collection, Params: map[string]interface{}{}, Limit: -1}
	_, err = d.commit(walmgr.EntryDropCollection, stmt, false, func(*memstorage.Result) (interface{}, error) {
		return struct{}{}, nil
	})
	return err
}

// InsertOne inserts a single document (as JSON text) and returns its
// assigned "/_id".
func (d *Dispatcher) InsertOne(session SessionID, database, collection, docJSON string) (string, error) {
	done, err := d.begin(session, "insert_one")
	if err != nil {
		return "", err
	}
	defer done()

	doc, err := document.FromJSON(docJSON)
	if err != nil {
		return "", dberrors.Wrap(err, "decode document for insert_one")
	}
	stmt := &memstorage.Statement{
		Kind: planner.Insert, Database: database, Collection: collection,
		Plan:   &planner.LogicalPlan{Kind: planner.Insert, Docs: []*document.Document{doc}},
		Params: map[string]interface{}{}, Limit: -1,
	}
	res, err := d.commit(walmgr.EntryInsertOne, stmt, false, func(res *memstorage.Result) (interface{}, error) {
		return insertBodyFor(res)
	})
	if err != nil {
		return "", err
	}
	return docIDForDisk(res.Docs[0])
}

// InsertMany inserts every document in docsJSON and returns their
// assigned ids in the same order.
func (d *Dispatcher) InsertMany(session SessionID, database, collection string, docsJSON []string) ([]string, error) {
	done, err := d.begin(session, "insert_many")
	if err != nil {
		return nil, err
	}
	defer done()

	docs := make([]*document.Document, 0, len(docsJSON))
	for _, js := range docsJSON {
		doc, err := document.FromJSON(js)
		if err != nil {
			return nil, dberrors.Wrap(err, "decode document for insert_many")
		}
		docs = append(docs, doc)
	}
	stmt := &memstorage.Statement{
		Kind: planner.Insert, Database: database, Collection: collection,
		Plan:   &planner.LogicalPlan{Kind: planner.Insert, Docs: docs},
		Params: map[string]interface{}{}, Limit: -1,
	}
	res, err := d.commit(walmgr.EntryInsertMany, stmt, false, func(res *memstorage.Result) (interface{}, error) {
		return insertManyBodyFor(res)
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Docs))
	for _, doc := range res.Docs {
		id, err := docIDForDisk(doc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func insertBodyFor(res *memstorage.Result) (insertOneBody, error) {
	id, err := docIDForDisk(res.Docs[0])
	if err != nil {
		return insertOneBody{}, err
	}
	js, err := res.Docs[0].ToJSON()
	if err != nil {
		return insertOneBody{}, dberrors.Wrap(err, "encode document for wal")
	}
	return insertOneBody{Doc: docEntry{DocID: id, JSON: js}}, nil
}

func insertManyBodyFor(res *memstorage.Result) (insertManyBody, error) {
	entries := make([]docEntry, 0, len(res.Docs))
	for _, doc := range res.Docs {
		id, err := docIDForDisk(doc)
		if err != nil {
			return insertManyBody{}, err
		}
		js, err := doc.ToJSON()
		if err != nil {
			return insertManyBody{}, dberrors.Wrap(err, "encode document for wal")
		}
		entries = append(entries, docEntry{DocID: id, JSON: js})
	}
	return insertManyBody{Docs: entries}, nil
}

// findPlan builds a Match-over-Scan logical plan for filter, upgrading
// to an IndexScan when filter is a single comparison this collection
// already has a live index serving, per spec.md §8 scenario 6.
func (d *Dispatcher) findPlan(database, collection string, filter Filter) (*planner.LogicalPlan, map[string]interface{}, error) {
	if ptr, cmp, key, ok := filter.asIndexCompare(); ok {
		if ctx, err := d.mem.Collection(database, collection); err == nil {
			if ix, found := ctx.Index().Find([]string{ptr}); found {
				return &planner.LogicalPlan{Kind: planner.IndexScan, ScanIndex: ix, ScanCompare: cmp, ScanKey: key}, map[string]interface{}{}, nil
			}
		}
	}
	expr, params, err := buildExpr(filter)
	if err != nil {
		return nil, nil, err
	}
	return &planner.LogicalPlan{Kind: planner.Match, Predicate: expr, Child: &planner.LogicalPlan{Kind: planner.Scan}}, params, nil
}

// Find returns every document matching filter (up to limit; -1 for
// unbounded) plus a cursor session bound to exactly that result set.
// session only guards reentry on this call; the returned cursor is its
// own, separate id, released later via CloseCursor.
func (d *Dispatcher) Find(session SessionID, database, collection string, filter Filter, limit int64) (SessionID, []string, error) {
	done, err := d.begin(session, "find")
	if err != nil {
		return SessionID{}, nil, err
	}
	defer done()

	plan, params, err := d.findPlan(database, collection, filter)
	if err != nil {
		return SessionID{}, nil, err
	}
	res, err := d.mem.ExecutePlanCursor(&memstorage.Statement{
		Kind: plan.Kind, Database: database, Collection: collection,
		Plan: plan, Params: params, Limit: limit,
	})
	if err != nil {
		return SessionID{}, nil, err
	}
	docs, err := docsToJSON(res.Docs)
	if err != nil {
		return SessionID{}, nil, err
	}
	return res.Cursor, docs, nil
}

// FindOne returns the first document matching filter, if any.
func (d *Dispatcher) FindOne(session SessionID, database, collection string, filter Filter) (string, bool, error) {
	done, err := d.begin(session, "find_one")
	if err != nil {
		return "", false, err
	}
	defer done()

	plan, params, err := d.findPlan(database, collection, filter)
	if err != nil {
		return "", false, err
	}
	res, err := d.mem.ExecutePlan(&memstorage.Statement{
		Kind: plan.Kind, Database: database, Collection: collection,
		Plan: plan, Params: params, Limit: 1,
	})
	if err != nil {
		return "", false, err
	}
	if len(res.Docs) == 0 {
		return "", false, nil
	}
	js, err := res.Docs[0].ToJSON()
	if err != nil {
		return "", false, dberrors.Wrap(err, "encode matched document")
	}
	return js, true, nil
}

func docsToJSON(docs []*document.Document) ([]string, error) {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		js, err := doc.ToJSON()
		if err != nil {
			return nil, dberrors.Wrap(err, "encode matched document")
		}
		out = append(out, js)
	}
	return out, nil
}

func (d *Dispatcher) deletePlan(filter Filter) (*planner.LogicalPlan, map[string]interface{}, error) {
	expr, params, err := buildExpr(filter)
	if err != nil {
		return nil, nil, err
	}
	return &planner.LogicalPlan{
		Kind: planner.Delete,
		Child: &planner.LogicalPlan{
			Kind: planner.Match, Predicate: expr,
			Child: &planner.LogicalPlan{Kind: planner.Scan},
		},
	}, params, nil
}

func (d *Dispatcher) delete(session SessionID, entryType walmgr.EntryType, statementName, database, collection string, filter Filter, limit int64) ([]string, error) {
	done, err := d.begin(session, statementName)
	if err != nil {
		return nil, err
	}
	defer done()

	plan, params, err := d.deletePlan(filter)
	if err != nil {
		return nil, err
	}
	stmt := &memstorage.Statement{Kind: planner.Delete, Database: database, Collection: collection, Plan: plan, Params: params, Limit: limit}
	res, err := d.commit(entryType, stmt, false, func(*memstorage.Result) (interface{}, error) {
		return deleteBody{Filter: filter, Limit: limit}, nil
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Docs))
	for _, doc := range res.Docs {
		id, err := docIDForDisk(doc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteOne removes the first document matching filter.
func (d *Dispatcher) DeleteOne(session SessionID, database, collection string, filter Filter) ([]string, error) {
	return d.delete(session, walmgr.EntryDeleteOne, "delete_one", database, collection, filter, 1)
}

// DeleteMany removes every document matching filter.
func (d *Dispatcher) DeleteMany(session SessionID, database, collection string, filter Filter) ([]string, error) {
	return d.delete(session, walmgr.EntryDeleteMany, "delete_many", database, collection, filter, -1)
}

func (d *Dispatcher) update(session SessionID, entryType walmgr.EntryType, statementName, database, collection string, filter Filter, updateJSON string, upsert bool, limit int64) ([]string, error) {
	done, err := d.begin(session, statementName)
	if err != nil {
		return nil, err
	}
	defer done()

	updateDoc, err := document.FromJSON(updateJSON)
	if err != nil {
		return nil, dberrors.Wrap(err, "decode update document")
	}
	expr, params, err := buildExpr(filter)
	if err != nil {
		return nil, err
	}
	plan := &planner.LogicalPlan{
		Kind: planner.Update,
		Child: &planner.LogicalPlan{
			Kind: planner.Match, Predicate: expr,
			Child: &planner.LogicalPlan{Kind: planner.Scan},
		},
		UpdateDoc: updateDoc,
		Upsert:    upsert,
	}
	stmt := &memstorage.Statement{Kind: planner.Update, Database: database, Collection: collection, Plan: plan, Params: params, Limit: limit}
	res, err := d.commit(entryType, stmt, false, func(*memstorage.Result) (interface{}, error) {
		return updateBody{Filter: filter, UpdateJSON: updateJSON, Upsert: upsert, Limit: limit}, nil
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Docs))
	for _, doc := range res.Docs {
		id, err := docIDForDisk(doc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// UpdateOne applies update to the first document matching filter,
// upserting a fresh document from update when nothing matches and
// upsert is set.
func (d *Dispatcher) UpdateOne(session SessionID, database, collection string, filter Filter, updateJSON string, upsert bool) ([]string, error) {
	return d.update(session, walmgr.EntryUpdateOne, "update_one", database, collection, filter, updateJSON, upsert, 1)
}

// UpdateMany applies update to every document matching filter.
func (d *Dispatcher) UpdateMany(session SessionID, database, collection string, filter Filter, updateJSON string, upsert bool) ([]string, error) {
	return d.update(session, walmgr.EntryUpdateMany, "update_many", database, collection, filter, updateJSON, upsert, -1)
}

// Size returns a collection's current document count.
func (d *Dispatcher) Size(database, collection string) (int, error) {
	return d.mem.Size(database, collection)
}

// CloseCursor releases the cursor bound to sid.
func (d *Dispatcher) CloseCursor(database, collection string, sid SessionID) error {
	return d.mem.CloseCursor(database, collection, sid)
}

// CreateIndex declares a secondary index over keys, building it from
// the collection's existing documents before returning.
func (d *Dispatcher) CreateIndex(session SessionID, database, collection, name string, keys []string, kind indexengine.IndexKind, cmp indexengine.CompareKind, unique bool) error {
	done, err := d.begin(session, "create_index")
	if err != nil {
		return err
	}
	defer done()

	stmt := &memstorage.Statement{
		Kind: planner.CreateIndex, Database: database, Collection: collection,
		Plan: &planner.LogicalPlan{
			Kind: planner.CreateIndex, IndexName: name, IndexKeys: keys,
			IndexCompare: cmp, IndexKind: kind, IndexUnique: unique,
		},
		Params: map[string]interface{}{}, Limit: -1,
	}
	_, err = d.commit(walmgr.EntryCreateIndex, stmt, false, func(*memstorage.Result) (interface{}, error) {
		return createIndexBody{Name: name, Keys: keys, Compare: cmp, Kind: kind, Unique: unique}, nil
	})
	return err
}

// DropIndex retires the index named name.
func (d *Dispatcher) DropIndex(session SessionID, database, collection, name string) error {
	done, err := d.begin(session, "drop_index")
	if err != nil {
		return err
	}
	defer done()

	ctx, err := d.mem.Collection(database, collection)
	if err != nil {
		return err
	}
	ix, ok := ctx.Index().FindByName(name)
	if !ok {
		return &dberrors.IndexNotFoundError{Name: name}
	}
	stmt := &memstorage.Statement{
		Kind: planner.DropIndex, Database: database, Collection: collection,
		Plan:   &planner.LogicalPlan{Kind: planner.DropIndex, IndexID: ix.ID},
		Params: map[string]interface{}{}, Limit: -1,
	}
	_, err = d.commit(walmgr.EntryDropIndex, stmt, false, func(*memstorage.Result) (interface{}, error) {
		return dropIndexBody{Name: name}, nil
	})
	return err
}
